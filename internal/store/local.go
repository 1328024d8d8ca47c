package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// LocalStore keeps the guest playlist collection under [kv.KeyLocalPlaylists].
//
// Every mutation is read-all, transform, write-all. Observers registered with
// Observe are called synchronously after each successful SaveAll.
type LocalStore struct {
	kv     kv.Store
	logger *log.Logger

	mu        sync.Mutex
	observers map[int]func([]models.Playlist)
	nextObs   int
}

// NewLocalStore creates a [LocalStore] over store.
func NewLocalStore(store kv.Store, logger *log.Logger) *LocalStore {
	return &LocalStore{
		kv:        store,
		logger:    logger,
		observers: make(map[int]func([]models.Playlist)),
	}
}

// LoadAll returns the stored collection.
//
// Missing or unparsable data yields an empty collection; the failure is logged as a [shared.LocalReadError].
func (s *LocalStore) LoadAll() []models.Playlist {
	raw, ok, err := s.kv.Get(kv.KeyLocalPlaylists)
	if err != nil {
		s.logger.Warn("treating local playlists as empty", "err", &shared.LocalReadError{Key: kv.KeyLocalPlaylists, Err: err})
		return []models.Playlist{}
	}
	if !ok || raw == "" {
		return []models.Playlist{}
	}

	var playlists []models.Playlist
	if err := json.Unmarshal([]byte(raw), &playlists); err != nil {
		s.logger.Warn("treating local playlists as empty", "err", &shared.LocalReadError{Key: kv.KeyLocalPlaylists, Err: err})
		return []models.Playlist{}
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return playlists
}

// SaveAll overwrites the stored collection and notifies observers.
func (s *LocalStore) SaveAll(playlists []models.Playlist) error {
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	data, err := json.Marshal(playlists)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalWrite, err)
	}
	if err := s.kv.Set(kv.KeyLocalPlaylists, string(data)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalWrite, err)
	}

	s.mu.Lock()
	observers := make([]func([]models.Playlist), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(clonePlaylists(playlists))
	}
	return nil
}

// Observe registers fn for change notifications. The returned func unregisters it and is safe to call more than once.
func (s *LocalStore) Observe(fn func([]models.Playlist)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Count returns the number of stored playlists.
func (s *LocalStore) Count() int {
	return len(s.LoadAll())
}

func clonePlaylists(in []models.Playlist) []models.Playlist {
	out := make([]models.Playlist, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// LocalBackend is the guest [Backend].
type LocalBackend struct {
	store *LocalStore
	now   func() time.Time
}

// NewLocalBackend creates a [LocalBackend].
func NewLocalBackend(store *LocalStore) *LocalBackend {
	return &LocalBackend{store: store, now: time.Now}
}

func (b *LocalBackend) Kind() BackendKind { return BackendLocal }

func (b *LocalBackend) Owner() string { return models.GuestOwner }

// Create prepends the playlist so the collection stays newest first.
func (b *LocalBackend) Create(_ context.Context, draft models.PlaylistDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	id := "local_" + shared.GenerateID()
	p := draft.Playlist(id, models.GuestOwner, b.now().UTC())

	playlists := b.store.LoadAll()
	if err := b.store.SaveAll(append([]models.Playlist{p}, playlists...)); err != nil {
		return "", err
	}
	return id, nil
}

func (b *LocalBackend) Update(_ context.Context, id string, patch models.PlaylistPatch) error {
	playlists := b.store.LoadAll()
	i := indexOf(playlists, id)
	if i < 0 {
		return fmt.Errorf("playlist %s: %w", id, shared.ErrNotFound)
	}

	patch.Apply(&playlists[i])
	playlists[i].UpdatedAt = b.now().UTC()
	return b.store.SaveAll(playlists)
}

func (b *LocalBackend) Delete(_ context.Context, id string) error {
	playlists := b.store.LoadAll()
	i := indexOf(playlists, id)
	if i < 0 {
		return fmt.Errorf("playlist %s: %w", id, shared.ErrNotFound)
	}
	return b.store.SaveAll(append(playlists[:i], playlists[i+1:]...))
}

func (b *LocalBackend) Get(_ context.Context, id string) (models.Playlist, error) {
	playlists := b.store.LoadAll()
	i := indexOf(playlists, id)
	if i < 0 {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, shared.ErrNotFound)
	}
	return playlists[i], nil
}

func (b *LocalBackend) List(context.Context) ([]models.Playlist, error) {
	return b.store.LoadAll(), nil
}

// Subscribe delivers the current collection synchronously, then after every SaveAll.
// Local storage has no connection to lose, so onError is never called.
func (b *LocalBackend) Subscribe(_ context.Context, onChange func([]models.Playlist), _ func(error)) (func(), error) {
	cancel := b.store.Observe(onChange)
	onChange(b.store.LoadAll())
	return cancel, nil
}

func indexOf(playlists []models.Playlist, id string) int {
	for i, p := range playlists {
		if p.ID == id {
			return i
		}
	}
	return -1
}
