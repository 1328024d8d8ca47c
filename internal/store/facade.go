package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// State is what the facade exposes to the UI regardless of backend.
type State struct {
	Playlists []models.Playlist
	Loading   bool
	Err       error
	Backend   BackendKind
	Owner     string
}

// Facade is the single playlist API. It routes every call to the active [Backend].
//
// Operations and backend switches are serialized: a switch waits for in-flight
// operations and operations issued during a switch wait for it, then run
// against the new backend. Readers of [Facade.State] never block on either.
type Facade struct {
	logger *log.Logger

	opMu        sync.Mutex
	backend     Backend
	unsubscribe func()

	stateMu   sync.Mutex
	state     State
	gen       uint64
	listeners map[int]func(State)
	nextL     int

	// held is set while Transition runs; deliveries from the attached stream
	// are parked in pending instead of being published.
	held    bool
	pending *[]models.Playlist
}

// NewFacade creates a [Facade] with no backend; call [Facade.Use] before any operation.
func NewFacade(logger *log.Logger) *Facade {
	return &Facade{
		logger:    logger,
		listeners: make(map[int]func(State)),
		state:     State{Loading: true, Playlists: []models.Playlist{}},
	}
}

// Use switches to b and attaches its collection stream.
func (f *Facade) Use(ctx context.Context, b Backend) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	return f.attach(ctx, b)
}

// Transition runs fn with operations held, then switches to the backend it returns.
//
// While fn runs the current backend stays attached and State reports Loading;
// its snapshots are held back until the transition ends. If fn fails or returns
// nil, the current backend is kept and its newest snapshot is published with the error.
func (f *Facade) Transition(ctx context.Context, fn func(context.Context) (Backend, error)) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	f.stateMu.Lock()
	f.held = true
	f.pending = nil
	f.stateMu.Unlock()
	f.update(func(s *State) { s.Loading = true; s.Err = nil })

	next, err := fn(ctx)
	if err != nil || next == nil {
		f.update(func(s *State) {
			f.held = false
			if f.pending != nil {
				s.Playlists = *f.pending
				f.pending = nil
			}
			s.Loading = false
			s.Err = err
		})
		return err
	}
	return f.attach(ctx, next)
}

// attach must be called with opMu held.
func (f *Facade) attach(ctx context.Context, b Backend) error {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}

	f.stateMu.Lock()
	f.gen++
	gen := f.gen
	f.held = false
	f.pending = nil
	f.state = State{Loading: true, Playlists: []models.Playlist{}, Backend: b.Kind(), Owner: b.Owner()}
	f.stateMu.Unlock()
	f.backend = b
	f.notify()

	unsubscribe, err := b.Subscribe(ctx,
		func(playlists []models.Playlist) { f.deliver(gen, playlists) },
		func(err error) { f.fail(gen, err) },
	)
	if err != nil {
		f.logger.Error("collection stream not attached", "backend", b.Kind(), "user", b.Owner(), "err", err)
		f.fail(gen, err)
		return err
	}
	f.unsubscribe = unsubscribe
	f.logger.Debug("backend attached", "backend", b.Kind(), "user", b.Owner())
	return nil
}

// Close detaches the collection stream.
func (f *Facade) Close() {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
	f.stateMu.Lock()
	f.gen++
	f.stateMu.Unlock()
}

func (f *Facade) deliver(gen uint64, playlists []models.Playlist) {
	f.stateMu.Lock()
	if gen != f.gen {
		f.stateMu.Unlock()
		return
	}
	if f.held {
		f.pending = &playlists
		f.stateMu.Unlock()
		return
	}
	f.state.Playlists = playlists
	f.state.Loading = false
	f.state.Err = nil
	f.stateMu.Unlock()
	f.notify()
}

func (f *Facade) fail(gen uint64, err error) {
	f.stateMu.Lock()
	if gen != f.gen || f.held {
		f.stateMu.Unlock()
		return
	}
	f.state.Loading = false
	f.state.Err = err
	f.stateMu.Unlock()
	f.notify()
}

func (f *Facade) update(fn func(*State)) {
	f.stateMu.Lock()
	fn(&f.state)
	f.stateMu.Unlock()
	f.notify()
}

func (f *Facade) notify() {
	f.stateMu.Lock()
	snap := f.snapshot()
	listeners := make([]func(State), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.stateMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// snapshot must be called with stateMu held.
func (f *Facade) snapshot() State {
	s := f.state
	s.Playlists = clonePlaylists(f.state.Playlists)
	return s
}

// State returns a copy of the current state.
func (f *Facade) State() State {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	return f.snapshot()
}

// Subscribe registers fn for state changes and calls it once with the current state.
// Listeners run on the goroutine that caused the change and must not block.
func (f *Facade) Subscribe(fn func(State)) func() {
	f.stateMu.Lock()
	id := f.nextL
	f.nextL++
	f.listeners[id] = fn
	snap := f.snapshot()
	f.stateMu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.stateMu.Lock()
			delete(f.listeners, id)
			f.stateMu.Unlock()
		})
	}
}

// Backend reports the active backend kind and owner.
func (f *Facade) Backend() (BackendKind, string) {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	return f.state.Backend, f.state.Owner
}

func (f *Facade) active() (Backend, error) {
	if f.backend == nil {
		return nil, fmt.Errorf("no storage backend attached")
	}
	return f.backend, nil
}

// CreatePlaylist stores a new playlist and returns its id.
func (f *Facade) CreatePlaylist(ctx context.Context, draft models.PlaylistDraft) (string, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	b, err := f.active()
	if err != nil {
		return "", err
	}
	return b.Create(ctx, draft)
}

// UpdatePlaylist applies patch. Derived totals are not re-validated.
func (f *Facade) UpdatePlaylist(ctx context.Context, id string, patch models.PlaylistPatch) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	b, err := f.active()
	if err != nil {
		return err
	}
	return b.Update(ctx, id, patch)
}

// DeletePlaylist removes a playlist. Deleting one that is already gone succeeds.
func (f *Facade) DeletePlaylist(ctx context.Context, id string) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	return f.deleteLocked(ctx, id)
}

func (f *Facade) deleteLocked(ctx context.Context, id string) error {
	b, err := f.active()
	if err != nil {
		return err
	}
	if err := b.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			f.logger.Debug("playlist already deleted", "playlist", id, "backend", b.Kind())
			return nil
		}
		return err
	}
	return nil
}

// DeletePlaylists deletes ids in order, stopping at the first failure.
func (f *Facade) DeletePlaylists(ctx context.Context, ids ...string) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	for _, id := range ids {
		if err := f.deleteLocked(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// GetPlaylist reads one playlist from the active backend.
func (f *Facade) GetPlaylist(ctx context.Context, id string) (models.Playlist, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	b, err := f.active()
	if err != nil {
		return models.Playlist{}, err
	}
	return b.Get(ctx, id)
}

// ListPlaylists reads the whole collection from the active backend, newest first.
func (f *Facade) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	b, err := f.active()
	if err != nil {
		return nil, err
	}
	return b.List(ctx)
}

// ToggleVideoCompletion sets one video's completion flag and writes the whole video list back.
// Only completedDuration moves with it.
func (f *Facade) ToggleVideoCompletion(ctx context.Context, playlistID, videoID string, completed bool) error {
	return f.modifyVideos(ctx, playlistID, models.CompletionPatch, func(p *models.Playlist) error {
		i := p.VideoIndex(videoID)
		if i < 0 {
			return fmt.Errorf("video %s in playlist %s: %w", videoID, playlistID, shared.ErrVideoNotFound)
		}
		p.Videos[i].Completed = completed
		return nil
	})
}

// UpdateVideoDetails edits one video's title, duration or link and recomputes the totals.
func (f *Facade) UpdateVideoDetails(ctx context.Context, playlistID, videoID string, patch models.VideoPatch) error {
	recompute := func(_, after models.Playlist) models.PlaylistPatch { return models.VideosPatch(after) }
	return f.modifyVideos(ctx, playlistID, recompute, func(p *models.Playlist) error {
		i := p.VideoIndex(videoID)
		if i < 0 {
			return fmt.Errorf("video %s in playlist %s: %w", videoID, playlistID, shared.ErrVideoNotFound)
		}
		patch.Apply(&p.Videos[i])
		return nil
	})
}

// SetPlaylistCompletion marks every video of a playlist completed or not.
func (f *Facade) SetPlaylistCompletion(ctx context.Context, playlistID string, completed bool) error {
	return f.modifyVideos(ctx, playlistID, models.CompletionPatch, func(p *models.Playlist) error {
		for i := range p.Videos {
			p.Videos[i].Completed = completed
		}
		return nil
	})
}

func (f *Facade) modifyVideos(ctx context.Context, playlistID string, diff func(before, after models.Playlist) models.PlaylistPatch, fn func(*models.Playlist) error) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	b, err := f.active()
	if err != nil {
		return err
	}

	before, err := b.Get(ctx, playlistID)
	if err != nil {
		return err
	}
	p := before.Clone()
	if err := fn(&p); err != nil {
		return err
	}
	return b.Update(ctx, playlistID, diff(before, p))
}
