package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

var errConnectionLost = errors.New("change notifications stopped")

// newestFirst is the collection ordering for every read.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// RemoteStore is CRUD plus live subscription over per-owner playlist documents.
//
// Writes are scoped by ownerId as well as _id and never retried. Each successful
// write publishes "playlists:<owner>" so subscribers re-query.
type RemoteStore struct {
	coll     docstore.Collection
	notifier docstore.Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewRemoteStore creates a [RemoteStore].
func NewRemoteStore(coll docstore.Collection, notifier docstore.Notifier, logger *log.Logger) *RemoteStore {
	return &RemoteStore{coll: coll, notifier: notifier, logger: logger, now: time.Now}
}

// Topic returns the change topic for owner.
func Topic(owner string) string {
	return docstore.PlaylistTopicPrefix + owner
}

// Create inserts a new document owned by owner and returns its store-assigned id.
func (s *RemoteStore) Create(ctx context.Context, owner string, draft models.PlaylistDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	id := docstore.NewID()
	p := draft.Playlist(id, owner, s.now().UTC())
	if err := s.coll.Insert(ctx, p); err != nil {
		return "", &shared.RemoteWriteError{Op: "insert", Collection: s.coll.Name(), ID: id, Err: err}
	}

	s.publish(ctx, owner)
	return id, nil
}

// Update merges patch into the document and refreshes updatedAt.
func (s *RemoteStore) Update(ctx context.Context, owner, id string, patch models.PlaylistPatch) error {
	fields := patch.Fields()
	fields["updatedAt"] = s.now().UTC()

	if err := s.coll.Patch(ctx, bson.M{"_id": id, "ownerId": owner}, fields); err != nil {
		return &shared.RemoteWriteError{Op: "patch", Collection: s.coll.Name(), ID: id, Err: notFound(err)}
	}

	s.publish(ctx, owner)
	return nil
}

// Delete removes the document. Deleting a missing document fails with [shared.ErrNotFound].
func (s *RemoteStore) Delete(ctx context.Context, owner, id string) error {
	if err := s.coll.Remove(ctx, bson.M{"_id": id, "ownerId": owner}); err != nil {
		return &shared.RemoteWriteError{Op: "remove", Collection: s.coll.Name(), ID: id, Err: notFound(err)}
	}

	s.publish(ctx, owner)
	return nil
}

func (s *RemoteStore) Get(ctx context.Context, owner, id string) (models.Playlist, error) {
	var p models.Playlist
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "ownerId": owner}, &p)
	if errors.Is(err, docstore.ErrNoDocument) {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("%w: %v", shared.ErrRemoteRead, err)
	}
	return p, nil
}

// List returns owner's playlists, newest first.
func (s *RemoteStore) List(ctx context.Context, owner string) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	if err := s.coll.Find(ctx, bson.M{"ownerId": owner}, newestFirst, &playlists); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteRead, err)
	}
	return playlists, nil
}

// SubscribeToCollection streams owner's full collection: once on attach, then after every change.
//
// Snapshots are delivered in order from a single goroutine. When the notifier
// connection drops or a re-query fails, onError receives one
// [shared.SubscriptionError] and delivery stops; there is no reconnect.
// The initial query runs before returning, so attach failures are returned directly.
func (s *RemoteStore) SubscribeToCollection(ctx context.Context, owner string, onChange func([]models.Playlist), onError func(error)) (func(), error) {
	sub, err := s.notifier.Subscribe(ctx, Topic(owner))
	if err != nil {
		return nil, &shared.SubscriptionError{Owner: owner, Err: err}
	}

	initial, err := s.List(ctx, owner)
	if err != nil {
		sub.Close()
		return nil, &shared.SubscriptionError{Owner: owner, Err: err}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go s.deliver(runCtx, owner, sub, initial, onChange, onError)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := sub.Close(); err != nil {
				s.logger.Debug("closing subscription", "user", owner, "err", err)
			}
		})
	}, nil
}

func (s *RemoteStore) deliver(ctx context.Context, owner string, sub docstore.Subscription, initial []models.Playlist, onChange func([]models.Playlist), onError func(error)) {
	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		serr := &shared.SubscriptionError{Owner: owner, Err: err}
		s.logger.Error("playlist subscription stopped", "user", owner, "err", err)
		sub.Close()
		if onError != nil {
			onError(serr)
		}
	}

	onChange(initial)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				fail(errConnectionLost)
				return
			}
			playlists, err := s.List(ctx, owner)
			if err != nil {
				fail(err)
				return
			}
			if ctx.Err() != nil {
				return
			}
			onChange(playlists)
		}
	}
}

func (s *RemoteStore) publish(ctx context.Context, owner string) {
	if err := s.notifier.Publish(ctx, Topic(owner)); err != nil {
		s.logger.Warn("change notification not published", "user", owner, "err", err)
	}
}

// notFound maps the collection's no-match error onto [shared.ErrNotFound].
func notFound(err error) error {
	if errors.Is(err, docstore.ErrNoDocument) {
		return shared.ErrNotFound
	}
	return err
}

// RemoteBackend is the signed-in [Backend] for one owner.
type RemoteBackend struct {
	store *RemoteStore
	owner string
}

// NewRemoteBackend binds store to owner.
func NewRemoteBackend(store *RemoteStore, owner string) *RemoteBackend {
	return &RemoteBackend{store: store, owner: owner}
}

func (b *RemoteBackend) Kind() BackendKind { return BackendRemote }

func (b *RemoteBackend) Owner() string { return b.owner }

func (b *RemoteBackend) Create(ctx context.Context, draft models.PlaylistDraft) (string, error) {
	return b.store.Create(ctx, b.owner, draft)
}

func (b *RemoteBackend) Update(ctx context.Context, id string, patch models.PlaylistPatch) error {
	return b.store.Update(ctx, b.owner, id, patch)
}

func (b *RemoteBackend) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, b.owner, id)
}

func (b *RemoteBackend) Get(ctx context.Context, id string) (models.Playlist, error) {
	return b.store.Get(ctx, b.owner, id)
}

func (b *RemoteBackend) List(ctx context.Context) ([]models.Playlist, error) {
	return b.store.List(ctx, b.owner)
}

func (b *RemoteBackend) Subscribe(ctx context.Context, onChange func([]models.Playlist), onError func(error)) (func(), error) {
	return b.store.SubscribeToCollection(ctx, b.owner, onChange, onError)
}
