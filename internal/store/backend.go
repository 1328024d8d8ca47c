package store

import (
	"context"

	"github.com/desertthunder/tubetrack/internal/models"
)

// BackendKind names a [Backend] variant.
type BackendKind string

const (
	BackendLocal  BackendKind = "local"
	BackendRemote BackendKind = "remote"
)

// Backend is one place playlists can live.
type Backend interface {
	Kind() BackendKind
	// Owner is [models.GuestOwner] for the local backend.
	Owner() string
	Create(ctx context.Context, draft models.PlaylistDraft) (string, error)
	Update(ctx context.Context, id string, patch models.PlaylistPatch) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Playlist, error)
	List(ctx context.Context) ([]models.Playlist, error)
	// Subscribe delivers the full collection, newest first, on attach and after every change.
	// onError is called at most once, after which nothing more is delivered.
	// The returned func must be called exactly once to release the subscription.
	Subscribe(ctx context.Context, onChange func([]models.Playlist), onError func(error)) (func(), error)
}
