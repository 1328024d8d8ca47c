package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
	tu "github.com/desertthunder/tubetrack/internal/testing"
)

// snapshots collects deliveries from a subscription.
type snapshots struct {
	mu   sync.Mutex
	got  [][]models.Playlist
	errs []error
}

func (s *snapshots) onChange(p []models.Playlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, p)
}

func (s *snapshots) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *snapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *snapshots) last() []models.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return nil
	}
	return s.got[len(s.got)-1]
}

func (s *snapshots) errCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func draft(name string, n int) models.PlaylistDraft {
	return models.NewDraft(name, "", "", tu.SampleVideos(n))
}

func TestLocalStore(t *testing.T) {
	t.Run("LoadAll on empty store", func(t *testing.T) {
		s := NewLocalStore(tu.NewTestKV(t), tu.NewTestLogger(t))
		assert.Equal(t, []models.Playlist{}, s.LoadAll())
	})

	t.Run("malformed data reads as empty", func(t *testing.T) {
		store := tu.NewTestKV(t)
		require.NoError(t, store.Set(kv.KeyLocalPlaylists, "{not json"))

		s := NewLocalStore(store, tu.NewTestLogger(t))
		assert.Empty(t, s.LoadAll())

		raw, _, err := store.Get(kv.KeyLocalPlaylists)
		require.NoError(t, err)
		assert.Equal(t, "{not json", raw, "reading never rewrites stored data")
	})

	t.Run("SaveAll notifies observers until cancelled", func(t *testing.T) {
		s := NewLocalStore(tu.NewTestKV(t), tu.NewTestLogger(t))
		var seen snapshots
		cancel := s.Observe(seen.onChange)

		require.NoError(t, s.SaveAll([]models.Playlist{{ID: "l1", Name: "Course"}}))
		require.Equal(t, 1, seen.count())
		assert.Equal(t, "l1", seen.last()[0].ID)

		cancel()
		cancel()
		require.NoError(t, s.SaveAll(nil))
		assert.Equal(t, 1, seen.count())
		assert.Equal(t, 0, s.Count())
	})
}

func TestLocalBackend(t *testing.T) {
	ctx := context.Background()
	newBackend := func(t *testing.T) *LocalBackend {
		return NewLocalBackend(NewLocalStore(tu.NewTestKV(t), tu.NewTestLogger(t)))
	}

	t.Run("Create keeps newest first", func(t *testing.T) {
		b := newBackend(t)
		first, err := b.Create(ctx, draft("first", 1))
		require.NoError(t, err)
		second, err := b.Create(ctx, draft("second", 2))
		require.NoError(t, err)

		list, err := b.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second, list[0].ID)
		assert.Equal(t, first, list[1].ID)
		assert.Equal(t, models.GuestOwner, list[0].OwnerID)
		assert.Equal(t, 2, list[0].TotalVideos)
		assert.Equal(t, 180, list[0].TotalDuration)
	})

	t.Run("Create validates", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Create(ctx, models.NewDraft("", "", "", nil))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Update and Delete missing", func(t *testing.T) {
		b := newBackend(t)
		name := "x"
		assert.ErrorIs(t, b.Update(ctx, "nope", models.PlaylistPatch{Name: &name}), shared.ErrNotFound)
		assert.ErrorIs(t, b.Delete(ctx, "nope"), shared.ErrNotFound)
		_, err := b.Get(ctx, "nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Subscribe delivers initial and subsequent snapshots", func(t *testing.T) {
		b := newBackend(t)
		var seen snapshots
		cancel, err := b.Subscribe(ctx, seen.onChange, seen.onError)
		require.NoError(t, err)
		defer cancel()

		require.Equal(t, 1, seen.count())
		assert.Empty(t, seen.last())

		_, err = b.Create(ctx, draft("Course", 1))
		require.NoError(t, err)
		assert.Equal(t, 2, seen.count())
		assert.Len(t, seen.last(), 1)
	})
}

func newRemote(t *testing.T) (*RemoteStore, *tu.RecordingCollection, *docstore.MemoryNotifier) {
	coll := tu.NewRecordingCollection(nil)
	notifier := docstore.NewMemoryNotifier()
	return NewRemoteStore(coll, notifier, tu.NewTestLogger(t)), coll, notifier
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("CRUD scoped by owner", func(t *testing.T) {
		rs, _, _ := newRemote(t)
		id, err := rs.Create(ctx, "u1", draft("Course", 2))
		require.NoError(t, err)

		p, err := rs.Get(ctx, "u1", id)
		require.NoError(t, err)
		assert.Equal(t, "u1", p.OwnerID)
		assert.Equal(t, 2, p.TotalVideos)
		assert.False(t, p.CreatedAt.IsZero())

		_, err = rs.Get(ctx, "u2", id)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		name := "Renamed"
		err = rs.Update(ctx, "u2", id, models.PlaylistPatch{Name: &name})
		var rwe *shared.RemoteWriteError
		require.ErrorAs(t, err, &rwe)
		assert.Equal(t, "patch", rwe.Op)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, err, shared.ErrRemoteWrite)

		rs.now = func() time.Time { return p.CreatedAt.Add(time.Minute) }
		require.NoError(t, rs.Update(ctx, "u1", id, models.PlaylistPatch{Name: &name}))
		p, err = rs.Get(ctx, "u1", id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", p.Name)
		assert.True(t, p.UpdatedAt.After(p.CreatedAt))

		require.NoError(t, rs.Delete(ctx, "u1", id))
		err = rs.Delete(ctx, "u1", id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("insert failure is a RemoteWriteError", func(t *testing.T) {
		rs, coll, _ := newRemote(t)
		coll.FailInsertAt(1)
		_, err := rs.Create(ctx, "u1", draft("Course", 1))
		var rwe *shared.RemoteWriteError
		require.ErrorAs(t, err, &rwe)
		assert.Equal(t, "insert", rwe.Op)
		assert.ErrorIs(t, err, tu.ErrInjected)
	})

	t.Run("List is newest first", func(t *testing.T) {
		rs, _, _ := newRemote(t)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		tick := 0
		rs.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Hour) }

		a, _ := rs.Create(ctx, "u1", draft("a", 1))
		b, _ := rs.Create(ctx, "u1", draft("b", 1))
		_, _ = rs.Create(ctx, "u2", draft("other", 1))

		list, err := rs.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, b, list[0].ID)
		assert.Equal(t, a, list[1].ID)
	})

	t.Run("subscription streams full snapshots", func(t *testing.T) {
		rs, _, notifier := newRemote(t)
		var seen snapshots
		unsubscribe, err := rs.SubscribeToCollection(ctx, "u1", seen.onChange, seen.onError)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return seen.count() == 1 }, time.Second, 5*time.Millisecond)
		assert.Empty(t, seen.last())

		_, err = rs.Create(ctx, "u1", draft("Course", 1))
		require.NoError(t, err)
		require.Eventually(t, func() bool { return len(seen.last()) == 1 }, time.Second, 5*time.Millisecond)

		unsubscribe()
		unsubscribe()
		assert.Equal(t, 0, notifier.Subscribers(Topic("u1")))
		assert.Zero(t, seen.errCount())
	})

	t.Run("connection loss reports one error then stops", func(t *testing.T) {
		rs, _, notifier := newRemote(t)
		var seen snapshots
		unsubscribe, err := rs.SubscribeToCollection(ctx, "u1", seen.onChange, seen.onError)
		require.NoError(t, err)
		defer unsubscribe()
		require.Eventually(t, func() bool { return seen.count() == 1 }, time.Second, 5*time.Millisecond)

		notifier.Disconnect(Topic("u1"))
		require.Eventually(t, func() bool { return seen.errCount() == 1 }, time.Second, 5*time.Millisecond)
		assert.ErrorIs(t, seen.errs[0], shared.ErrSubscription)

		_, err = rs.Create(ctx, "u1", draft("Course", 1))
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 1, seen.count())
		assert.Equal(t, 1, seen.errCount())
	})

	t.Run("re-query failure reports a SubscriptionError", func(t *testing.T) {
		rs, coll, _ := newRemote(t)
		var seen snapshots
		unsubscribe, err := rs.SubscribeToCollection(ctx, "u1", seen.onChange, seen.onError)
		require.NoError(t, err)
		defer unsubscribe()

		coll.FailOp("find", errors.New("permission denied"))
		_, err = rs.Create(ctx, "u1", draft("Course", 1))
		require.NoError(t, err)

		require.Eventually(t, func() bool { return seen.errCount() == 1 }, time.Second, 5*time.Millisecond)
		var serr *shared.SubscriptionError
		require.ErrorAs(t, seen.errs[0], &serr)
		assert.Equal(t, "u1", serr.Owner)
	})

	t.Run("attach failure is returned", func(t *testing.T) {
		rs, coll, notifier := newRemote(t)
		coll.FailOp("find", errors.New("offline"))
		_, err := rs.SubscribeToCollection(ctx, "u1", func([]models.Playlist) {}, nil)
		assert.ErrorIs(t, err, shared.ErrSubscription)
		assert.Equal(t, 0, notifier.Subscribers(Topic("u1")))
	})
}

func TestFacade(t *testing.T) {
	ctx := context.Background()

	type fixture struct {
		facade *Facade
		local  *LocalBackend
		remote *RemoteStore
		coll   *tu.RecordingCollection
	}
	setup := func(t *testing.T) fixture {
		local := NewLocalBackend(NewLocalStore(tu.NewTestKV(t), tu.NewTestLogger(t)))
		remote, coll, _ := newRemote(t)
		f := NewFacade(tu.NewTestLogger(t))
		t.Cleanup(f.Close)
		require.NoError(t, f.Use(ctx, local))
		return fixture{facade: f, local: local, remote: remote, coll: coll}
	}

	t.Run("no backend", func(t *testing.T) {
		f := NewFacade(tu.NewTestLogger(t))
		_, err := f.CreatePlaylist(ctx, draft("x", 1))
		assert.Error(t, err)
		assert.True(t, f.State().Loading)
	})

	t.Run("routes to local then remote", func(t *testing.T) {
		fx := setup(t)

		_, err := fx.facade.CreatePlaylist(ctx, draft("guest", 1))
		require.NoError(t, err)
		assert.Zero(t, fx.coll.Total(), "remote adapter must not be touched while local")

		state := fx.facade.State()
		assert.Equal(t, BackendLocal, state.Backend)
		assert.False(t, state.Loading)
		assert.Len(t, state.Playlists, 1)

		require.NoError(t, fx.facade.Use(ctx, NewRemoteBackend(fx.remote, "u1")))
		localBefore, _ := fx.local.List(ctx)

		_, err = fx.facade.CreatePlaylist(ctx, draft("remote", 1))
		require.NoError(t, err)
		assert.Equal(t, 1, fx.coll.Calls("insert"))

		localAfter, _ := fx.local.List(ctx)
		assert.Equal(t, localBefore, localAfter, "local adapter must not be touched while remote")

		require.Eventually(t, func() bool {
			s := fx.facade.State()
			return s.Backend == BackendRemote && len(s.Playlists) == 1 && s.Playlists[0].Name == "remote"
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("toggle round trip", func(t *testing.T) {
		for _, remote := range []bool{false, true} {
			fx := setup(t)
			if remote {
				require.NoError(t, fx.facade.Use(ctx, NewRemoteBackend(fx.remote, "u1")))
			}

			d := draft("Course", 3)
			d.Videos[1].Completed = true
			d = models.NewDraft(d.Name, "", "", d.Videos)
			id, err := fx.facade.CreatePlaylist(ctx, d)
			require.NoError(t, err)
			before, err := fx.facade.GetPlaylist(ctx, id)
			require.NoError(t, err)

			require.NoError(t, fx.facade.ToggleVideoCompletion(ctx, id, "v1", true))
			mid, err := fx.facade.GetPlaylist(ctx, id)
			require.NoError(t, err)
			assert.True(t, mid.Videos[0].Completed)
			assert.Equal(t, 180, mid.CompletedDuration)

			require.NoError(t, fx.facade.ToggleVideoCompletion(ctx, id, "v1", false))
			after, err := fx.facade.GetPlaylist(ctx, id)
			require.NoError(t, err)

			assert.Equal(t, before.Videos, after.Videos)
			assert.Equal(t, before.TotalDuration, after.TotalDuration)
			assert.Equal(t, before.TotalVideos, after.TotalVideos)
			assert.Equal(t, before.CompletedDuration, after.CompletedDuration)
		}
	})

	t.Run("toggle round trip keeps stale totals", func(t *testing.T) {
		for _, remote := range []bool{false, true} {
			fx := setup(t)
			if remote {
				require.NoError(t, fx.facade.Use(ctx, NewRemoteBackend(fx.remote, "u1")))
			}

			d := draft("Imported", 3)
			d.TotalDuration = 5000
			d.TotalVideos = 40
			d.CompletedDuration = 12
			id, err := fx.facade.CreatePlaylist(ctx, d)
			require.NoError(t, err)
			before, err := fx.facade.GetPlaylist(ctx, id)
			require.NoError(t, err)

			require.NoError(t, fx.facade.ToggleVideoCompletion(ctx, id, "v2", true))
			mid, err := fx.facade.GetPlaylist(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 5000, mid.TotalDuration)
			assert.Equal(t, 40, mid.TotalVideos)
			assert.Equal(t, 12+120, mid.CompletedDuration)

			require.NoError(t, fx.facade.ToggleVideoCompletion(ctx, id, "v2", false))
			after, err := fx.facade.GetPlaylist(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before.Videos, after.Videos)
			assert.Equal(t, before.TotalDuration, after.TotalDuration)
			assert.Equal(t, before.TotalVideos, after.TotalVideos)
			assert.Equal(t, before.CompletedDuration, after.CompletedDuration)
		}
	})

	t.Run("toggle unknown video", func(t *testing.T) {
		fx := setup(t)
		id, err := fx.facade.CreatePlaylist(ctx, draft("Course", 1))
		require.NoError(t, err)
		assert.ErrorIs(t, fx.facade.ToggleVideoCompletion(ctx, id, "nope", true), shared.ErrVideoNotFound)
		assert.ErrorIs(t, fx.facade.ToggleVideoCompletion(ctx, "nope", "v1", true), shared.ErrNotFound)
	})

	t.Run("delete swallows not found", func(t *testing.T) {
		fx := setup(t)
		require.NoError(t, fx.facade.Use(ctx, NewRemoteBackend(fx.remote, "u1")))
		id, err := fx.facade.CreatePlaylist(ctx, draft("Course", 1))
		require.NoError(t, err)

		require.NoError(t, fx.facade.DeletePlaylist(ctx, id))
		require.NoError(t, fx.facade.DeletePlaylist(ctx, id))
	})

	t.Run("remote write errors propagate unchanged", func(t *testing.T) {
		fx := setup(t)
		require.NoError(t, fx.facade.Use(ctx, NewRemoteBackend(fx.remote, "u1")))
		fx.coll.FailOp("remove", errors.New("permission denied"))

		err := fx.facade.DeletePlaylist(ctx, "any")
		var rwe *shared.RemoteWriteError
		assert.ErrorAs(t, err, &rwe)
	})

	t.Run("bulk operations", func(t *testing.T) {
		fx := setup(t)
		a, _ := fx.facade.CreatePlaylist(ctx, draft("a", 2))
		b, _ := fx.facade.CreatePlaylist(ctx, draft("b", 2))

		require.NoError(t, fx.facade.SetPlaylistCompletion(ctx, a, true))
		p, _ := fx.facade.GetPlaylist(ctx, a)
		assert.True(t, p.IsComplete())
		assert.Equal(t, p.TotalDuration, p.CompletedDuration)

		title := "Renamed video"
		require.NoError(t, fx.facade.UpdateVideoDetails(ctx, b, "v2", models.VideoPatch{Title: &title}))
		p, _ = fx.facade.GetPlaylist(ctx, b)
		assert.Equal(t, "Renamed video", p.Videos[1].Title)

		require.NoError(t, fx.facade.DeletePlaylists(ctx, a, "missing", b))
		list, _ := fx.facade.ListPlaylists(ctx)
		assert.Empty(t, list)
	})

	t.Run("transition holds operations and keeps backend on failure", func(t *testing.T) {
		fx := setup(t)
		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)

		go func() {
			done <- fx.facade.Transition(ctx, func(context.Context) (Backend, error) {
				close(started)
				<-release
				return nil, shared.ErrMigrationPartial
			})
		}()
		<-started
		assert.True(t, fx.facade.State().Loading)

		created := make(chan error, 1)
		go func() {
			_, err := fx.facade.CreatePlaylist(ctx, draft("queued", 1))
			created <- err
		}()

		select {
		case <-created:
			t.Fatal("operation ran during transition")
		case <-time.After(20 * time.Millisecond):
		}

		close(release)
		assert.ErrorIs(t, <-done, shared.ErrMigrationPartial)
		require.NoError(t, <-created)

		state := fx.facade.State()
		assert.Equal(t, BackendLocal, state.Backend)
		assert.False(t, state.Loading)
		assert.Len(t, state.Playlists, 1)
		assert.Zero(t, fx.coll.Total())
	})

	t.Run("transition switches to returned backend", func(t *testing.T) {
		fx := setup(t)
		err := fx.facade.Transition(ctx, func(context.Context) (Backend, error) {
			return NewRemoteBackend(fx.remote, "u1"), nil
		})
		require.NoError(t, err)
		kind, owner := fx.facade.Backend()
		assert.Equal(t, BackendRemote, kind)
		assert.Equal(t, "u1", owner)
	})

	t.Run("transition hides local writes made while it runs", func(t *testing.T) {
		fx := setup(t)
		_, err := fx.facade.CreatePlaylist(ctx, draft("a", 1))
		require.NoError(t, err)
		_, err = fx.facade.CreatePlaylist(ctx, draft("b", 1))
		require.NoError(t, err)

		var mu sync.Mutex
		var states []State
		cancel := fx.facade.Subscribe(func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		})
		defer cancel()

		err = fx.facade.Transition(ctx, func(context.Context) (Backend, error) {
			if err := fx.local.store.SaveAll(nil); err != nil {
				return nil, err
			}
			return NewRemoteBackend(fx.remote, "u1"), nil
		})
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		for i, s := range states[1:] {
			if s.Backend == BackendLocal {
				assert.True(t, s.Loading, "state %d published local %d playlists outside loading", i+1, len(s.Playlists))
				assert.Len(t, s.Playlists, 2)
			}
		}
	})

	t.Run("failed transition publishes the newest held snapshot", func(t *testing.T) {
		fx := setup(t)
		_, err := fx.facade.CreatePlaylist(ctx, draft("a", 1))
		require.NoError(t, err)

		err = fx.facade.Transition(ctx, func(ctx context.Context) (Backend, error) {
			if _, err := fx.local.Create(ctx, draft("b", 1)); err != nil {
				return nil, err
			}
			assert.Len(t, fx.facade.State().Playlists, 1)
			return nil, shared.ErrMigrationPartial
		})
		assert.ErrorIs(t, err, shared.ErrMigrationPartial)

		state := fx.facade.State()
		assert.Equal(t, BackendLocal, state.Backend)
		assert.False(t, state.Loading)
		assert.ErrorIs(t, state.Err, shared.ErrMigrationPartial)
		assert.Len(t, state.Playlists, 2)
	})

	t.Run("listeners see updates and stale deliveries are ignored", func(t *testing.T) {
		fx := setup(t)
		var mu sync.Mutex
		var states []State
		cancel := fx.facade.Subscribe(func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		})
		defer cancel()

		_, err := fx.facade.CreatePlaylist(ctx, draft("a", 1))
		require.NoError(t, err)

		require.NoError(t, fx.facade.Use(ctx, NewRemoteBackend(fx.remote, "u1")))
		require.Eventually(t, func() bool {
			s := fx.facade.State()
			return s.Backend == BackendRemote && !s.Loading
		}, time.Second, 5*time.Millisecond)

		// a write to the detached local store must not leak into the remote view
		_, err = fx.local.Create(ctx, draft("late", 1))
		require.NoError(t, err)
		assert.Empty(t, fx.facade.State().Playlists)

		mu.Lock()
		defer mu.Unlock()
		assert.GreaterOrEqual(t, len(states), 3)
	})

	t.Run("subscription error surfaces in state", func(t *testing.T) {
		local := NewLocalBackend(NewLocalStore(tu.NewTestKV(t), tu.NewTestLogger(t)))
		coll := tu.NewRecordingCollection(nil)
		notifier := docstore.NewMemoryNotifier()
		remote := NewRemoteStore(coll, notifier, tu.NewTestLogger(t))
		f := NewFacade(tu.NewTestLogger(t))
		defer f.Close()
		require.NoError(t, f.Use(ctx, local))
		require.NoError(t, f.Use(ctx, NewRemoteBackend(remote, "u1")))

		notifier.Disconnect(Topic("u1"))
		require.Eventually(t, func() bool {
			return errors.Is(f.State().Err, shared.ErrSubscription)
		}, time.Second, 5*time.Millisecond)
	})
}
