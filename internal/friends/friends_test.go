package friends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/profiles"
	"github.com/desertthunder/tubetrack/internal/shared"
	tu "github.com/desertthunder/tubetrack/internal/testing"
)

type fixture struct {
	svc      *Service
	profiles *profiles.Service
	requests *tu.RecordingCollection
	users    map[string]models.UserProfile
}

func newFixture(t *testing.T, names ...string) fixture {
	t.Helper()
	ctx := context.Background()
	logger := tu.NewTestLogger(t)
	ps := profiles.NewService(docstore.NewMemoryCollection("userProfiles"), logger)
	requests := tu.NewRecordingCollection(docstore.NewMemoryCollection("friendRequests"))

	fx := fixture{
		svc:      NewService(requests, ps, logger),
		profiles: ps,
		requests: requests,
		users:    map[string]models.UserProfile{},
	}
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	fx.svc.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	for _, name := range names {
		p, err := ps.EnsureProfile(ctx, models.Identity{UserID: "u-" + name, Email: name + "@example.com", DisplayName: name})
		require.NoError(t, err)
		fx.users[name] = p
	}
	return fx
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending request", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob")
		req, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
		require.NoError(t, err)

		assert.Equal(t, "u-alice", req.FromUID)
		assert.Equal(t, fx.users["alice"].Username, req.FromUsername)
		assert.Equal(t, "alice", req.FromName)
		assert.Equal(t, "u-bob", req.ToUID)
		assert.Equal(t, models.FriendRequestPending, req.Status)

		incoming, err := fx.svc.Incoming(ctx, "u-bob")
		require.NoError(t, err)
		require.Len(t, incoming, 1)
		assert.Equal(t, req.ID, incoming[0].ID)

		outgoing, err := fx.svc.Outgoing(ctx, "u-alice")
		require.NoError(t, err)
		assert.Len(t, outgoing, 1)
	})

	t.Run("username lookup ignores case and leading at", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob")
		_, err := fx.svc.Send(ctx, "u-alice", "@"+fx.users["bob"].Username)
		require.NoError(t, err)
	})

	t.Run("rejects", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob")
		_, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
		require.NoError(t, err)

		tests := []struct {
			name string
			from string
			to   string
			want error
		}{
			{"self", "u-alice", fx.users["alice"].Username, shared.ErrInvalidArgument},
			{"duplicate", "u-alice", fx.users["bob"].Username, shared.ErrAlreadyExists},
			{"reverse pending", "u-bob", fx.users["alice"].Username, shared.ErrAlreadyExists},
			{"unknown user", "u-alice", "nobody000", shared.ErrNotFound},
			{"unknown sender", "u-ghost", fx.users["bob"].Username, shared.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := fx.svc.Send(ctx, tt.from, tt.to)
				assert.ErrorIs(t, err, tt.want)
			})
		}
		assert.Equal(t, 1, fx.requests.Calls("insert"))
	})

	t.Run("already friends", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob")
		req, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
		require.NoError(t, err)
		require.NoError(t, fx.svc.Accept(ctx, "u-bob", req.ID))

		_, err = fx.svc.Send(ctx, "u-bob", fx.users["alice"].Username)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("adds both sides and removes request", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob")
		req, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
		require.NoError(t, err)

		require.NoError(t, fx.svc.Accept(ctx, "u-bob", req.ID))

		alice, err := fx.profiles.Get(ctx, "u-alice")
		require.NoError(t, err)
		bob, err := fx.profiles.Get(ctx, "u-bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"u-bob"}, alice.Friends)
		assert.Equal(t, []string{"u-alice"}, bob.Friends)

		incoming, err := fx.svc.Incoming(ctx, "u-bob")
		require.NoError(t, err)
		assert.Empty(t, incoming)

		friends, err := fx.svc.Friends(ctx, "u-alice")
		require.NoError(t, err)
		require.Len(t, friends, 1)
		assert.Equal(t, "u-bob", friends[0].UID)
	})

	t.Run("only the recipient may accept", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob", "carol")
		req, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
		require.NoError(t, err)

		assert.ErrorIs(t, fx.svc.Accept(ctx, "u-alice", req.ID), shared.ErrPermissionDenied)
		assert.ErrorIs(t, fx.svc.Accept(ctx, "u-carol", req.ID), shared.ErrPermissionDenied)
		assert.ErrorIs(t, fx.svc.Accept(ctx, "u-bob", "missing"), shared.ErrNotFound)
	})

	t.Run("failed removal can be accepted again", func(t *testing.T) {
		fx := newFixture(t, "alice", "bob")
		req, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
		require.NoError(t, err)

		fx.requests.FailOp("remove", tu.ErrInjected)
		assert.ErrorIs(t, fx.svc.Accept(ctx, "u-bob", req.ID), shared.ErrRemoteWrite)
		fx.requests.FailOp("remove", nil)

		require.NoError(t, fx.svc.Accept(ctx, "u-bob", req.ID))
		alice, err := fx.profiles.Get(ctx, "u-alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"u-bob"}, alice.Friends)
	})
}

func TestDeclineAndRemove(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, "alice", "bob", "carol")

	req, err := fx.svc.Send(ctx, "u-alice", fx.users["bob"].Username)
	require.NoError(t, err)
	assert.ErrorIs(t, fx.svc.Decline(ctx, "u-carol", req.ID), shared.ErrPermissionDenied)

	// the sender cancels
	require.NoError(t, fx.svc.Decline(ctx, "u-alice", req.ID))
	assert.ErrorIs(t, fx.svc.Decline(ctx, "u-bob", req.ID), shared.ErrNotFound)

	req, err = fx.svc.Send(ctx, "u-carol", fx.users["bob"].Username)
	require.NoError(t, err)
	require.NoError(t, fx.svc.Accept(ctx, "u-bob", req.ID))

	require.NoError(t, fx.svc.Remove(ctx, "u-bob", "u-carol"))
	bob, err := fx.profiles.Get(ctx, "u-bob")
	require.NoError(t, err)
	carol, err := fx.profiles.Get(ctx, "u-carol")
	require.NoError(t, err)
	assert.Empty(t, bob.Friends)
	assert.Empty(t, carol.Friends)

	friends, err := fx.svc.Friends(ctx, "u-bob")
	require.NoError(t, err)
	assert.Empty(t, friends)
}
