// Package session ties sign-in state to playlist storage.
//
// A [Controller] watches an [auth.Provider]. When a user signs in it ensures
// the profile, runs the one-time migration, and moves the facade onto the
// user's remote collection once the marker is completed. On sign-out it
// clears the migration state and moves the facade back to local storage.
package session

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetrack/internal/auth"
	"github.com/desertthunder/tubetrack/internal/migration"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/profiles"
	"github.com/desertthunder/tubetrack/internal/shared"
	"github.com/desertthunder/tubetrack/internal/store"
)

// Deps are the components a [Controller] drives.
type Deps struct {
	Provider    auth.Provider
	Facade      *store.Facade
	Local       *store.LocalStore
	Remote      *store.RemoteStore
	Coordinator *migration.Coordinator
	Profiles    *profiles.Service // optional
	// Progress receives migration updates; optional.
	Progress chan<- migration.ProgressUpdate
}

// Controller switches storage on sign-in and sign-out.
type Controller struct {
	deps   Deps
	logger *log.Logger

	mu        sync.Mutex // serializes evaluations
	ctx       context.Context
	started   bool
	user      string
	lastErr   error
	unwatch   func()
	unlisten  func()
	stats     chan []models.Playlist
	quit      chan struct{}
	statsDone chan struct{}
	closeOnce sync.Once
}

// NewController creates a [Controller]. Nothing happens until [Controller.Start].
func NewController(deps Deps, logger *log.Logger) *Controller {
	return &Controller{deps: deps, logger: logger}
}

// Start attaches local storage, evaluates the current sign-in state and
// follows later changes. An error from the first evaluation is returned and
// also kept in [Controller.LastError]; the controller keeps running.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.deps.Facade.Use(ctx, store.NewLocalBackend(c.deps.Local)); err != nil {
		return err
	}

	if c.deps.Profiles != nil {
		c.stats = make(chan []models.Playlist, 1)
		c.quit = make(chan struct{})
		c.statsDone = make(chan struct{})
		go c.syncStats()
		c.unlisten = c.deps.Facade.Subscribe(c.onState)
	}

	err := c.Evaluate(c.deps.Provider.Current())
	c.unwatch = c.deps.Provider.Watch(func(s auth.State) { _ = c.Evaluate(s) })
	return err
}

// Evaluate reacts to s. Repeating the state that was last evaluated does nothing.
func (c *Controller) Evaluate(s auth.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || s.IsLoading || s.UserID == c.user {
		return nil
	}

	prev := c.user
	c.user = s.UserID
	ctx := c.ctx

	if prev != "" {
		if err := c.signedOut(ctx, prev); err != nil {
			c.lastErr = err
			return err
		}
	}
	if s.UserID == "" {
		c.lastErr = nil
		return nil
	}

	err := c.signedIn(ctx, s.UserID)
	c.lastErr = err
	return err
}

func (c *Controller) signedOut(ctx context.Context, userID string) error {
	if err := c.deps.Coordinator.SignOut(userID); err != nil {
		c.logger.Error("failed to clear migration state", "user", userID, "err", err)
	}
	c.logger.Info("switching to local storage", "user", userID)
	return c.deps.Facade.Use(ctx, store.NewLocalBackend(c.deps.Local))
}

func (c *Controller) signedIn(ctx context.Context, userID string) error {
	if c.deps.Profiles != nil {
		if id, ok := c.deps.Provider.Identity(); ok && id.UserID == userID {
			if _, err := c.deps.Profiles.EnsureProfile(ctx, id); err != nil {
				c.logger.Warn("profile not updated", "user", userID, "err", err)
			}
		}
	}

	return c.transition(ctx, userID, func(ctx context.Context) (migration.Result, error) {
		return c.deps.Coordinator.Migrate(ctx, userID, c.deps.Progress)
	})
}

// Retry evaluates the signed-in user's migration again, ignoring a failure
// remembered from earlier in this session.
func (c *Controller) Retry(ctx context.Context) (migration.Result, error) {
	return c.rerun(ctx, c.deps.Coordinator.Retry)
}

// Recover runs the explicit recovery for an interrupted migration of the signed-in user.
func (c *Controller) Recover(ctx context.Context) (migration.Result, error) {
	return c.rerun(ctx, c.deps.Coordinator.Recover)
}

func (c *Controller) rerun(ctx context.Context, fn func(context.Context, string, chan<- migration.ProgressUpdate) (migration.Result, error)) (migration.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == "" {
		return migration.Result{}, shared.ErrNotAuthenticated
	}
	if kind, owner := c.deps.Facade.Backend(); kind == store.BackendRemote && owner == c.user {
		return migration.Result{UserID: c.user, Outcome: migration.OutcomeAlreadyCompleted}, nil
	}

	var result migration.Result
	userID := c.user
	err := c.transition(ctx, userID, func(ctx context.Context) (migration.Result, error) {
		var err error
		result, err = fn(ctx, userID, c.deps.Progress)
		return result, err
	})
	c.lastErr = err
	return result, err
}

func (c *Controller) transition(ctx context.Context, userID string, run func(context.Context) (migration.Result, error)) error {
	return c.deps.Facade.Transition(ctx, func(ctx context.Context) (store.Backend, error) {
		result, err := run(ctx)
		if err != nil {
			return nil, err
		}
		if !result.Done() {
			return nil, nil
		}
		c.logger.Info("switching to remote storage", "user", userID, "outcome", result.Outcome)
		return store.NewRemoteBackend(c.deps.Remote, userID), nil
	})
}

// LastError returns the error from the most recent evaluation, or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// User returns the user the controller last evaluated; empty for a guest.
func (c *Controller) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Close stops following the provider and detaches storage.
func (c *Controller) Close() {
	if c.unwatch != nil {
		c.unwatch()
	}
	if c.unlisten != nil {
		c.unlisten()
	}
	c.deps.Facade.Close()
	if c.quit != nil {
		c.closeOnce.Do(func() { close(c.quit) })
		<-c.statsDone
	}
}

// onState queues remote snapshots for the stats worker, keeping only the newest.
func (c *Controller) onState(s store.State) {
	if s.Backend != store.BackendRemote || s.Loading || s.Err != nil || len(s.Playlists) == 0 {
		return
	}
	for {
		select {
		case <-c.quit:
			return
		default:
		}
		select {
		case c.stats <- s.Playlists:
			return
		default:
		}
		select {
		case <-c.stats:
		default:
		}
	}
}

func (c *Controller) syncStats() {
	defer close(c.statsDone)
	for {
		var playlists []models.Playlist
		select {
		case <-c.quit:
			return
		case playlists = <-c.stats:
		}
		owner := playlists[0].OwnerID
		if owner == "" || owner == models.GuestOwner {
			continue
		}
		if err := c.deps.Profiles.UpdateStats(c.ctx, owner, models.CalculateStats(playlists)); err != nil {
			c.logger.Warn("profile stats not updated", "user", owner, "err", err)
			continue
		}
		c.logger.Debug("profile stats updated", "user", owner, "playlists", len(playlists))
	}
}
