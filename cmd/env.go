package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetrack/internal/auth"
	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/friends"
	"github.com/desertthunder/tubetrack/internal/goals"
	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/migration"
	"github.com/desertthunder/tubetrack/internal/profiles"
	"github.com/desertthunder/tubetrack/internal/services"
	"github.com/desertthunder/tubetrack/internal/session"
	"github.com/desertthunder/tubetrack/internal/shared"
	"github.com/desertthunder/tubetrack/internal/store"
)

// env is one process session: storage, sign-in state and the controller switching between them.
type env struct {
	db          *sql.DB
	remote      *docstore.Remote
	ownsRemote  bool
	kv          *kv.SQLiteStore
	local       *store.LocalStore
	remoteStore *store.RemoteStore
	facade      *store.Facade
	provider    *auth.SessionProvider
	markers     *migration.Markers
	coordinator *migration.Coordinator
	profiles    *profiles.Service
	friends     *friends.Service
	goals       *goals.Service
	controller  *session.Controller
	fetcher     services.Fetcher
	progress    chan migration.ProgressUpdate
}

func openEnv(ctx context.Context, cfg *shared.Config, remote *docstore.Remote, fetcher services.Fetcher, logger *log.Logger) (*env, error) {
	db, err := shared.OpenStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	e := &env{db: db, remote: remote, progress: make(chan migration.ProgressUpdate, 256)}
	if e.remote == nil {
		connectCtx := ctx
		if cfg.Remote.Timeout.Duration > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, cfg.Remote.Timeout.Duration)
			defer cancel()
		}
		if e.remote, err = docstore.Open(connectCtx, cfg, logger); err != nil {
			db.Close()
			return nil, err
		}
		e.ownsRemote = true
	}

	e.kv = kv.NewSQLiteStore(db)
	e.local = store.NewLocalStore(e.kv, shared.WithLogger(logger, "backend", store.BackendLocal))
	e.remoteStore = store.NewRemoteStore(e.remote.Playlists, e.remote.Notifier, shared.WithLogger(logger, "backend", store.BackendRemote))
	e.facade = store.NewFacade(logger)
	e.provider = auth.NewSessionProvider(e.kv, logger)
	e.markers = migration.NewMarkers(e.kv)
	e.coordinator = migration.NewCoordinator(e.local, e.remoteStore, e.markers, migration.NewSessionMigrationState(), shared.WithLogger(logger, "component", "migration"))
	e.profiles = profiles.NewService(e.remote.Profiles, logger)
	e.friends = friends.NewService(e.remote.FriendRequests, e.profiles, shared.WithLogger(logger, "component", "friends"))
	e.goals = goals.NewService(e.remote.Goals, logger)

	e.fetcher = fetcher
	if e.fetcher == nil {
		client := services.NewFetchClient(cfg.Fetch.ProxyURL, cfg.Fetch.RequestsPerSecond)
		if e.remote.Redis != nil {
			e.fetcher = services.NewCachedFetcher(client, e.remote.Redis, cfg.Fetch.CacheTTL.Duration, logger)
		} else {
			e.fetcher = client
		}
	}

	if err := e.provider.Load(); err != nil {
		logger.Warn("session not restored", "err", err)
	}

	e.controller = session.NewController(session.Deps{
		Provider:    e.provider,
		Facade:      e.facade,
		Local:       e.local,
		Remote:      e.remoteStore,
		Coordinator: e.coordinator,
		Profiles:    e.profiles,
		Progress:    e.progress,
	}, logger)
	if err := e.controller.Start(ctx); err != nil {
		// The controller stays on local storage and keeps the error for callers.
		logger.Debug("initial session evaluation failed", "err", err)
	}
	return e, nil
}

func (e *env) Close(ctx context.Context) error {
	e.controller.Close()
	var errs []error
	if e.ownsRemote {
		errs = append(errs, e.remote.Close(ctx))
	}
	errs = append(errs, e.db.Close())
	return errors.Join(errs...)
}
