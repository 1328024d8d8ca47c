package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/desertthunder/tubetrack/internal/shared"
)

// PlaylistTopicPrefix prefixes per-owner playlist topics.
const PlaylistTopicPrefix = "playlists:"

// Remote bundles the configured collections and notifier.
type Remote struct {
	Playlists      Collection
	Profiles       Collection
	FriendRequests Collection
	Goals          Collection
	Notifier       Notifier
	// Redis is set when a Redis server is configured; the metadata cache shares it.
	Redis *redis.Client

	closers []func(context.Context) error
}

// Open connects the remote backend and notifier described by cfg.
func Open(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*Remote, error) {
	r := &Remote{}

	var db *mongo.Database
	switch cfg.Remote.Backend {
	case shared.RemoteMongo:
		client, err := ConnectMongo(ctx, cfg.Remote.MongoURI)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, client.Disconnect)
		db = client.Database(cfg.Remote.Database)
		r.Playlists = NewMongoCollection(db.Collection(cfg.Remote.PlaylistsCollection))
		r.Profiles = NewMongoCollection(db.Collection(cfg.Remote.ProfilesCollection))
		r.FriendRequests = NewMongoCollection(db.Collection(cfg.Remote.FriendRequestsCollection))
		r.Goals = NewMongoCollection(db.Collection(cfg.Remote.GoalsCollection))
		logger.Debug("connected to mongo", "database", cfg.Remote.Database)
	case shared.RemoteMemory:
		r.Playlists = NewMemoryCollection(cfg.Remote.PlaylistsCollection)
		r.Profiles = NewMemoryCollection(cfg.Remote.ProfilesCollection)
		r.FriendRequests = NewMemoryCollection(cfg.Remote.FriendRequestsCollection)
		r.Goals = NewMemoryCollection(cfg.Remote.GoalsCollection)
		logger.Warn("using in-memory remote store; data is lost on exit")
	default:
		return nil, fmt.Errorf("%w: remote backend %q", shared.ErrInvalidConfig, cfg.Remote.Backend)
	}

	switch cfg.Notifier.Kind {
	case shared.NotifierRedis:
		rdb, err := NewRedisClient(ctx, cfg.Notifier.RedisAddr, cfg.Notifier.RedisPassword, cfg.Notifier.RedisDB)
		if err != nil {
			r.Close(ctx)
			return nil, err
		}
		r.Redis = rdb
		r.closers = append(r.closers, func(context.Context) error { return rdb.Close() })
		r.Notifier = NewRedisNotifier(rdb)
	case shared.NotifierMongo:
		if db == nil {
			r.Close(ctx)
			return nil, fmt.Errorf("%w: mongo notifier requires the mongo backend", shared.ErrInvalidConfig)
		}
		r.Notifier = NewMongoNotifier(db.Collection(cfg.Remote.PlaylistsCollection), PlaylistTopicPrefix, "ownerId")
	default:
		r.Notifier = NewMemoryNotifier()
	}

	return r, nil
}

// Close releases connections in reverse order of opening.
func (r *Remote) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
