package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/tubetrack/internal/models"
)

const cachePrefix = "playlist_meta:"

// CachedFetcher decorates a [Fetcher] with a Redis TTL cache.
//
// Cache failures are logged and fall through to the wrapped fetcher. Errors are never cached.
type CachedFetcher struct {
	next   Fetcher
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
	group  singleflight.Group
}

// NewCachedFetcher wraps next. A ttl <= 0 defaults to one hour.
func NewCachedFetcher(next Fetcher, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(playlistID string) string { return cachePrefix + playlistID }

func (c *CachedFetcher) FetchPlaylist(ctx context.Context, playlistID string) (*models.PlaylistData, error) {
	if data, ok := c.lookup(ctx, playlistID); ok {
		return data, nil
	}

	v, err, dup := c.group.Do(playlistID, func() (any, error) {
		data, err := c.next.FetchPlaylist(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		c.store(ctx, playlistID, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data := v.(*models.PlaylistData)
	if dup {
		return clone(data), nil
	}
	return data, nil
}

// Invalidate drops the cached entry for playlistID.
func (c *CachedFetcher) Invalidate(ctx context.Context, playlistID string) error {
	return c.rdb.Del(ctx, cacheKey(playlistID)).Err()
}

func (c *CachedFetcher) lookup(ctx context.Context, playlistID string) (*models.PlaylistData, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(playlistID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("playlist cache unavailable", "playlist", playlistID, "err", err)
		return nil, false
	}

	var data models.PlaylistData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "playlist", playlistID, "err", err)
		_ = c.rdb.Del(ctx, cacheKey(playlistID)).Err()
		return nil, false
	}
	c.logger.Debug("playlist cache hit", "playlist", playlistID)
	return &data, true
}

func (c *CachedFetcher) store(ctx context.Context, playlistID string, data *models.PlaylistData) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(playlistID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("playlist not cached", "playlist", playlistID, "err", err)
	}
}

func clone(data *models.PlaylistData) *models.PlaylistData {
	out := *data
	out.Videos = append([]models.Video(nil), data.Videos...)
	return &out
}
