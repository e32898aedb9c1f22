package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// Cached is a read-through Redis cache in front of a Source. Provider lookups are
// cached per id; Refresh drops the entry and reads through. Redis failures fall back
// to the source.
type Cached struct {
	src    Source
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCached(src Source, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{src: src, rdb: rdb, ttl: ttl, prefix: "directory:provider:", logger: logger}
}

func (c *Cached) List(ctx context.Context) ([]model.Provider, error) {
	return c.src.List(ctx)
}

func (c *Cached) Provider(ctx context.Context, id string) (model.Provider, error) {
	key := c.prefix + id
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p model.Provider
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("directory cache read failed", "key", key, "err", err)
	}

	p, err := c.src.Provider(ctx, id)
	if err != nil {
		return model.Provider{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("directory cache write failed", "key", key, "err", err)
		}
	}
	return p, nil
}

// Refresh evicts id and reads it again, so a booking just made is visible.
func (c *Cached) Refresh(ctx context.Context, id string) (model.Provider, error) {
	c.Invalidate(ctx, id)
	return c.Provider(ctx, id)
}

func (c *Cached) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, c.prefix+id).Err(); err != nil {
		c.logger.Warn("directory cache evict failed", "id", id, "err", err)
	}
}
