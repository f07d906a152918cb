// Package snapshot serves the latest published GTIXT index snapshot with
// cache-aside semantics: a key-value cache in front of a blob-store
// origin, with explicit invalidation and cache introspection.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrSnapshotUnavailable is returned when the snapshot cannot be served:
// the cache missed and the origin fetch failed or the object is gone.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

const (
	StatusHit  = "HIT"
	StatusMiss = "MISS"
)

// Metadata describes where a Get was served from.
type Metadata struct {
	Status     string
	AgeSeconds int64
}

// CacheStats is a read-only view of the cache entry's state. Collecting
// it never triggers an origin fetch.
type CacheStats struct {
	Enabled             bool  `json:"enabled"`
	Cached              bool  `json:"cached"`
	TTLSecondsRemaining int64 `json:"ttl_seconds_remaining"`
	CacheAgeMs          int64 `json:"cache_age_ms"`
}

// envelope is the stored cache format. CachedAt travels with the payload
// so age is computed from the document itself, not from store TTL; the
// two drift once writes race.
type envelope struct {
	CachedAt time.Time       `json:"cached_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Cache implements the cache-aside read path for the latest snapshot.
// store may be nil, in which case every Get goes to the origin.
type Cache struct {
	store  CacheStore
	origin Origin
	key    string
	ttl    time.Duration
	logger *logrus.Logger
}

func New(store CacheStore, origin Origin, key string, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		store:  store,
		origin: origin,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the latest snapshot payload. On a cache hit the age is
// derived from the embedded cached_at marker. On a miss the origin is
// fetched, stamped and written back with the configured TTL; a failed
// cache write never fails the read.
func (c *Cache) Get(ctx context.Context) (json.RawMessage, Metadata, error) {
	if c.store != nil {
		raw, ok, err := c.store.Get(ctx, c.key)
		if err != nil {
			c.logger.WithError(err).Warn("Cache read failed, falling through to origin")
		} else if ok {
			var env envelope
			if err := json.Unmarshal([]byte(raw), &env); err != nil {
				c.logger.WithError(err).Warn("Corrupt cache entry, falling through to origin")
			} else {
				age := int64(time.Since(env.CachedAt).Seconds())
				return env.Payload, Metadata{Status: StatusHit, AgeSeconds: age}, nil
			}
		}
	}

	payload, err := c.origin.FetchObject(ctx)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}

	if c.store != nil {
		env := envelope{CachedAt: time.Now(), Payload: payload}
		data, err := json.Marshal(env)
		if err == nil {
			err = c.store.SetEx(ctx, c.key, string(data), c.ttl)
		}
		if err != nil {
			c.logger.WithError(err).Warn("Failed to populate snapshot cache")
		}
	}

	return payload, Metadata{Status: StatusMiss, AgeSeconds: 0}, nil
}

// Invalidate deletes the cached entry. Deleting an absent key is not an
// error.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Del(ctx, c.key)
}

// Stats reports the cache entry's state without touching the origin.
func (c *Cache) Stats(ctx context.Context) (CacheStats, error) {
	stats := CacheStats{Enabled: c.store != nil}
	if c.store == nil {
		return stats, nil
	}

	cached, err := c.store.Exists(ctx, c.key)
	if err != nil {
		return stats, err
	}
	stats.Cached = cached
	if !cached {
		return stats, nil
	}

	if ttl, err := c.store.TTL(ctx, c.key); err == nil && ttl > 0 {
		stats.TTLSecondsRemaining = int64(ttl.Seconds())
	}

	raw, ok, err := c.store.Get(ctx, c.key)
	if err == nil && ok {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err == nil {
			stats.CacheAgeMs = time.Since(env.CachedAt).Milliseconds()
		}
	}

	return stats, nil
}
