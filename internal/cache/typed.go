package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TypedCache stores JSON-encoded values of one type on top of a Cache.
// Concurrent loads of the same missing key are collapsed into one call.
// A load that started before a Delete never leaves its value in the cache.
type TypedCache[T any] struct {
	cache      Cache
	defaultTTL time.Duration
	group      singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64 // bumped by Delete
}

// NewTypedCache creates a TypedCache wrapping the given cache.
func NewTypedCache[T any](cache Cache, defaultTTL time.Duration) *TypedCache[T] {
	return &TypedCache[T]{cache: cache, defaultTTL: defaultTTL, gen: make(map[string]uint64)}
}

func (c *TypedCache[T]) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[key]
}

// Get returns the cached value and true, or the zero value and false.
// Undecodable entries are treated as misses.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Debug("cache get failed", "key", key, "error", err)
		}
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Set stores a value with the default TTL.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, data, c.defaultTTL)
}

// Delete removes a key from the cache. Loads already in flight for the key
// are detached: later callers start a fresh load, and the old load's result
// is not cached.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.gen[key]++
	c.mu.Unlock()
	c.group.Forget(key)
	return c.cache.Delete(ctx, key)
}

// GetOrLoad returns the cached value, or calls load and caches its result.
// Cache write failures are logged; the loaded value is still returned.
func (c *TypedCache[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.generation(key)
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		c.store(ctx, key, gen, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// store caches a loaded value unless the key was deleted since the load
// began. The generation is checked again after the write because a Delete
// may land while Set is in progress.
func (c *TypedCache[T]) store(ctx context.Context, key string, gen uint64, value T) {
	if c.generation(key) != gen {
		return
	}
	if err := c.Set(ctx, key, value); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
		return
	}
	if c.generation(key) != gen {
		if err := c.cache.Delete(ctx, key); err != nil {
			slog.Warn("cache invalidation failed", "key", key, "error", err)
		}
	}
}
