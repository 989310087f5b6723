// Package coalesce collapses redundant concurrent work.
//
// Cache and WithCache deduplicate request/response calls: callers sharing a
// key join a single in-flight execution and reuse its result while it is
// fresh. Observers and Observe deduplicate long-running watches: the first
// subscriber for a key starts a worker whose emissions fan out to every
// subscriber, and the last one to leave tears it down.
package coalesce

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/telemetry"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

// ErrTypeMismatch is returned by WithCache when the value stored under a key
// is not of the requested type.
var ErrTypeMismatch = errors.New("cached value has unexpected type")

// entry is a resolved value and the time it was stored.
type entry struct {
	value     any
	createdAt time.Time
}

// Cache stores resolved values per key and tracks in-flight executions.
// Entries expire when read past their max age; nothing is swept in the
// background.
type Cache struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry

	inflight singleflight.Group

	hits   metric.Int64Counter
	joins  metric.Int64Counter
	misses metric.Int64Counter
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}

	meter := telemetry.Meter()
	c.hits, _ = meter.Int64Counter("cache.hits", metric.WithDescription("Calls served from a fresh cache entry"))
	c.joins, _ = meter.Int64Counter("cache.joins", metric.WithDescription("Calls that joined an in-flight execution"))
	c.misses, _ = meter.Int64Counter("cache.misses", metric.WithDescription("Calls that executed the operation"))

	return c
}

// Get returns the value stored under key, fresh or not, without computing it.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return e.value, ok
}

// Set stores value under key, stamped with the current time.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, createdAt: c.now()}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// fresh returns the value under key if it was stored less than maxAge ago.
func (c *Cache) fresh(key string, maxAge time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.createdAt) >= maxAge {
		return nil, false
	}
	return e.value, true
}

// WithCache returns the value of fn for key, executing fn at most once at a
// time per key.
//
//   - A value stored less than maxAge ago is returned without calling fn.
//   - If an execution for key is in flight, the caller waits for its outcome.
//   - Otherwise fn runs; its value is stored on success and the key is
//     cleared on error, so failures are never cached.
//
// Joined callers share the context of the caller that started the execution.
func WithCache[T any](ctx context.Context, c *Cache, key string, maxAge time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.fresh(key, maxAge); ok {
		c.hits.Add(ctx, 1)
		return cast[T](key, v)
	}

	executed := false
	v, err, _ := c.inflight.Do(key, func() (any, error) {
		// a flight that finished between the freshness check and Do
		// has already stored its value
		if v, ok := c.fresh(key, maxAge); ok {
			return v, nil
		}

		executed = true
		v, err := fn(ctx)
		if err != nil {
			c.Delete(key)
			return nil, err
		}

		c.Set(key, v)
		return v, nil
	})

	if executed {
		c.misses.Add(ctx, 1)
	} else {
		c.joins.Add(ctx, 1)
		logger.Debug(ctx, "joined in-flight execution", "key", key)
	}

	if err != nil {
		return zero, err
	}
	return cast[T](key, v)
}

func cast[T any](key string, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T, want %T", ErrTypeMismatch, key, v, zero)
	}
	return t, nil
}
