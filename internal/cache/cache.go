// Package cache provides the process-wide key/value cache used by the
// resolver: per-entry expiration, a single-flight get-or-set primitive and a
// periodic sweep that removes expired entries.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache/singleflight"
)

// DefaultSweepInterval is the period of the background sweep.
const DefaultSweepInterval = time.Hour

// Config contains cache configuration options.
type Config struct {
	// DefaultTTL is used by Set when it is called with ttl <= 0.
	DefaultTTL time.Duration

	// SweepInterval is the period of the background sweep (0 = DefaultSweepInterval,
	// negative = no background sweep).
	SweepInterval time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:    5 * time.Minute,
		SweepInterval: DefaultSweepInterval,
	}
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Loads     int64
	Evictions int64
	Size      int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Cache is a thread-safe string-keyed cache with per-entry expiration.
// An entry is never returned once its expiry has passed, whether or not the
// sweep has removed it yet.
type Cache[V any] struct {
	mu   sync.RWMutex
	data map[string]entry[V]

	defaultTTL time.Duration
	now        func() time.Time
	group      singleflight.Group

	hits, misses, loads, evictions atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Cache and starts its background sweep.
// Call Close to stop the sweep.
func New[V any](cfg Config) *Cache[V] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	c := &Cache[V]{
		data:       make(map[string]entry[V]),
		defaultTTL: cfg.DefaultTTL,
		now:        cfg.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go c.sweepLoop(cfg.SweepInterval)
	} else {
		close(c.done)
	}
	return c
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	if e.expired(c.now()) {
		c.removeIfExpired(key)
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key for ttl. A ttl <= 0 uses the default TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.store(key, value, ttl)
}

func (c *Cache[V]) store(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// GetOrSet returns the cached value for key, or calls fn once and stores its
// result for ttl. Concurrent callers for the same key share one call to fn.
// An error from fn is returned and nothing is stored.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (V, error)) (V, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.GetOrSetFunc(ctx, key, func(ctx context.Context) (V, time.Duration, error) {
		v, err := fn(ctx)
		return v, ttl, err
	})
}

// GetOrSetFunc is GetOrSet where fn picks the TTL from the value it computed,
// so negative results can be kept for less time than positive ones.
// A returned ttl <= 0 means the value is handed back but not stored.
func (c *Cache[V]) GetOrSetFunc(ctx context.Context, key string, fn func(context.Context) (V, time.Duration, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := c.load(ctx, key, fn)
	if err != nil && isContextErr(err) && ctx.Err() == nil {
		// The shared call was started by a caller that has since gone away.
		v, err = c.load(ctx, key, fn)
	}
	return v, err
}

type loadResult[V any] struct {
	value V
	err   error
}

func (c *Cache[V]) load(ctx context.Context, key string, fn func(context.Context) (V, time.Duration, error)) (V, error) {
	ch := make(chan loadResult[V], 1)

	go func() {
		x, err := c.group.Do(key, func() (interface{}, error) {
			c.mu.RLock()
			e, ok := c.data[key]
			c.mu.RUnlock()
			if ok && !e.expired(c.now()) {
				return e.value, nil
			}

			c.loads.Add(1)
			v, ttl, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			if ttl > 0 {
				c.store(key, v, ttl)
			}
			return v, nil
		})
		if err != nil {
			ch <- loadResult[V]{err: err}
			return
		}
		v, _ := x.(V)
		ch <- loadResult[V]{value: v}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (c *Cache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry[V])
}

// Len returns the number of stored entries, including expired ones the sweep
// has not removed yet.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Keys returns the keys of all unexpired entries, in no particular order.
func (c *Cache[V]) Keys() []string {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.data))
	for k, e := range c.data {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Loads:     c.loads.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
	}
}

// Sweep removes all expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			n++
		}
	}
	c.evictions.Add(int64(n))
	return n
}

func (c *Cache[V]) removeIfExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.data[key]; ok && e.expired(c.now()) {
		delete(c.data, key)
		c.evictions.Add(1)
	}
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// Close stops the background sweep and waits for it to exit. Entries stay
// readable. Close is safe to call more than once.
func (c *Cache[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	return nil
}
