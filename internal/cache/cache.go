// Package cache provides a generic TTL cache.
package cache

import (
	"sync"
	"time"
)

// item wraps a cached value with its expiration time.
type item[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a thread-safe map with per-entry TTL expiry.
//
// Invalidate bumps a generation counter so that a Set racing with an
// invalidation cannot resurrect a value computed before the invalidation:
// callers read Generation before computing and pass it to SetIfCurrent.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[string]item[T]
	ttl   time.Duration
	gen   uint64
	now   func() time.Time
}

// New creates a cache with the specified TTL.
// Expired entries are dropped lazily on Get; there is no background sweeper.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a value, returning (value, true) if found and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || c.now().After(it.expiresAt) {
		if ok {
			c.mu.Lock()
			delete(c.items, key)
			c.mu.Unlock()
		}
		var zero T
		return zero, false
	}
	return it.value, true
}

// Generation returns the current invalidation generation.
func (c *Cache[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfCurrent stores value only if no Invalidate happened since gen was read.
// It reports whether the value was stored.
func (c *Cache[T]) SetIfCurrent(key string, value T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	c.items[key] = item[T]{value: value, expiresAt: c.now().Add(c.ttl)}
	return true
}

// Invalidate removes every entry and starts a new generation.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item[T])
	c.gen++
}

// Size returns the number of items (including expired).
func (c *Cache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
