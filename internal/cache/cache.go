// Package cache provides a small in-memory cache whose entries expire a fixed
// time after they were written. Expiry is checked lazily when an entry is
// read; there is no background sweeper.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long identity lookups stay cached.
const DefaultTTL = 5 * time.Minute

type entry[V any] struct {
	value     V
	timestamp time.Time
}

// Cache maps keys to values that stay visible for at most ttl after Set.
// It is safe for concurrent use; concurrent Sets on the same key resolve
// last-writer-wins.
type Cache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]entry[V]
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty cache. A non-positive ttl falls back to DefaultTTL.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
		now:  o.now,
	}
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.data[key] = entry[V]{value: value, timestamp: c.now()}
	c.mu.Unlock()
}

// Get returns the cached value while it is fresh. A stale entry is deleted
// as a side effect, so Get mutates the cache even though it reads.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.data[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.timestamp) > c.ttl {
		delete(c.data, key)
		return zero, false
	}
	return e.value, true
}

// Has reports whether Get would find a fresh value.
func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	clear(c.data)
	c.mu.Unlock()
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
