// Package cache provides generic, thread-safe caches with always-on
// statistics. Two implementations are offered: a simple cache with no
// eviction and an LRU cache bounded by entry count. The session uses a
// cache to avoid re-deriving schemas per type name.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/falaki/spark/errors"
)

// Cache is a generic thread-safe cache parameterized by value type V
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found.
	Get(key string) (V, bool)

	// Set stores a value. Returns true if a new entry was created.
	Set(key string, value V) (bool, error)

	// Delete removes an entry. Returns true if the key existed.
	Delete(key string) bool

	// Clear removes all entries.
	Clear()

	// Size returns the current number of entries.
	Size() int

	// Stats returns cache statistics.
	Stats() Statistics
}

// Statistics is a snapshot of cache performance counters
type Statistics struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

func (c *counters) snapshot() Statistics {
	return Statistics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
	}
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Set", "empty key validation")
	}
	return nil
}

// simpleCache is a thread-safe cache with no eviction policy
type simpleCache[V any] struct {
	mu       sync.RWMutex
	items    map[string]V
	counters counters
}

// NewSimple creates a cache that keeps entries until deleted or cleared
func NewSimple[V any]() Cache[V] {
	return &simpleCache[V]{items: make(map[string]V)}
}

func (c *simpleCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	value, exists := c.items[key]
	c.mu.RUnlock()

	if exists {
		c.counters.hits.Add(1)
	} else {
		c.counters.misses.Add(1)
	}
	return value, exists
}

func (c *simpleCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	_, exists := c.items[key]
	c.items[key] = value
	c.mu.Unlock()

	c.counters.sets.Add(1)
	return !exists, nil
}

func (c *simpleCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.items[key]
	delete(c.items, key)
	return exists
}

func (c *simpleCache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]V)
	c.mu.Unlock()
}

func (c *simpleCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *simpleCache[V]) Stats() Statistics {
	return c.counters.snapshot()
}
