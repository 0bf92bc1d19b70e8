package cache

import (
	"container/list"
	"sync"
)

// lruCache evicts the least recently used entry once maxEntries is exceeded
type lruCache[V any] struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List
	items      map[string]*list.Element
	counters   counters
}

type lruEntry[V any] struct {
	key   string
	value V
}

// NewLRU creates a cache bounded by entry count. A non-positive bound falls
// back to 128 entries.
func NewLRU[V any](maxEntries int) Cache[V] {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &lruCache[V]{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.counters.misses.Add(1)
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.counters.hits.Add(1)
	return elem.Value.(*lruEntry[V]).value, true
}

func (c *lruCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		elem.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(elem)
		c.counters.sets.Add(1)
		return false, nil
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})
	c.counters.sets.Add(1)

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry[V]).key)
			c.counters.evictions.Add(1)
		}
	}
	return true, nil
}

func (c *lruCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

func (c *lruCache[V]) Clear() {
	c.mu.Lock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.mu.Unlock()
}

func (c *lruCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache[V]) Stats() Statistics {
	return c.counters.snapshot()
}
