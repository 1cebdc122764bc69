// Package cache is a small in-process TTL cache for computed responses.
package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value   V
	expires time.Time
}

// Cache is a thread-safe map whose entries expire after a fixed TTL.
// When maxItems is reached the entry closest to expiry is evicted.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]item[V]
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

// New creates a cache; a non-positive ttl disables storage entirely
func New[V any](ttl time.Duration, maxItems int) *Cache[V] {
	return &Cache[V]{
		items:    make(map[string]item[V]),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Enabled reports whether Set stores anything
func (c *Cache[V]) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns a live entry
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if !c.Enabled() {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(it.expires) {
		delete(c.items, key)
		return zero, false
	}
	return it.value, true
}

// Set stores value under key for the cache TTL
func (c *Cache[V]) Set(key string, value V) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictSoonest()
	}
	c.items[key] = item[V]{value: value, expires: c.now().Add(c.ttl)}
}

// Flush drops every entry
func (c *Cache[V]) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item[V])
}

// Len counts stored entries, expired ones included
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, it := range c.items {
		if victim == "" || it.expires.Before(soonest) {
			victim, soonest = k, it.expires
		}
	}
	delete(c.items, victim)
}
