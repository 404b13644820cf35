package schema

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a small fixed-capacity key-value store keyed by table name. Reads
// predominate; writes happen only on a miss. A duplicate recomputation when
// two requests race on the same missing key is harmless, so Set overwrites
// without coordination beyond the lock.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry[V]
	maxSize int
}

// cacheEntry tracks last access as atomic unix nanos: hits refresh it under
// the read lock, so concurrent reads of the same key must not race.
type cacheEntry[V any] struct {
	value      V
	lastAccess atomic.Int64
}

// NewCache creates a cache bounded to maxSize entries.
func NewCache[V any](maxSize int) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 10
	}
	return &Cache[V]{
		entries: make(map[string]*cacheEntry[V]),
		maxSize: maxSize,
	}
}

// Get retrieves a cached value.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		var zero V
		return zero, false
	}

	entry.lastAccess.Store(time.Now().UnixNano())
	return entry.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry[V]{value: value}
	entry.lastAccess.Store(time.Now().UnixNano())
	c.entries[key] = entry
}

// Len returns the current number of entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (c *Cache[V]) evictLRU() {
	var oldestKey string
	var oldestAccess int64

	for key, entry := range c.entries {
		if at := entry.lastAccess.Load(); oldestKey == "" || at < oldestAccess {
			oldestKey = key
			oldestAccess = at
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
