package cache

import (
	"sync"
	"time"
)

// Cache is the injected read-through cache the scanner and optimizer
// receive; constructed once per process, never ambient global state.
type Cache interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{}, ttl time.Duration)
}

// Stats summarizes cache behavior for the monitor endpoint.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int64 `json:"entries"`
}

// TTLCache implements Cache with time-based expiration and LRU eviction
// once maxEntries is reached.
type TTLCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	maxEntries int64
	hits       int64
	misses     int64
	evictions  int64

	stopCh chan struct{}
}

type cacheEntry struct {
	value    interface{}
	expires  time.Time
	accessed time.Time
}

// NewTTLCache creates a cache bounded to maxEntries and starts its
// cleanup janitor.
func NewTTLCache(maxEntries int64) *TTLCache {
	c := &TTLCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get retrieves a value if present and not expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		c.misses++
		return nil, false
	}
	entry.accessed = time.Now()
	c.hits++
	return entry.value, true
}

// Put stores a value with the given TTL, evicting the least recently
// accessed entry when full.
func (c *TTLCache) Put(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && int64(len(c.entries)) >= c.maxEntries {
		c.evictLRU()
	}
	c.entries[key] = &cacheEntry{
		value:    value,
		expires:  time.Now().Add(ttl),
		accessed: time.Now(),
	}
}

// Stats returns a point-in-time counter snapshot.
func (c *TTLCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   int64(len(c.entries)),
	}
}

// Stop shuts down the janitor goroutine.
func (c *TTLCache) Stop() {
	close(c.stopCh)
}

// evictLRU removes the least recently accessed entry; caller holds the
// write lock.
func (c *TTLCache) evictLRU() {
	var oldestKey string
	oldest := time.Now()
	for key, entry := range c.entries {
		if entry.accessed.Before(oldest) {
			oldest = entry.accessed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func (c *TTLCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTLCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}

// NopCache satisfies Cache without storing anything; used in tests and
// when caching is disabled.
type NopCache struct{}

func (NopCache) Get(string) (interface{}, bool)         { return nil, false }
func (NopCache) Put(string, interface{}, time.Duration) {}
