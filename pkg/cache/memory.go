package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrExpired   = errors.New("cache entry expired")
)

// entry holds a cached value with expiration.
type entry struct {
	value      interface{}
	expiration time.Time
}

// InMemoryCache is a simple in-memory cache. The orchestrator uses it
// for celebrity lookups within a run; nothing here survives a restart.
type InMemoryCache struct {
	entries map[string]*entry
	mu      sync.RWMutex
}

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]*entry),
	}
}

// Get retrieves a value from the cache.
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, ErrCacheMiss
	}
	if time.Now().After(e.expiration) {
		return nil, ErrExpired
	}
	return e.value, nil
}

// Set stores a value in the cache with a TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a value from the cache.
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear removes all values from the cache.
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	return nil
}
