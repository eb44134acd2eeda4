// Package cache keeps run reports in memory with a time-to-live.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/precioscl/backend/internal/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// entry is a stored JSON snapshot with its expiration
type entry struct {
	payload    json.RawMessage
	expiration time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL support.
// Values are stored as JSON snapshots, so later mutation of the original
// value never leaks into the cache. Get returns the decoded generic form
// (map[string]any, []any, float64, ...); use GetInto for a typed copy.
type MemoryCache struct {
	data  map[string]entry
	mutex sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache whose janitor runs every cleanupInterval.
// Zero or negative uses ten minutes.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	c := &MemoryCache{
		data: make(map[string]entry),
		stop: make(chan struct{}),
	}
	go c.janitor(cleanupInterval)
	return c
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	var value interface{}
	if err := c.GetInto(ctx, key, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// GetInto decodes the cached snapshot for key into dst
func (c *MemoryCache) GetInto(ctx context.Context, key string, dst any) error {
	c.mutex.RLock()
	e, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || time.Now().After(e.expiration) {
		return domain.ErrCacheMiss
	}
	return json.Unmarshal(e.payload, dst)
}

// Set stores a snapshot of value with the given TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[key] = entry{payload: payload, expiration: time.Now().Add(ttl)}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.data[key]
	if !exists {
		return false, nil
	}
	return !time.Now().After(e.expiration), nil
}

// Size returns the number of stored entries, expired ones included until the next sweep
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]entry)
}

// Close stops the janitor goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// sweep removes expired entries
func (c *MemoryCache) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	for key, e := range c.data {
		if now.After(e.expiration) {
			delete(c.data, key)
		}
	}
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}
