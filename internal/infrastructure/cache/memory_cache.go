package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryCache implements shared.ProjectionCache in process memory.
// Expired entries are dropped lazily on access; there is no background sweeper.
// It does not share state across instances and suits single-node deployments and tests.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewInMemoryCache creates an empty cache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewInMemoryCacheWithClock creates a cache that reads time from now; used by tests
func NewInMemoryCacheWithClock(now func() time.Time) *InMemoryCache {
	c := NewInMemoryCache()
	c.now = now
	return c
}

// Get returns the blob stored at key
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, shared.ErrCacheMiss
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, shared.ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value for ttl
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes keys
func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *InMemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// IsConnected is always true
func (c *InMemoryCache) IsConnected(context.Context) bool {
	return true
}

// Len returns the number of stored entries, expired or not
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ shared.ProjectionCache = (*InMemoryCache)(nil)

// NoopCache is a disabled cache: every read misses and every write succeeds
type NoopCache struct{}

// Get always misses
func (NoopCache) Get(context.Context, string) ([]byte, error) { return nil, shared.ErrCacheMiss }

// Set discards the value
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing
func (NoopCache) Delete(context.Context, ...string) error { return nil }

// DeletePrefix does nothing
func (NoopCache) DeletePrefix(context.Context, string) error { return nil }

// IsConnected is false: there is nothing to connect to
func (NoopCache) IsConnected(context.Context) bool { return false }

var _ shared.ProjectionCache = NoopCache{}
