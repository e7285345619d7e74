package mapper

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/shipment-ingest/internal/model"
)

// CachedMapping is one accepted inference result held in the cache.
type CachedMapping struct {
	Field      model.CanonicalField
	Confidence float64
	CachedAt   time.Time
}

// CacheStore is the backing store for accepted inference results, keyed by
// the lowercased, trimmed header string. Implementations must treat expired
// entries as absent.
type CacheStore interface {
	Get(ctx context.Context, key string, ttl time.Duration) (*CachedMapping, error)
	Set(ctx context.Context, key string, m CachedMapping) error
	Close() error
}

// MemoryCache is an in-process CacheStore.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CachedMapping
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CachedMapping)}
}

func (c *MemoryCache) Get(_ context.Context, key string, ttl time.Duration) (*CachedMapping, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if ttl > 0 && time.Since(m.CachedAt) > ttl {
		return nil, nil
	}
	return &m, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, m CachedMapping) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = m
	return nil
}

func (c *MemoryCache) Close() error { return nil }
