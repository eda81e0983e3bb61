package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

type memoryEntry struct {
	bundles   []models.RawBundle
	expiresAt time.Time
}

// MemoryCache is a process-local BundleCache.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		store: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]models.RawBundle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return e.bundles, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, bundles []models.RawBundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = memoryEntry{bundles: bundles, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}
