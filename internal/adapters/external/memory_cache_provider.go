package external

import (
	"context"
	"sync"
	"time"

	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// MemoryCacheProvider is a process-local CacheProvider. Expired entries are
// invisible to reads and removed by PurgeExpired.
type MemoryCacheProvider struct {
	data  map[string]memoryCacheItem
	mutex sync.RWMutex
	stats struct {
		hits   int64
		misses int64
		mutex  sync.RWMutex
	}
	now func() time.Time
}

type memoryCacheItem struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCacheProvider() *MemoryCacheProvider {
	return &MemoryCacheProvider{
		data: make(map[string]memoryCacheItem),
		now:  time.Now,
	}
}

func (c *MemoryCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || c.now().After(item.expiresAt) {
		return nil, errors.NewNotFoundError("cache miss")
	}
	return item.data, nil
}

func (c *MemoryCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateEntry(key, value, ttl); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = memoryCacheItem{
		data:      value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// SetIfAbsent stores value unless a live entry exists. Check and write happen
// under one lock.
func (c *MemoryCacheProvider) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := validateEntry(key, value, ttl); err != nil {
		return false, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	if item, exists := c.data[key]; exists && !now.After(item.expiresAt) {
		return false, nil
	}
	c.data[key] = memoryCacheItem{data: value, expiresAt: now.Add(ttl)}
	return true, nil
}

func (c *MemoryCacheProvider) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

func (c *MemoryCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.NewValidationError("cache key cannot be empty")
	}

	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return false, nil
	}
	return !c.now().After(item.expiresAt), nil
}

func (c *MemoryCacheProvider) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]memoryCacheItem)
	return nil
}

// PurgeExpired drops every entry whose expiry has passed and returns how many.
func (c *MemoryCacheProvider) PurgeExpired(ctx context.Context) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	purged := 0
	for key, item := range c.data {
		if now.After(item.expiresAt) {
			delete(c.data, key)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCacheProvider) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

func (c *MemoryCacheProvider) GetStats() ports.CacheStats {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()
	return buildStats(c.stats.hits, c.stats.misses)
}

func (c *MemoryCacheProvider) RecordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.hits++
}

func (c *MemoryCacheProvider) RecordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.misses++
}

func validateEntry(key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}
	if value == nil {
		return errors.NewValidationError("cache value cannot be nil")
	}
	if ttl <= 0 {
		return errors.NewValidationError("cache TTL must be positive")
	}
	return nil
}

func buildStats(hits, misses int64) ports.CacheStats {
	total := hits + misses
	hitRatio := float64(0)
	if total > 0 {
		hitRatio = float64(hits) / float64(total)
	}
	return ports.CacheStats{
		Hits:        hits,
		Misses:      misses,
		TotalOps:    total,
		HitRatio:    hitRatio,
		LastUpdated: time.Now(),
	}
}
