package external

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

const (
	redisKeyPrefix = "pushdispatch:"
	redisScanBatch = 500
)

// RedisCacheProviderAdapter implements CacheProvider port using Redis.
// Every key is namespaced so Clear never touches foreign data.
type RedisCacheProviderAdapter struct {
	client *redis.Client
	stats  struct {
		hits   int64
		misses int64
		mutex  sync.RWMutex
	}
}

// NewRedisCacheProviderAdapter creates a new Redis cache provider adapter
func NewRedisCacheProviderAdapter(config *config.RedisConfig) (*RedisCacheProviderAdapter, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("redis config cannot be nil", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  time.Duration(config.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewExternalAPIError("failed to connect to Redis", err)
	}

	return &RedisCacheProviderAdapter{client: client}, nil
}

func (r *RedisCacheProviderAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.NewValidationError("cache key cannot be empty")
	}

	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewNotFoundError("cache miss")
		}
		return nil, errors.NewExternalAPIError("redis get operation failed", err)
	}
	return val, nil
}

func (r *RedisCacheProviderAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateEntry(key, value, ttl); err != nil {
		return err
	}

	if err := r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return errors.NewExternalAPIError("redis set operation failed", err)
	}
	return nil
}

// SetIfAbsent maps onto SET NX, so concurrent writers across processes
// sharing this Redis get exactly one winner.
func (r *RedisCacheProviderAdapter) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := validateEntry(key, value, ttl); err != nil {
		return false, err
	}

	ok, err := r.client.SetNX(ctx, redisKeyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, errors.NewExternalAPIError("redis setnx operation failed", err)
	}
	return ok, nil
}

func (r *RedisCacheProviderAdapter) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.NewValidationError("cache key cannot be empty")
	}

	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return errors.NewExternalAPIError("redis delete operation failed", err)
	}
	return nil
}

func (r *RedisCacheProviderAdapter) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.NewValidationError("cache key cannot be empty")
	}

	count, err := r.client.Exists(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, errors.NewExternalAPIError("redis exists operation failed", err)
	}
	return count > 0, nil
}

// Clear removes every key under the application prefix
func (r *RedisCacheProviderAdapter) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", redisScanBatch).Result()
		if err != nil {
			return errors.NewExternalAPIError("redis scan operation failed", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return errors.NewExternalAPIError("redis clear operation failed", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *RedisCacheProviderAdapter) GetStats() ports.CacheStats {
	r.stats.mutex.RLock()
	defer r.stats.mutex.RUnlock()
	return buildStats(r.stats.hits, r.stats.misses)
}

func (r *RedisCacheProviderAdapter) RecordHit() {
	r.stats.mutex.Lock()
	defer r.stats.mutex.Unlock()
	r.stats.hits++
}

func (r *RedisCacheProviderAdapter) RecordMiss() {
	r.stats.mutex.Lock()
	defer r.stats.mutex.Unlock()
	r.stats.misses++
}

// Close closes the Redis client connection
func (r *RedisCacheProviderAdapter) Close() error {
	if err := r.client.Close(); err != nil {
		return errors.NewExternalAPIError("failed to close Redis connection", err)
	}
	return nil
}

// Ping checks if Redis connection is alive
func (r *RedisCacheProviderAdapter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewExternalAPIError("Redis ping failed", err)
	}
	return nil
}
