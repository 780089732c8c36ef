package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/pkg/errors"
)

func TestCacheProviderFactory_CreateCacheProvider(t *testing.T) {
	factory := NewCacheProviderFactory()

	t.Run("Memory", func(t *testing.T) {
		cache, err := factory.CreateCacheProvider(&config.CacheConfig{Type: config.CacheTypeMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryCacheProvider{}, cache)
	})

	t.Run("Redis", func(t *testing.T) {
		_, redisConfig := setupMockRedis(t)
		cache, err := factory.CreateCacheProvider(&config.CacheConfig{Type: config.CacheTypeRedis, Redis: *redisConfig})
		require.NoError(t, err)
		require.IsType(t, &RedisCacheProviderAdapter{}, cache)
		assert.NoError(t, cache.(*RedisCacheProviderAdapter).Close())
	})

	t.Run("RedisUnreachable", func(t *testing.T) {
		cache, err := factory.CreateCacheProvider(&config.CacheConfig{
			Type:  config.CacheTypeRedis,
			Redis: config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 1, ReadTimeout: 1, WriteTimeout: 1},
		})
		assert.Error(t, err)
		assert.Nil(t, cache)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := factory.CreateCacheProvider(&config.CacheConfig{Type: config.CacheTypeUnknown})
		assert.True(t, errors.IsConfigurationError(err))
	})

	t.Run("Nil", func(t *testing.T) {
		_, err := factory.CreateCacheProvider(nil)
		assert.True(t, errors.IsConfigurationError(err))
	})
}
