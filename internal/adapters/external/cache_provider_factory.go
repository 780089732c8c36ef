package external

import (
	"fmt"

	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// SentCache is what the ledger needs from a cache backend
type SentCache interface {
	ports.CacheProvider
	ports.CacheMetrics
}

type CacheProviderFactory struct{}

func NewCacheProviderFactory() *CacheProviderFactory {
	return &CacheProviderFactory{}
}

func (f *CacheProviderFactory) CreateCacheProvider(cfg *config.CacheConfig) (SentCache, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("cache config cannot be nil", nil)
	}

	switch cfg.Type {
	case config.CacheTypeMemory:
		return NewMemoryCacheProvider(), nil
	case config.CacheTypeRedis:
		redisCache, err := NewRedisCacheProviderAdapter(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisCache, nil
	default:
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("unsupported cache type: %s", cfg.Type.String()), nil)
	}
}
