package infrastructure

import (
	"context"

	"pushdispatch.app/internal/ports"
)

// SystemHealthChecker aggregates all health checks
type SystemHealthChecker struct {
	checkers       map[string]ports.HealthChecker
	configProvider ports.ConfigProvider
}

// SystemHealthCheckerConfig holds the configuration for creating a system health checker
type SystemHealthCheckerConfig struct {
	DatabaseChecker  ports.HealthChecker
	CacheChecker     ports.HealthChecker
	TransportChecker ports.HealthChecker
	ConfigProvider   ports.ConfigProvider
}

// NewSystemHealthChecker creates a new system health checker
func NewSystemHealthChecker(config SystemHealthCheckerConfig) *SystemHealthChecker {
	checkers := make(map[string]ports.HealthChecker)
	if config.DatabaseChecker != nil {
		checkers["database"] = config.DatabaseChecker
	}
	if config.CacheChecker != nil {
		checkers["cache"] = config.CacheChecker
	}
	if config.TransportChecker != nil {
		checkers["transports"] = config.TransportChecker
	}
	return &SystemHealthChecker{checkers: checkers, configProvider: config.ConfigProvider}
}

// CheckAll performs health checks on all components
func (s *SystemHealthChecker) CheckAll(ctx context.Context) map[string]ports.HealthStatus {
	results := make(map[string]ports.HealthStatus, len(s.checkers)+1)
	for name, checker := range s.checkers {
		results[name] = checker.Check(ctx)
	}

	if s.configProvider != nil {
		appConfig := s.configProvider.GetAppConfig()
		results["config"] = ports.HealthStatus{
			Component: "config",
			Status:    statusHealthy,
			Details: map[string]interface{}{
				"environment": appConfig.Environment,
			},
		}
	}
	return results
}

// IsHealthy reports whether every component is healthy.
func IsHealthy(results map[string]ports.HealthStatus) bool {
	for _, status := range results {
		if status.Status == statusUnhealthy {
			return false
		}
	}
	return true
}
