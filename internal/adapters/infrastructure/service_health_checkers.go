package infrastructure

import (
	"context"

	"pushdispatch.app/internal/ports"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// Pinger is implemented by caches that talk to a remote server
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheHealthChecker reports the sent-ledger cache state
type CacheHealthChecker struct {
	cacheType string
	cache     interface{}
}

func NewCacheHealthChecker(cacheType string, cache interface{}) *CacheHealthChecker {
	return &CacheHealthChecker{cacheType: cacheType, cache: cache}
}

// Check pings remote caches; in-process caches are always healthy.
func (c *CacheHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "cache",
		Status:    statusHealthy,
		Details:   map[string]interface{}{"type": c.cacheType},
	}

	if c.cache == nil {
		status.Status = statusUnhealthy
		status.Error = "cache is not available"
		return status
	}
	if pinger, ok := c.cache.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			status.Status = statusUnhealthy
			status.Error = err.Error()
		}
	}
	return status
}

// TransportHealthChecker reports which push transports are configured
type TransportHealthChecker struct {
	tokenPush ports.TokenPushTransport
	relayPush ports.RelayPushTransport
}

func NewTransportHealthChecker(tokenPush ports.TokenPushTransport, relayPush ports.RelayPushTransport) *TransportHealthChecker {
	return &TransportHealthChecker{tokenPush: tokenPush, relayPush: relayPush}
}

func (t *TransportHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "transports",
		Status:    statusHealthy,
		Details: map[string]interface{}{
			"tokenPush": statusDisabled,
			"relayPush": statusDisabled,
		},
	}

	if t.tokenPush != nil {
		status.Details["tokenPush"] = t.tokenPush.Name()
	}
	if t.relayPush != nil {
		status.Details["relayPush"] = t.relayPush.Name()
	}
	if t.tokenPush == nil && t.relayPush == nil {
		status.Status = statusUnhealthy
		status.Error = "no push transport configured"
	}
	return status
}
