// Package ports defines the interfaces for external dependencies in our hexagonal architecture.
// These interfaces are implemented by adapters and mocked for testing.
package ports

// ApplicationPorts aggregates all ports for dependency injection
type ApplicationPorts struct {
	// Persistence
	RegistrationRepository RegistrationRepository
	SendLogRepository      SendLogRepository

	// Push transports
	TokenPush TokenPushTransport
	RelayPush RelayPushTransport

	// Upstream data
	TreatmentAPI TreatmentAPI

	// Cache
	SentCache    CacheProvider
	CacheMetrics CacheMetrics

	// Infrastructure
	ConfigProvider ConfigProvider
	Logger         Logger
	Metrics        MetricsCollector
	Database       interface{}
}
