package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/mocks"
	"pushdispatch.app/internal/ports"
)

type fakeCacheMetrics struct{}

func (fakeCacheMetrics) GetStats() ports.CacheStats {
	return ports.CacheStats{Hits: 3, Misses: 1, TotalOps: 4, HitRatio: 0.75}
}
func (fakeCacheMetrics) RecordHit()  {}
func (fakeCacheMetrics) RecordMiss() {}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(PrometheusMetricsConfig{Registerer: reg, CacheMetrics: fakeCacheMetrics{}})

	m.RecordDelivery("token-push", true)
	m.RecordDelivery("token-push", true)
	m.RecordDelivery("relay-push", false)
	m.RecordEviction(true)
	m.RecordEviction(false)
	m.ObserveDispatch(120 * time.Millisecond)
	m.RecordLedgerLookup("cache", true)
	m.RecordCampaignRecipient("evening", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("token-push", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("relay-push", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.campaignRuns.WithLabelValues("evening", "sent")))

	snapshot, err := m.GetMetrics(context.Background())
	require.NoError(t, err)
	dispatch := snapshot["dispatch"].(map[string]interface{})
	assert.Equal(t, int64(2), dispatch["delivered"])
	assert.Equal(t, int64(1), dispatch["failed"])
	assert.Equal(t, int64(1), dispatch["evicted"])
	assert.Equal(t, int64(1), snapshot["campaigns"].(map[string]int64)["evening.sent"])
	assert.Equal(t, 0.75, snapshot["cache"].(map[string]interface{})["hit_ratio"])
}

func TestConfigProviderAdapter(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{Environment: "test", DefaultTitle: "Cxlus"},
		Push:      config.PushConfig{SendTimeout: 5 * time.Second, TokenConcurrency: 4, RelayMarker: "expo"},
		Treatment: config.TreatmentConfig{Timeout: 7 * time.Second},
		Campaign:  config.CampaignConfig{Timezone: "Europe/London", Jobs: []string{"evening"}, StatusPolicy: "suppress", DeviceFanout: "all"},
		Ledger:    config.LedgerConfig{CacheRetention: 48 * time.Hour, DurableRetention: 168 * time.Hour},
	}
	provider := NewConfigProviderAdapter(cfg)

	assert.Equal(t, ports.AppConfig{Environment: "test", DefaultTitle: "Cxlus"}, provider.GetAppConfig())
	assert.Equal(t, "expo", provider.GetPushConfig().RelayVendorMarker)
	campaign := provider.GetCampaignConfig()
	assert.Equal(t, 7*time.Second, campaign.StateTimeout)
	assert.Equal(t, []string{"evening"}, campaign.EnabledJobs)
	assert.Equal(t, "Europe/London", provider.GetLedgerConfig().Timezone)
}

func TestHealthCheckers(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("Database", func(t *testing.T) {
		repo := mocks.NewRegistrationRepository(t)
		repo.On("Count", mock.Anything).Return(int64(3), nil)

		status := NewDatabaseHealthChecker(db, repo).Check(ctx)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, int64(3), status.Details["registrations"])
		assert.Contains(t, status.Details, "openConnections")

		assert.Equal(t, "healthy", NewDatabaseHealthChecker(db, nil).Check(ctx).Status)
		assert.Equal(t, "unhealthy", NewDatabaseHealthChecker(nil, nil).Check(ctx).Status)
	})

	t.Run("DatabaseRegistrationsUnreadable", func(t *testing.T) {
		repo := mocks.NewRegistrationRepository(t)
		repo.On("Count", mock.Anything).Return(int64(0), errors.New("no such table: registrations"))

		status := NewDatabaseHealthChecker(db, repo).Check(ctx)

		assert.Equal(t, "unhealthy", status.Status)
		assert.Contains(t, status.Error, "no such table")
		assert.NotContains(t, status.Details, "registrations")
	})

	t.Run("Cache", func(t *testing.T) {
		assert.Equal(t, "healthy", NewCacheHealthChecker("memory", struct{}{}).Check(ctx).Status)
		status := NewCacheHealthChecker("redis", failingPinger{}).Check(ctx)
		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "connection refused", status.Error)
	})

	t.Run("Transports", func(t *testing.T) {
		relay := mocks.NewRelayPushTransport(t)

		status := NewTransportHealthChecker(nil, relay).Check(ctx)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "disabled", status.Details["tokenPush"])
		assert.Equal(t, "relay-push", status.Details["relayPush"])

		assert.Equal(t, "unhealthy", NewTransportHealthChecker(nil, nil).Check(ctx).Status)
	})

	t.Run("System", func(t *testing.T) {
		cfg := mocks.NewConfigProvider(t)
		cfg.On("GetAppConfig").Return(ports.AppConfig{Environment: "test"})

		system := NewSystemHealthChecker(SystemHealthCheckerConfig{
			DatabaseChecker:  NewDatabaseHealthChecker(db, nil),
			CacheChecker:     NewCacheHealthChecker("redis", failingPinger{}),
			TransportChecker: NewTransportHealthChecker(nil, nil),
			ConfigProvider:   cfg,
		})

		results := system.CheckAll(ctx)
		assert.Len(t, results, 4)
		assert.Equal(t, "test", results["config"].Details["environment"])
		assert.False(t, IsHealthy(results))
	})
}
