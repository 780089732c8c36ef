package infrastructure

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"pushdispatch.app/internal/ports"
)

// PrometheusMetrics implements MetricsCollector on top of Prometheus and keeps
// running totals for the JSON metrics endpoint.
type PrometheusMetrics struct {
	deliveries    *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	dispatchTime  prometheus.Histogram
	ledgerLookups *prometheus.CounterVec
	campaignRuns  *prometheus.CounterVec

	cacheMetrics ports.CacheMetrics

	mu     sync.Mutex
	totals struct {
		delivered int64
		failed    int64
		evicted   int64
		campaigns map[string]int64
	}
}

// PrometheusMetricsConfig holds the configuration for creating the collector
type PrometheusMetricsConfig struct {
	Registerer   prometheus.Registerer
	CacheMetrics ports.CacheMetrics
}

// NewPrometheusMetrics registers the collectors on cfg.Registerer, or on the
// default registry when it is nil.
func NewPrometheusMetrics(cfg PrometheusMetricsConfig) *PrometheusMetrics {
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &PrometheusMetrics{
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushdispatch_deliveries_total",
				Help: "Per-device delivery outcomes by transport",
			},
			[]string{"transport", "success"},
		),
		evictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushdispatch_dead_token_evictions_total",
				Help: "Dead token evictions by result",
			},
			[]string{"success"},
		),
		dispatchTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pushdispatch_dispatch_duration_seconds",
				Help:    "Wall time of one dispatch across both transports",
				Buckets: prometheus.DefBuckets,
			},
		),
		ledgerLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushdispatch_ledger_lookups_total",
				Help: "Send ledger lookups by layer and result",
			},
			[]string{"layer", "hit"},
		),
		campaignRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushdispatch_campaign_recipients_total",
				Help: "Campaign recipients processed by job and result",
			},
			[]string{"job", "result"},
		),
		cacheMetrics: cfg.CacheMetrics,
	}
	m.totals.campaigns = make(map[string]int64)
	return m
}

func (m *PrometheusMetrics) RecordDelivery(transport string, success bool) {
	m.deliveries.WithLabelValues(transport, strconv.FormatBool(success)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.totals.delivered++
	} else {
		m.totals.failed++
	}
}

func (m *PrometheusMetrics) RecordEviction(success bool) {
	m.evictions.WithLabelValues(strconv.FormatBool(success)).Inc()
	if success {
		m.mu.Lock()
		m.totals.evicted++
		m.mu.Unlock()
	}
}

func (m *PrometheusMetrics) ObserveDispatch(duration time.Duration) {
	m.dispatchTime.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordLedgerLookup(layer string, hit bool) {
	m.ledgerLookups.WithLabelValues(layer, strconv.FormatBool(hit)).Inc()
}

func (m *PrometheusMetrics) RecordCampaignRecipient(job, result string) {
	m.campaignRuns.WithLabelValues(job, result).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.campaigns[job+"."+result]++
}

// GetMetrics returns a JSON-friendly snapshot of the running totals.
func (m *PrometheusMetrics) GetMetrics(ctx context.Context) (map[string]interface{}, error) {
	m.mu.Lock()
	campaigns := make(map[string]int64, len(m.totals.campaigns))
	for k, v := range m.totals.campaigns {
		campaigns[k] = v
	}
	metrics := map[string]interface{}{
		"dispatch": map[string]interface{}{
			"delivered": m.totals.delivered,
			"failed":    m.totals.failed,
			"evicted":   m.totals.evicted,
		},
		"campaigns": campaigns,
	}
	m.mu.Unlock()

	if m.cacheMetrics != nil {
		stats := m.cacheMetrics.GetStats()
		metrics["cache"] = map[string]interface{}{
			"hits":      stats.Hits,
			"misses":    stats.Misses,
			"total_ops": stats.TotalOps,
			"hit_ratio": stats.HitRatio,
			"updated":   stats.LastUpdated,
		}
	}
	return metrics, nil
}
