package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

const (
	defaultCacheRetention   = 48 * time.Hour
	defaultDurableRetention = 7 * 24 * time.Hour
	sweepTimeout            = time.Minute

	layerCache   = "cache"
	layerDurable = "durable"
)

// Ledger answers whether a notification kind was already sent to a recipient
// in a period. The durable log is authoritative; the cache only short-circuits.
type Ledger struct {
	cache        ports.CacheProvider
	repo         ports.SendLogRepository
	cacheMetrics ports.CacheMetrics
	metrics      ports.MetricsCollector
	logger       ports.Logger

	cacheRetention   time.Duration
	durableRetention time.Duration
	location         *time.Location

	sweeping atomic.Bool
	sweeps   sync.WaitGroup
	now      func() time.Time
}

type Dependencies struct {
	Cache        ports.CacheProvider
	SendLogRepo  ports.SendLogRepository
	CacheMetrics ports.CacheMetrics
	Config       ports.ConfigProvider
	Metrics      ports.MetricsCollector
	Logger       ports.Logger
}

func New(deps Dependencies) (*Ledger, error) {
	if deps.Cache == nil {
		return nil, errors.NewValidationError("cache is required")
	}
	if deps.SendLogRepo == nil {
		return nil, errors.NewValidationError("send log repository is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics collector is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	cfg := deps.Config.GetLedgerConfig()
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("invalid ledger timezone %q", cfg.Timezone), err)
		}
		loc = l
	}

	l := &Ledger{
		cache:            deps.Cache,
		repo:             deps.SendLogRepo,
		cacheMetrics:     deps.CacheMetrics,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		cacheRetention:   cfg.CacheRetention,
		durableRetention: cfg.DurableRetention,
		location:         loc,
		now:              time.Now,
	}
	if l.cacheRetention <= 0 {
		l.cacheRetention = defaultCacheRetention
	}
	if l.durableRetention <= 0 {
		l.durableRetention = defaultDurableRetention
	}
	return l, nil
}

// Location is the zone period keys and "today" are computed in.
func (l *Ledger) Location() *time.Location {
	return l.location
}

// WasSent checks the cache, then the durable log. A durable hit is written
// back to the cache.
func (l *Ledger) WasSent(ctx context.Context, key Key) (bool, error) {
	hit, err := l.cache.Exists(ctx, key.cacheKey())
	if err != nil {
		l.logger.Warn("Ledger cache lookup failed", ports.F("error", err), ports.F("key", key.String()))
	}
	l.recordLookup(layerCache, hit)
	if hit {
		return true, nil
	}

	found, err := l.repo.Exists(ctx, key.RecipientID, key.Kind, key.PeriodKey)
	if err != nil {
		return false, fmt.Errorf("check send log for %s: %w", key, err)
	}
	l.metrics.RecordLedgerLookup(layerDurable, found)
	if !found {
		return false, nil
	}

	if err := l.cache.Set(ctx, key.cacheKey(), l.stamp(l.now()), l.cacheRetention); err != nil {
		l.logger.Warn("Failed to back-fill ledger cache", ports.F("error", err), ports.F("key", key.String()))
	}
	return true, nil
}

// MarkSent records the send in both layers and reports whether this call
// claimed the key. A false result means another caller recorded it first.
//
// The cache write is kept when the durable write fails so the same process
// does not send twice; the error is still returned.
func (l *Ledger) MarkSent(ctx context.Context, key Key) (bool, error) {
	now := l.now()

	cacheClaimed, cacheErr := l.cache.SetIfAbsent(ctx, key.cacheKey(), l.stamp(now), l.cacheRetention)
	if cacheErr != nil {
		l.logger.Warn("Ledger cache write failed", ports.F("error", cacheErr), ports.F("key", key.String()))
	}

	durableClaimed, err := l.repo.InsertIfAbsent(ctx, &ports.SendLogData{
		RecipientID: key.RecipientID,
		Kind:        key.Kind,
		PeriodKey:   key.PeriodKey,
		SentAt:      now,
	})

	l.sweepAsync()

	if err != nil {
		l.logger.Error("Ledger durable write failed",
			ports.F("error", err),
			ports.F("key", key.String()),
			ports.F("cacheClaimed", cacheClaimed))
		return cacheErr == nil && cacheClaimed, fmt.Errorf("record send %s: %w", key, err)
	}
	return durableClaimed, nil
}

// Rehydrate loads today's durable records into the cache.
func (l *Ledger) Rehydrate(ctx context.Context) (int, error) {
	now := l.now().In(l.location)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.location)

	records, err := l.repo.FindSince(ctx, startOfDay)
	if err != nil {
		return 0, fmt.Errorf("load today's send log: %w", err)
	}

	loaded := 0
	for _, r := range records {
		key := Key{RecipientID: r.RecipientID, Kind: r.Kind, PeriodKey: r.PeriodKey}
		if err := l.cache.Set(ctx, key.cacheKey(), l.stamp(r.SentAt), l.cacheRetention); err != nil {
			l.logger.Warn("Failed to rehydrate ledger entry", ports.F("error", err), ports.F("key", key.String()))
			continue
		}
		loaded++
	}

	l.logger.Info("Ledger cache rehydrated",
		ports.F("records", len(records)),
		ports.F("loaded", loaded),
		ports.F("since", startOfDay))
	return loaded, nil
}

// Wait blocks until a running sweep finishes.
func (l *Ledger) Wait() {
	l.sweeps.Wait()
}

func (l *Ledger) sweepAsync() {
	if !l.sweeping.CompareAndSwap(false, true) {
		return
	}
	l.sweeps.Add(1)
	go func() {
		defer l.sweeps.Done()
		defer l.sweeping.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		l.sweep(ctx)
	}()
}

func (l *Ledger) sweep(ctx context.Context) {
	if purger, ok := l.cache.(ports.ExpiredPurger); ok {
		purged, err := purger.PurgeExpired(ctx)
		if err != nil {
			l.logger.Warn("Ledger cache purge failed", ports.F("error", err))
		} else if purged > 0 {
			l.logger.Debug("Purged expired ledger cache entries", ports.F("count", purged))
		}
	}

	cutoff := l.now().Add(-l.durableRetention)
	deleted, err := l.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		l.logger.Error("Ledger retention sweep failed", ports.F("error", err), ports.F("cutoff", cutoff))
		return
	}
	if deleted > 0 {
		l.logger.Info("Deleted expired send records", ports.F("count", deleted), ports.F("cutoff", cutoff))
	}
}

func (l *Ledger) recordLookup(layer string, hit bool) {
	l.metrics.RecordLedgerLookup(layer, hit)
	if l.cacheMetrics == nil {
		return
	}
	if hit {
		l.cacheMetrics.RecordHit()
	} else {
		l.cacheMetrics.RecordMiss()
	}
}

func (l *Ledger) stamp(t time.Time) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano))
}
