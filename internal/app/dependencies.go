package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"pushdispatch.app/internal/adapters/database"
	"pushdispatch.app/internal/adapters/external"
	"pushdispatch.app/internal/adapters/infrastructure"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
)

type DependencyContainer struct {
	config     *config.Config
	db         *gorm.DB
	cache      external.SentCache
	fileLogger *infrastructure.FileLoggerAdapter
	registry   *prometheus.Registry
	ports      *ports.ApplicationPorts
}

// NewDependencyContainer connects to Postgres and builds every port from cfg.
func NewDependencyContainer(ctx context.Context, cfg *config.Config) (*DependencyContainer, error) {
	slog.Info("Initializing database connection...")

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	container, err := NewDependencyContainerWithDB(ctx, cfg, db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return container, nil
}

// NewDependencyContainerWithDB builds the ports around an already opened database.
func NewDependencyContainerWithDB(ctx context.Context, cfg *config.Config, db *gorm.DB) (*DependencyContainer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	container := &DependencyContainer{
		config:   cfg,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	slog.Info("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := container.initializePorts(ctx); err != nil {
		_ = container.closeResources()
		return nil, fmt.Errorf("initialize ports: %w", err)
	}
	return container, nil
}

func (c *DependencyContainer) initializePorts(ctx context.Context) error {
	slog.Info("Initializing ports...")

	logger, err := c.initializeLogger()
	if err != nil {
		return err
	}

	cache, err := external.NewCacheProviderFactory().CreateCacheProvider(&c.config.Cache)
	if err != nil {
		return fmt.Errorf("create cache provider: %w", err)
	}
	c.cache = cache
	slog.Info("Cache provider initialized",
		"type", c.config.Cache.Type.String(),
		"redis_addr", c.config.Cache.Redis.Addr)

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := infrastructure.NewPrometheusMetrics(infrastructure.PrometheusMetricsConfig{
		Registerer:   c.registry,
		CacheMetrics: cache,
	})

	tokenPush, err := external.NewTokenPushTransport(ctx, c.config.Push)
	if err != nil {
		return fmt.Errorf("create token-push transport: %w", err)
	}
	if tokenPush == nil {
		slog.Warn("Token-push transport disabled")
	} else {
		slog.Info("Token-push transport initialized", "provider", c.config.Push.TokenProvider.String())
	}

	relayPush, err := external.NewRelayTransport(external.RelayTransportParams{
		URL:     c.config.Push.RelayURL,
		Timeout: c.config.Push.SendTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create relay transport: %w", err)
	}

	var relay ports.RelayPushTransport = relayPush
	if c.config.Logging.Transports {
		if tokenPush != nil {
			tokenPush = external.NewTokenPushLoggingDecorator(tokenPush, logger)
		}
		relay = external.NewRelayPushLoggingDecorator(relayPush, logger)
		slog.Info("Push transport logging enabled")
	}

	var treatmentAPI ports.TreatmentAPI
	if c.config.Campaign.Enabled {
		client, err := external.NewTreatmentClient(external.TreatmentClientParams{
			BaseURL: c.config.Treatment.BaseURL,
			Token:   c.config.Treatment.Token,
			Timeout: c.config.Treatment.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("create treatment client: %w", err)
		}
		treatmentAPI = client
	}

	c.ports = &ports.ApplicationPorts{
		RegistrationRepository: database.NewRegistrationRepositoryAdapter(c.db),
		SendLogRepository:      database.NewSendLogRepositoryAdapter(c.db),

		TokenPush: tokenPush,
		RelayPush: relay,

		TreatmentAPI: treatmentAPI,

		SentCache:    cache,
		CacheMetrics: cache,

		ConfigProvider: infrastructure.NewConfigProviderAdapter(c.config),
		Logger:         logger,
		Metrics:        metrics,
		Database:       c.db,
	}

	slog.Info("Ports initialized successfully")
	return nil
}

// initializeLogger writes to LOG_FILE_PATH when set and to stdout otherwise.
func (c *DependencyContainer) initializeLogger() (ports.Logger, error) {
	level := c.config.Logging.SlogLevel()
	if c.config.Logging.FilePath == "" {
		return infrastructure.NewSlogLoggerAdapter(level), nil
	}

	fileLogger, err := infrastructure.NewFileLoggerAdapter(c.config.Logging.FilePath, level)
	if err != nil {
		slog.Warn("Failed to create file logger, falling back to slog", "error", err)
		return infrastructure.NewSlogLoggerAdapter(level), nil
	}
	c.fileLogger = fileLogger
	slog.Info("File logging enabled", "path", c.config.Logging.FilePath)
	return fileLogger, nil
}

func (c *DependencyContainer) ApplicationPorts() *ports.ApplicationPorts {
	return c.ports
}

func (c *DependencyContainer) Database() *gorm.DB {
	return c.db
}

// Registry is the Prometheus registry every collector is registered on.
func (c *DependencyContainer) Registry() *prometheus.Registry {
	return c.registry
}

// Cleanup closes the cache, the log file and the database, in that order.
func (c *DependencyContainer) Cleanup() error {
	return c.closeResources()
}

func (c *DependencyContainer) closeResources() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if closer, ok := c.cache.(interface{ Close() error }); ok {
		keep(closer.Close())
	}
	if c.fileLogger != nil {
		keep(c.fileLogger.Close())
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			keep(sqlDB.Close())
		}
	}
	return firstErr
}
