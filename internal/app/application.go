package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
	"pushdispatch.app/internal/adapters/api"
	"pushdispatch.app/internal/adapters/infrastructure"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/core/campaign"
	"pushdispatch.app/internal/core/device"
	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/core/ledger"
	"pushdispatch.app/internal/ports"
)

type Application struct {
	config    *config.Config
	container *DependencyContainer
	ports     *ports.ApplicationPorts

	// Use Cases
	deviceUseCase   *device.UseCase
	dispatchUseCase *dispatch.UseCase
	ledger          *ledger.Ledger
	scheduler       *campaign.Scheduler

	// Adapters
	httpAdapter *api.HTTPServerAdapter
}

func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	container, err := NewDependencyContainer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize dependencies: %w", err)
	}

	app, err := NewApplicationWithDependencies(cfg, container)
	if err != nil {
		_ = container.Cleanup()
		return nil, err
	}
	return app, nil
}

// NewApplicationWithDependencies creates an application around a prepared container
func NewApplicationWithDependencies(cfg *config.Config, container *DependencyContainer) (*Application, error) {
	app := &Application{
		config:    cfg,
		container: container,
		ports:     container.ApplicationPorts(),
	}

	if err := app.initializeUseCases(); err != nil {
		return nil, fmt.Errorf("initialize use cases: %w", err)
	}

	if err := app.initializeAdapters(); err != nil {
		return nil, fmt.Errorf("initialize adapters: %w", err)
	}

	return app, nil
}

func (a *Application) initializeUseCases() error {
	slog.Info("Initializing use cases...")

	deviceUseCase, err := device.NewUseCase(device.UseCaseDependencies{
		RegistrationRepo: a.ports.RegistrationRepository,
		Logger:           a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create device use case: %w", err)
	}
	a.deviceUseCase = deviceUseCase

	dispatchUseCase, err := dispatch.NewUseCase(dispatch.UseCaseDependencies{
		RegistrationRepo: a.ports.RegistrationRepository,
		TokenPush:        a.ports.TokenPush,
		RelayPush:        a.ports.RelayPush,
		Config:           a.ports.ConfigProvider,
		Metrics:          a.ports.Metrics,
		Logger:           a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create dispatch use case: %w", err)
	}
	a.dispatchUseCase = dispatchUseCase

	sendLedger, err := ledger.New(ledger.Dependencies{
		Cache:        a.ports.SentCache,
		SendLogRepo:  a.ports.SendLogRepository,
		CacheMetrics: a.ports.CacheMetrics,
		Config:       a.ports.ConfigProvider,
		Metrics:      a.ports.Metrics,
		Logger:       a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create send ledger: %w", err)
	}
	a.ledger = sendLedger

	if !a.config.Campaign.Enabled || a.ports.TreatmentAPI == nil {
		slog.Info("Campaigns disabled")
		return nil
	}

	scheduler, err := campaign.NewScheduler(campaign.SchedulerDependencies{
		RegistrationRepo: a.ports.RegistrationRepository,
		States:           campaign.NewStateLoader(a.ports.TreatmentAPI),
		Ledger:           sendLedger,
		Dispatcher:       dispatchUseCase,
		Config:           a.ports.ConfigProvider,
		Metrics:          a.ports.Metrics,
		Logger:           a.ports.Logger,
	})
	if err != nil {
		return fmt.Errorf("create campaign scheduler: %w", err)
	}
	a.scheduler = scheduler

	slog.Info("Use cases initialized successfully")
	return nil
}

func (a *Application) initializeAdapters() error {
	slog.Info("Initializing adapters...")

	if a.config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var dbChecker ports.HealthChecker
	if db, ok := a.ports.Database.(*gorm.DB); ok {
		dbChecker = infrastructure.NewDatabaseHealthChecker(db, a.ports.RegistrationRepository)
	}
	healthChecker := infrastructure.NewSystemHealthChecker(infrastructure.SystemHealthCheckerConfig{
		DatabaseChecker:  dbChecker,
		CacheChecker:     infrastructure.NewCacheHealthChecker(a.config.Cache.Type.String(), a.ports.SentCache),
		TransportChecker: infrastructure.NewTransportHealthChecker(a.ports.TokenPush, a.ports.RelayPush),
		ConfigProvider:   a.ports.ConfigProvider,
	})

	metricsCollector, ok := a.ports.Metrics.(api.MetricsCollector)
	if !ok {
		return fmt.Errorf("metrics collector does not expose a snapshot")
	}

	opts := api.ServerOptions{
		Config: api.ServerConfig{
			Port:        a.config.Server.Port,
			Environment: a.config.Server.Environment,
		},
		DeviceUseCase:    a.deviceUseCase,
		DispatchUseCase:  a.dispatchUseCase,
		MetricsCollector: metricsCollector,
		HealthChecker:    healthChecker,
		MetricsHandler:   promhttp.HandlerFor(a.container.Registry(), promhttp.HandlerOpts{}),
	}
	if a.scheduler != nil {
		opts.CampaignRunner = a.scheduler
	}

	httpAdapter, err := api.NewHTTPServerAdapter(opts)
	if err != nil {
		return fmt.Errorf("create HTTP adapter: %w", err)
	}
	a.httpAdapter = httpAdapter

	slog.Info("Adapters initialized successfully")
	return nil
}

// Start warms the ledger cache, starts the campaign scheduler and then
// serves HTTP until Shutdown.
func (a *Application) Start(ctx context.Context) error {
	slog.Info("Starting application...")

	if loaded, err := a.ledger.Rehydrate(ctx); err != nil {
		slog.Warn("Ledger rehydration failed, relying on durable lookups", "error", err)
	} else {
		slog.Info("Ledger rehydrated", "entries", loaded)
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("start campaign scheduler: %w", err)
		}
	}

	return a.httpAdapter.Start()
}

// Shutdown stops accepting requests and campaign firings, lets in-flight
// work and the evictions it started finish, then releases every resource.
func (a *Application) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	var firstErr error
	if err := a.httpAdapter.Shutdown(ctx); err != nil {
		slog.Error("Error shutting down HTTP server", "error", err)
		firstErr = fmt.Errorf("shutdown HTTP server: %w", err)
	}

	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			slog.Error("Error stopping campaign scheduler", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.dispatchUseCase.Drain()
	a.ledger.Wait()

	if err := a.container.Cleanup(); err != nil {
		slog.Warn("Error releasing resources", "error", err)
	}

	slog.Info("Application shutdown complete")
	return firstErr
}

// Config returns the application configuration
func (a *Application) Config() *config.Config {
	return a.config
}

// GetRouter returns the Gin router for testing
func (a *Application) GetRouter() *gin.Engine {
	return a.httpAdapter.GetRouter()
}

func (a *Application) GetDispatchUseCase() *dispatch.UseCase {
	return a.dispatchUseCase
}

func (a *Application) GetLedger() *ledger.Ledger {
	return a.ledger
}

// GetScheduler returns nil when campaigns are disabled.
func (a *Application) GetScheduler() *campaign.Scheduler {
	return a.scheduler
}
