// Package api provides HTTP adapters for the hexagonal architecture
// These adapters handle incoming HTTP requests and translate them to use cases
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pushdispatch.app/internal/core/campaign"
	"pushdispatch.app/internal/core/device"
	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port        int
	Environment string
}

// HTTPServerAdapter implements HTTP server using Gin framework
type HTTPServerAdapter struct {
	router           *gin.Engine
	server           *http.Server
	config           ServerConfig
	deviceUseCase    DeviceUseCase
	dispatchUseCase  DispatchUseCase
	campaignRunner   CampaignRunner
	metricsCollector MetricsCollector
	healthChecker    ports.SystemHealthChecker
	metricsHandler   http.Handler
	now              func() time.Time
}

// Use case interfaces that the HTTP adapter depends on
type DeviceUseCase interface {
	RegisterDevice(ctx context.Context, params device.RegisterParams) (*device.Registration, error)
	ListDevices(ctx context.Context) ([]*device.Registration, error)
	CountDevices(ctx context.Context) (int64, error)
}

type DispatchUseCase interface {
	SendNow(ctx context.Context, title, body string) (*dispatch.Summary, error)
	SendToRecipients(ctx context.Context, params dispatch.SendToRecipientsParams) ([]dispatch.RecipientSummary, error)
}

type CampaignRunner interface {
	Jobs() []campaign.Job
	RunJob(ctx context.Context, name string) (*campaign.RunReport, error)
}

type MetricsCollector interface {
	GetMetrics(ctx context.Context) (map[string]interface{}, error)
}

// ServerOptions represents options for creating the HTTP server
type ServerOptions struct {
	Config           ServerConfig
	DeviceUseCase    DeviceUseCase
	DispatchUseCase  DispatchUseCase
	CampaignRunner   CampaignRunner
	MetricsCollector MetricsCollector
	HealthChecker    ports.SystemHealthChecker
	// MetricsHandler serves /metrics; defaults to the global Prometheus registry.
	MetricsHandler http.Handler
}

// NewHTTPServerAdapter creates a new HTTP server adapter
func NewHTTPServerAdapter(opts ServerOptions) (*HTTPServerAdapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware())

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	server := &HTTPServerAdapter{
		router:           router,
		config:           opts.Config,
		deviceUseCase:    opts.DeviceUseCase,
		dispatchUseCase:  opts.DispatchUseCase,
		campaignRunner:   opts.CampaignRunner,
		metricsCollector: opts.MetricsCollector,
		healthChecker:    opts.HealthChecker,
		metricsHandler:   metricsHandler,
		now:              time.Now,
	}

	server.setupRoutes()
	server.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server, nil
}

// Validate checks if all required dependencies are provided.
// The campaign runner is optional.
func (opts *ServerOptions) Validate() error {
	if opts.DeviceUseCase == nil {
		return errors.NewValidationError("device use case is required")
	}
	if opts.DispatchUseCase == nil {
		return errors.NewValidationError("dispatch use case is required")
	}
	if opts.MetricsCollector == nil {
		return errors.NewValidationError("metrics collector is required")
	}
	if opts.HealthChecker == nil {
		return errors.NewValidationError("health checker is required")
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *HTTPServerAdapter) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	{
		api.POST("/register-device", s.registerDevice)
		api.GET("/devices", s.listDevices)
		api.GET("/devices/count", s.countDevices)
		api.POST("/send-notification", s.sendNotification)
		api.POST("/send-to-recipients", s.sendToRecipients)
		api.GET("/campaigns", s.listCampaigns)
		api.POST("/campaigns/:name/run", s.runCampaign)
		api.GET("/metrics", s.getMetrics)
	}

	s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	s.router.GET("/", s.adminPage)
}

// Start serves HTTP until Shutdown is called.
func (s *HTTPServerAdapter) Start() error {
	slog.Info("Starting HTTP server", "port", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *HTTPServerAdapter) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetRouter returns the router for testing purposes
func (s *HTTPServerAdapter) GetRouter() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
