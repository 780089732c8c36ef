package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"pushdispatch.app/internal/app"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found or error loading it")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApplication(ctx)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	cfg := application.Config()
	slog.Info("Configuration loaded successfully")
	slog.Info("Server configuration",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"tokenPush", cfg.Push.TokenProvider.String(),
		"campaigns", cfg.Campaign.Enabled)

	done := setupGracefulShutdown(cancel, application)

	slog.Info("Starting push dispatch service...")
	if err := application.Start(ctx); err != nil {
		slog.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	<-done
}

// setupGracefulShutdown returns a channel closed once shutdown has finished.
func setupGracefulShutdown(cancel context.CancelFunc, application *app.Application) <-chan struct{} {
	done := make(chan struct{})
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer close(done)
		sig := <-c
		slog.Info("Received shutdown signal...", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error during graceful shutdown", "error", err)
		}
	}()
	return done
}
