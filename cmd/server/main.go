// Package main is the entry point for the Unocoin account service. It restores the saved
// exchange session, keeps trades and KYC submissions in sync in the background and serves a
// local HTTP API over the session.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/unocoin/internal/config"
	"github.com/aristath/unocoin/internal/di"
	"github.com/aristath/unocoin/internal/metrics"
	"github.com/aristath/unocoin/internal/server"
	"github.com/aristath/unocoin/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires databases, transport, identity and session via the DI container
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully, saving the session last
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Unocoin account service")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Session:   container.Session,
		EventBus:  container.EventBus,
		Scheduler: container.Scheduler,
		Databases: container.Databases(),
		Metrics:   metrics.Handler(container.Registry),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for running jobs so no sync is cut off mid-save
	container.Scheduler.Stop()

	if container.Session.HasAccount() {
		if err := container.Delegate.Save(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to save session on shutdown")
		}
	}

	log.Info().Msg("Server stopped")
}
