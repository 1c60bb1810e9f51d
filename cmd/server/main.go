// Package main is the entry point for ledgersync, an offline-first
// transaction ledger that keeps a local store in sync with a remote ledger.
//
// Startup order:
//  1. Load configuration and build the logger
//  2. Wire dependencies (database, store, remote, sync engine, jobs)
//  3. Start the HTTP server, the sync trigger and the scheduler
//  4. Wait for a shutdown signal and stop everything in reverse order
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/ledgersync/internal/config"
	"github.com/aristath/ledgersync/internal/di"
	"github.com/aristath/ledgersync/internal/server"
	"github.com/aristath/ledgersync/internal/version"
	"github.com/aristath/ledgersync/pkg/logger"
)

func main() {
	// Load configuration first to get log level
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
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", version.Version).
		Str("data_dir", cfg.DataDir).
		Str("remote", cfg.Remote.Backend).
		Msg("Starting ledgersync")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	srvCfg := server.Config{
		Log:          log,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		CORSOrigins:  cfg.CORS,
		RateLimit:    cfg.RateLimit,
		DataDir:      cfg.DataDir,
		DB:           container.DB,
		Ledger:       container.Ledger,
		Engine:       container.Engine,
		Monitor:      container.Monitor,
		EventManager: container.EventManager,
		Jobs:         container.Scheduler,
	}
	// Assigned separately so a nil service stays a nil interface
	if container.Backups != nil {
		srvCfg.Backups = container.Backups
	}
	srv := server.New(srvCfg)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Load the local collection and run the startup sync
	if err := container.Trigger.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sync trigger")
	}

	container.Scheduler.Start()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop scheduled jobs, then connectivity-driven syncs; running cycles finish first
	container.Scheduler.Stop()
	container.Trigger.Stop()

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Server stopped")
}
