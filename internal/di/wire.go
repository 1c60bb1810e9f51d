package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the local database
// 2. Build store, repository, events, remote, connectivity and sync services
// 3. Register scheduled jobs
//
// Nothing is started; callers start the trigger and the scheduler.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := InitializeDatabase(cfg)
	if err != nil {
		return nil, err
	}

	container := &Container{Config: cfg, DB: db}

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}

// Close drops internal subscriptions, waits for in-flight syncs and event
// deliveries, then closes the database. Start-ed components (trigger,
// scheduler) must be stopped first.
func (c *Container) Close() error {
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	c.unsubscribe = nil

	if c.Engine != nil {
		c.Engine.Wait()
	}
	if c.EventBus != nil {
		c.EventBus.Wait()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
