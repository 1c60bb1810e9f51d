package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/config"
	"github.com/aristath/ledgersync/internal/connectivity"
	"github.com/aristath/ledgersync/internal/reliability"
	"github.com/aristath/ledgersync/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers every periodic job.
// An empty schedule disables the corresponding job.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.Engine == nil {
		return fmt.Errorf("services must be initialized before jobs")
	}

	container.Scheduler = scheduler.New(log)

	// Periodic bulk sync
	if cfg.Sync.Schedule != "" {
		if err := container.Scheduler.AddJob(cfg.Sync.Schedule, scheduler.NewSyncAllJob(container.Engine)); err != nil {
			return err
		}
	}

	// Connectivity probing
	if cfg.Network.ProbeAddr != "" && cfg.Network.ProbeSchedule != "" {
		prober := connectivity.NewProber(container.Monitor, cfg.Network.ProbeAddr, cfg.Network.ProbeTimeout, log)
		if err := container.Scheduler.AddJob(cfg.Network.ProbeSchedule, prober); err != nil {
			return err
		}
	}

	// Local database maintenance
	if cfg.Maintenance.Schedule != "" {
		maintenance := reliability.NewDailyMaintenanceJob(container.DB, cfg.DataDir, log)
		if err := container.Scheduler.AddJob(cfg.Maintenance.Schedule, maintenance); err != nil {
			return err
		}
	}

	// Snapshot backups
	if container.Backups != nil && cfg.Backup.Schedule != "" {
		backup := scheduler.NewBackupJob(container.Backups, cfg.Backup.Retain)
		if err := container.Scheduler.AddJob(cfg.Backup.Schedule, backup); err != nil {
			return err
		}
	}

	log.Info().Int("jobs", len(container.Scheduler.Jobs())).Msg("Jobs registered")
	return nil
}
