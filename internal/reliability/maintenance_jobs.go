package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/ledgersync/internal/database"
)

// Disk space thresholds for the data directory
const (
	diskCriticalBytes = 100 << 20 // local writes are likely to fail below this
	diskWarnBytes     = 1 << 30

	walWarnFrames = 1000
)

// DiskUsageFunc reports free bytes for a path
type DiskUsageFunc func(ctx context.Context, path string) (free uint64, err error)

// DailyMaintenanceJob checks database integrity, checkpoints the WAL and
// verifies free disk space in the data directory
type DailyMaintenanceJob struct {
	db        *database.DB
	dataDir   string
	diskUsage DiskUsageFunc
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:        db,
		dataDir:   dataDir,
		diskUsage: freeDiskBytes,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// SetDiskUsageFunc replaces the disk usage source
func (j *DailyMaintenanceJob) SetDiskUsageFunc(fn DiskUsageFunc) {
	j.diskUsage = fn
}

// Name returns the job name
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	// Step 1: Integrity check. Corruption cannot be repaired automatically; restore from a backup.
	if err := j.checkIntegrity(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("CRITICAL: Database integrity check failed")
		return err
	}

	// Step 2: WAL checkpoint (not critical)
	j.checkpointWAL(ctx)

	// Step 3: Disk space
	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	j.log.Info().Dur("duration", time.Since(startTime)).Msg("Daily maintenance completed")
	return nil
}

func (j *DailyMaintenanceJob) checkIntegrity(ctx context.Context) error {
	var result string
	if err := j.db.Conn().QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database %s is corrupted: %s", j.db.Name(), result)
	}
	return nil
}

func (j *DailyMaintenanceJob) checkpointWAL(ctx context.Context) {
	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, walFrames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &walFrames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
		return
	}

	event := j.log.Debug()
	if walFrames > walWarnFrames {
		event = j.log.Warn()
	}
	event.
		Str("database", j.db.Name()).
		Int("wal_frames", walFrames).
		Int("checkpointed", checkpointed).
		Bool("busy", busy != 0).
		Msg("WAL checkpoint")
}

func (j *DailyMaintenanceJob) checkDiskSpace(ctx context.Context) error {
	free, err := j.diskUsage(ctx, j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableMB := float64(free) / (1 << 20)
	j.log.Debug().Float64("available_mb", availableMB).Msg("Disk space check")

	switch {
	case free < diskCriticalBytes:
		j.log.Error().Float64("available_mb", availableMB).Msg("CRITICAL: Insufficient disk space for local writes")
		return fmt.Errorf("only %.0f MB free in %s", availableMB, j.dataDir)
	case free < diskWarnBytes:
		j.log.Warn().Float64("available_mb", availableMB).Msg("Disk space running low")
	}
	return nil
}

func freeDiskBytes(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
