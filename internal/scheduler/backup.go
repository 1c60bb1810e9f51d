package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/reliability"
)

// BackupCreator uploads database snapshots and prunes old ones
type BackupCreator interface {
	CreateAndUpload(ctx context.Context) (reliability.BackupInfo, error)
	RotateBackups(ctx context.Context, keep int) (int, error)
}

// BackupJob uploads a snapshot of the local database and keeps the newest ones
type BackupJob struct {
	backups BackupCreator
	retain  int
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(backups BackupCreator, retain int) *BackupJob {
	return &BackupJob{
		backups: backups,
		retain:  retain,
		timeout: 10 * time.Minute,
		log:     zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *BackupJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run creates and uploads a backup, then rotates old ones.
// A rotation failure is logged but does not fail the job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	info, err := j.backups.CreateAndUpload(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	deleted, err := j.backups.RotateBackups(ctx, j.retain)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to rotate backups")
	}

	j.log.Info().
		Str("key", info.Key).
		Int64("size", info.Size).
		Int("rotated", deleted).
		Msg("Backup job completed")

	return nil
}
