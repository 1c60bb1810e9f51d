package scheduler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/modules/syncer"
)

// BulkSyncer runs one bulk sync cycle
type BulkSyncer interface {
	SyncAll(ctx context.Context) syncer.Report
}

// SyncAllJob periodically drains pending uploads and pulls remote changes
type SyncAllJob struct {
	syncer BulkSyncer
	log    zerolog.Logger
}

// NewSyncAllJob creates a new SyncAllJob
func NewSyncAllJob(s BulkSyncer) *SyncAllJob {
	return &SyncAllJob{
		syncer: s,
		log:    zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *SyncAllJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *SyncAllJob) Name() string {
	return "sync_all"
}

// Run executes one bulk sync. Skipped cycles are not errors.
func (j *SyncAllJob) Run() error {
	report := j.syncer.SyncAll(context.Background())

	if report.Skipped != "" {
		j.log.Debug().Str("reason", string(report.Skipped)).Msg("Scheduled sync skipped")
		return nil
	}

	j.log.Info().
		Int("uploaded", report.Uploaded).
		Int("failed", report.Failed).
		Int("merged", report.Merged).
		Msg("Scheduled sync completed")

	switch {
	case report.Error != "":
		return errors.New(report.Error)
	case report.PullError != "":
		return errors.New(report.PullError)
	}
	return nil
}
