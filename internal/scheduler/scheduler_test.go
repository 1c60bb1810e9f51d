package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/ledgersync/internal/modules/syncer"
	"github.com/aristath/ledgersync/internal/reliability"
)

type countingJob struct {
	name  string
	runs  int32
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	atomic.AddInt32(&j.runs, 1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 15m", &countingJob{name: "sync_all"}))
	assert.Error(t, s.AddJob("@every 1h", &countingJob{name: "sync_all"}), "duplicate names are rejected")
	assert.Error(t, s.AddJob("not a schedule", &countingJob{name: "broken"}))
	require.NoError(t, s.AddJob("0 0 3 * * *", &countingJob{name: "ledger_backup"}), "six-field schedules are accepted")

	jobs := s.Jobs()
	assert.Len(t, jobs, 2)
	assert.Contains(t, jobs, "sync_all")
	assert.Contains(t, jobs, "ledger_backup")
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "fast"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&job.runs) >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.NotEmpty(t, s.Jobs()["fast"])
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "manual", err: errors.New("failed")}

	assert.Error(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs)
}

func TestScheduler_RunRecoversPanics(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "panicky", panic: true}

	assert.NotPanics(t, func() { s.run(job) })
	assert.Equal(t, int32(1), job.runs)
}

type fakeBulkSyncer struct {
	report syncer.Report
	calls  int
}

func (f *fakeBulkSyncer) SyncAll(ctx context.Context) syncer.Report {
	f.calls++
	return f.report
}

func TestSyncAllJob(t *testing.T) {
	tests := []struct {
		name    string
		report  syncer.Report
		wantErr bool
	}{
		{"success", syncer.Report{Uploaded: 2, Merged: 1}, false},
		{"skipped offline", syncer.Report{Skipped: syncer.SkipOffline}, false},
		{"skipped busy", syncer.Report{Skipped: syncer.SkipBusy}, false},
		{"upload failures are reported through notifications", syncer.Report{Failed: 1}, false},
		{"pull failure", syncer.Report{PullError: "query failed"}, true},
		{"read failure", syncer.Report{Error: "persistence failure"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeBulkSyncer{report: tt.report}
			job := NewSyncAllJob(fake)

			err := job.Run()
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, 1, fake.calls)
			assert.Equal(t, "sync_all", job.Name())
		})
	}
}

type fakeBackups struct {
	createErr error
	rotateErr error
	keep      int
	rotated   bool
}

func (f *fakeBackups) CreateAndUpload(ctx context.Context) (reliability.BackupInfo, error) {
	if f.createErr != nil {
		return reliability.BackupInfo{}, f.createErr
	}
	return reliability.BackupInfo{Key: "ledgersync-backup-2024-06-01-030000.db.gz", Size: 128}, nil
}

func (f *fakeBackups) RotateBackups(ctx context.Context, keep int) (int, error) {
	f.rotated = true
	f.keep = keep
	return 1, f.rotateErr
}

func TestBackupJob(t *testing.T) {
	t.Run("creates and rotates", func(t *testing.T) {
		fake := &fakeBackups{}
		job := NewBackupJob(fake, 7)

		require.NoError(t, job.Run())
		assert.True(t, fake.rotated)
		assert.Equal(t, 7, fake.keep)
		assert.Equal(t, "ledger_backup", job.Name())
	})

	t.Run("create failure skips rotation", func(t *testing.T) {
		fake := &fakeBackups{createErr: errors.New("no bucket")}
		job := NewBackupJob(fake, 7)

		assert.Error(t, job.Run())
		assert.False(t, fake.rotated)
	})

	t.Run("rotation failure is not fatal", func(t *testing.T) {
		fake := &fakeBackups{rotateErr: errors.New("list failed")}
		assert.NoError(t, NewBackupJob(fake, 7).Run())
	})
}
