package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/domain"
	"github.com/aristath/ledgersync/internal/events"
	"github.com/aristath/ledgersync/internal/modules/ledger"
	"github.com/aristath/ledgersync/internal/remote"
	"github.com/aristath/ledgersync/internal/utils"
)

// Notification messages
const (
	msgOffline      = "Offline mode: using local data. Will sync when online."
	msgUploading    = "Uploading %d transactions..."
	msgUploaded     = "Transaction %s synced."
	msgUploadFailed = "Failed to sync transaction %s."
	msgBulkFailed   = "Changes saved locally. Will retry when online."
	msgMerged       = "Updated with %d new transactions."
	msgUpToDate     = "Already up to date."
	msgPullFailed   = "Failed to sync with server. Local data preserved."
	msgMarkFailed   = "Transaction %s uploaded but could not be saved locally. It will be re-sent."
)

const defaultCallTimeout = 30 * time.Second

// Outcome of a single-transaction sync request
type Outcome string

const (
	OutcomeSynced         Outcome = "synced"
	OutcomeFailed         Outcome = "failed"
	OutcomeSkippedBusy    Outcome = "skipped_busy"
	OutcomeSkippedOffline Outcome = "skipped_offline"
)

// SkipReason explains why a bulk sync did not run
type SkipReason string

const (
	SkipBusy    SkipReason = "busy"
	SkipOffline SkipReason = "offline"
)

// Network reports connectivity
type Network interface {
	Online() bool
}

// TxResult is the outcome of uploading one transaction
type TxResult struct {
	ID       string `json:"id"`
	State    State  `json:"state"` // StateSucceeded or StateFailed
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Report describes one bulk sync cycle
type Report struct {
	Skipped        SkipReason    `json:"skipped,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	Attempted      int           `json:"attempted"`
	Uploaded       int           `json:"uploaded"`
	Failed         int           `json:"failed"`
	Results        []TxResult    `json:"results"`
	Pulled         int           `json:"pulled"`
	Merged         int           `json:"merged"`
	CursorAdvanced bool          `json:"cursor_advanced"`
	Cursor         *time.Time    `json:"cursor,omitempty"`
	PullError      string        `json:"pull_error,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// Config tunes the engine
type Config struct {
	Retry       RetryPolicy
	CallTimeout time.Duration // Upper bound for one remote call
}

// Engine runs single-item and bulk sync cycles
type Engine struct {
	repo     *ledger.Repository
	remote   remote.Ledger
	network  Network
	events   *events.Manager
	progress *events.ProgressReporter
	guard    Guard
	retry    RetryPolicy
	timeout  time.Duration
	sleep    SleepFunc
	now      func() time.Time
	status   *statusTracker
	async    sync.WaitGroup
	log      zerolog.Logger
}

// NewEngine creates a sync engine
func NewEngine(
	repo *ledger.Repository,
	remoteLedger remote.Ledger,
	network Network,
	eventManager *events.Manager,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Engine{
		repo:     repo,
		remote:   remoteLedger,
		network:  network,
		events:   eventManager,
		progress: events.NewProgressReporter(eventManager, "sync"),
		retry:    cfg.Retry.normalized(),
		timeout:  timeout,
		sleep:    sleepContext,
		now:      time.Now,
		status:   newStatusTracker(),
		log:      log.With().Str("component", "sync_engine").Logger(),
	}
}

// SetSleepFunc replaces the backoff sleep (tests record delays instead of waiting)
func (e *Engine) SetSleepFunc(fn SleepFunc) {
	e.sleep = fn
}

// SetClock replaces the time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Status returns the current engine status
func (e *Engine) Status() Status {
	return e.status.snapshot()
}

// RetryPolicy returns the configured retry policy
func (e *Engine) RetryPolicy() RetryPolicy {
	return e.retry
}

// Busy reports whether a cycle is in flight
func (e *Engine) Busy() bool {
	_, _, held := e.guard.Holder()
	return held
}

// SyncOneAsync runs SyncOne in the background. Wait blocks until it finishes.
func (e *Engine) SyncOneAsync(tx domain.Transaction) {
	e.async.Add(1)
	go func() {
		defer e.async.Done()
		e.SyncOne(context.Background(), tx)
	}()
}

// Wait blocks until every background sync started by SyncOneAsync returned
func (e *Engine) Wait() {
	e.async.Wait()
}

// SyncOne uploads one transaction with retry. It is dropped when a cycle is
// already running and skipped with a notice when offline.
func (e *Engine) SyncOne(ctx context.Context, tx domain.Transaction) Outcome {
	release, ok := e.guard.TryAcquire(CycleSingle + ":" + tx.ID)
	if !ok {
		e.log.Debug().Str("id", tx.ID).Msg("Sync already running, dropping single sync")
		return OutcomeSkippedBusy
	}
	defer release()

	if !e.network.Online() {
		e.log.Info().Str("id", tx.ID).Msg("Offline, transaction will sync when online")
		e.notify(events.SyncProgress, msgOffline)
		return OutcomeSkippedOffline
	}

	// A started cycle runs to completion regardless of the caller
	ctx = context.WithoutCancel(ctx)
	e.status.begin(CycleSingle, e.now())

	result := e.uploadWithRetry(ctx, tx)

	if result.State == StateSucceeded {
		e.status.finish(StateSucceeded, "", e.now())
		return OutcomeSynced
	}
	e.status.finish(StateFailed, result.Error, e.now())
	return OutcomeFailed
}

// SyncAll drains every unsynced transaction and then pulls and merges remote
// records newer than the cursor. Per-transaction failures do not stop the batch,
// and a failed pull keeps the upload progress and the old cursor.
func (e *Engine) SyncAll(ctx context.Context) (report Report) {
	release, ok := e.guard.TryAcquire(CycleBulk)
	if !ok {
		e.log.Debug().Msg("Sync already running, dropping bulk sync")
		return Report{Skipped: SkipBusy, Results: []TxResult{}}
	}
	defer release()

	startedAt := e.now()
	report = Report{StartedAt: startedAt, Results: []TxResult{}}

	if !e.network.Online() {
		e.log.Info().Msg("Offline, using local data")
		e.notify(events.SyncProgress, msgOffline)
		report.Skipped = SkipOffline
		return report
	}

	ctx = context.WithoutCancel(ctx)
	timer := utils.NewTimer("sync_all", e.log)
	e.status.begin(CycleBulk, startedAt)

	defer func() {
		report.Duration = timer.Stop()
		outcome := StateSucceeded
		errMsg := report.Error
		if report.Failed > 0 || report.PullError != "" || report.Error != "" {
			outcome = StateFailed
		}
		if errMsg == "" {
			errMsg = report.PullError
		}
		e.status.finish(outcome, errMsg, e.now())

		e.log.Info().
			Int("attempted", report.Attempted).
			Int("uploaded", report.Uploaded).
			Int("failed", report.Failed).
			Int("pulled", report.Pulled).
			Int("merged", report.Merged).
			Bool("cursor_advanced", report.CursorAdvanced).
			Dur("duration", report.Duration).
			Msg("Bulk sync finished")
	}()

	pending, err := e.repo.Unsynced(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to read unsynced transactions")
		e.notify(events.SyncFailure, msgBulkFailed)
		report.Error = err.Error()
		return report
	}

	if len(pending) > 0 {
		e.progress.Report(0, len(pending), fmt.Sprintf(msgUploading, len(pending)))

		for _, tx := range pending {
			result := e.uploadWithRetry(ctx, tx)
			report.Attempted++
			if result.State == StateSucceeded {
				report.Uploaded++
			} else {
				report.Failed++
			}
			report.Results = append(report.Results, result)
		}
	}

	e.pullAndMerge(ctx, startedAt, &report)
	return report
}

// uploadWithRetry uploads tx up to MaxAttempts times, sleeping Delay(i) after
// failure i when another attempt follows. Success is persisted immediately.
func (e *Engine) uploadWithRetry(ctx context.Context, tx domain.Transaction) TxResult {
	result := TxResult{ID: tx.ID}
	var lastErr error

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		result.Attempts = attempt
		e.status.attempt(tx.ID, attempt)

		lastErr = e.upload(ctx, tx)
		if lastErr == nil {
			break
		}

		e.log.Warn().
			Err(lastErr).
			Str("id", tx.ID).
			Int("attempt", attempt).
			Int("max_attempts", e.retry.MaxAttempts).
			Msg("Upload failed")

		if attempt < e.retry.MaxAttempts {
			_ = e.sleep(ctx, e.retry.Delay(attempt))
		}
	}

	if lastErr != nil {
		e.log.Error().Err(lastErr).Str("id", tx.ID).Int("attempts", result.Attempts).Msg("Upload retries exhausted")
		e.notify(events.SyncFailure, fmt.Sprintf(msgUploadFailed, tx.ID))
		result.State = StateFailed
		result.Error = lastErr.Error()
		return result
	}

	if err := e.repo.MarkSynced(ctx, tx.ID); err != nil {
		// Remote has it; the flag stays false locally and the idempotent upload repeats next cycle
		e.log.Error().Err(err).Str("id", tx.ID).Msg("Failed to persist synced flag")
		e.notify(events.SyncFailure, fmt.Sprintf(msgMarkFailed, tx.ID))
		result.State = StateFailed
		result.Error = err.Error()
		return result
	}

	e.log.Info().Str("id", tx.ID).Int("attempts", result.Attempts).Msg("Transaction synced")
	e.notify(events.SyncSuccess, fmt.Sprintf(msgUploaded, tx.ID))
	result.State = StateSucceeded
	return result
}

func (e *Engine) upload(ctx context.Context, tx domain.Transaction) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.remote.Upload(callCtx, tx); err != nil {
		if !errors.Is(err, domain.ErrUploadFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
		}
		return err
	}
	return nil
}

// pullAndMerge fetches remote records newer than the cursor and inserts the unknown ones.
// The cursor moves to cycleStart only when the pull returned at least one record.
func (e *Engine) pullAndMerge(ctx context.Context, cycleStart time.Time, report *Report) {
	fail := func(err error, msg string) {
		e.log.Error().Err(err).Msg(msg)
		e.notify(events.SyncFailure, msgPullFailed)
		report.PullError = err.Error()
	}

	cursor, err := e.repo.Cursor(ctx)
	if err != nil {
		fail(err, "Failed to read sync cursor")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	remoteTxs, err := e.remote.QueryAfter(callCtx, cursor)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrQueryFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrQueryFailed, err)
		}
		fail(err, "Failed to query remote ledger")
		return
	}

	report.Pulled = len(remoteTxs)
	if len(remoteTxs) == 0 {
		e.notify(events.SyncProgress, msgUpToDate)
		return
	}

	inserted, err := e.repo.MergeRemote(ctx, remoteTxs)
	if err != nil {
		fail(err, "Failed to merge remote transactions")
		return
	}
	report.Merged = len(inserted)

	if err := e.repo.SetCursor(ctx, cycleStart); err != nil {
		fail(err, "Failed to persist sync cursor")
		return
	}
	cursorAt := cycleStart.UTC()
	report.CursorAdvanced = true
	report.Cursor = &cursorAt

	e.log.Info().
		Time("previous_cursor", cursor).
		Time("cursor", cursorAt).
		Int("pulled", len(remoteTxs)).
		Int("merged", len(inserted)).
		Msg("Merged remote transactions")
	e.notify(events.SyncProgress, fmt.Sprintf(msgMerged, len(inserted)))
}

func (e *Engine) notify(eventType events.EventType, message string) {
	if e.events == nil {
		return
	}
	e.events.Notify(eventType, message)
}
