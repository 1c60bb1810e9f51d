package syncer

import (
	"sync"
	"time"
)

// State of a sync target (a transaction upload or a whole cycle)
type State string

const (
	StateIdle      State = "idle"
	StateSyncing   State = "syncing"
	StateRetrying  State = "retrying"
	StateFailed    State = "failed"
	StateSucceeded State = "succeeded"
)

// Cycle kinds
const (
	CycleSingle = "single"
	CycleBulk   = "bulk"
)

// Status is a point-in-time view of the engine
type Status struct {
	State         State      `json:"state"`
	Cycle         string     `json:"cycle,omitempty"`
	Target        string     `json:"target,omitempty"` // Transaction id being uploaded
	Attempt       int        `json:"attempt,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastCycle     string     `json:"last_cycle,omitempty"`
	LastState     State      `json:"last_state,omitempty"` // Outcome of the last finished cycle
	LastStarted   *time.Time `json:"last_started,omitempty"`
	LastFinished  *time.Time `json:"last_finished,omitempty"`
	LastSucceeded *time.Time `json:"last_succeeded,omitempty"`
}

type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func newStatusTracker() *statusTracker {
	return &statusTracker{status: Status{State: StateIdle}}
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *statusTracker) begin(cycle string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateSyncing
	t.status.Cycle = cycle
	t.status.Target = ""
	t.status.Attempt = 0
	t.status.LastStarted = &at
}

func (t *statusTracker) attempt(target string, attempt int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Target = target
	t.status.Attempt = attempt
	if attempt > 1 {
		t.status.State = StateRetrying
	} else {
		t.status.State = StateSyncing
	}
}

func (t *statusTracker) finish(outcome State, errMsg string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastCycle = t.status.Cycle
	t.status.LastState = outcome
	t.status.LastFinished = &at
	t.status.LastError = errMsg
	if outcome == StateSucceeded {
		t.status.LastSucceeded = &at
	}
	t.status.State = StateIdle
	t.status.Cycle = ""
	t.status.Target = ""
	t.status.Attempt = 0
}
