package testing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aristath/ledgersync/internal/domain"
)

// ErrMockUpload is returned by MockRemoteLedger for scripted upload failures
var ErrMockUpload = errors.New("mock upload failure")

// MockRemoteLedger is an in-memory remote ledger with failure injection for tests
type MockRemoteLedger struct {
	mu          sync.Mutex
	docs        map[string]domain.Transaction
	uploadCalls map[string]int
	failUploads map[string]int // remaining failures per id; -1 fails forever
	failAll     bool
	queryErr    error
	queryCalls  int
	queryAfter  []time.Time
	onUpload    func(ctx context.Context, tx domain.Transaction)
}

// NewMockRemoteLedger creates an empty mock remote ledger
func NewMockRemoteLedger() *MockRemoteLedger {
	return &MockRemoteLedger{
		docs:        make(map[string]domain.Transaction),
		uploadCalls: make(map[string]int),
		failUploads: make(map[string]int),
	}
}

// Seed stores documents as if another device had uploaded them
func (m *MockRemoteLedger) Seed(txs ...domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txs {
		m.docs[tx.ID] = tx
	}
}

// FailUploads makes the next n uploads of id fail; n < 0 fails every upload of id
func (m *MockRemoteLedger) FailUploads(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUploads[id] = n
}

// FailAllUploads makes every upload fail while set
func (m *MockRemoteLedger) FailAllUploads(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// SetQueryError makes QueryAfter fail with err (nil clears it)
func (m *MockRemoteLedger) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// OnUpload installs a hook that runs at the start of every upload, before the lock is taken.
// Tests use it to block an upload and observe the engine mid-cycle.
func (m *MockRemoteLedger) OnUpload(fn func(ctx context.Context, tx domain.Transaction)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpload = fn
}

// Upload implements the remote ledger upload
func (m *MockRemoteLedger) Upload(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	hook := m.onUpload
	m.mu.Unlock()
	if hook != nil {
		hook(ctx, tx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploadCalls[tx.ID]++
	if m.failAll {
		return ErrMockUpload
	}
	if remaining, ok := m.failUploads[tx.ID]; ok && remaining != 0 {
		if remaining > 0 {
			m.failUploads[tx.ID] = remaining - 1
		}
		return ErrMockUpload
	}

	tx.Synced = false
	m.docs[tx.ID] = tx
	return nil
}

// QueryAfter implements the remote ledger query
func (m *MockRemoteLedger) QueryAfter(ctx context.Context, after time.Time) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCalls++
	m.queryAfter = append(m.queryAfter, after)
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	out := make([]domain.Transaction, 0)
	for _, tx := range m.docs {
		if tx.Date.After(after) {
			tx.Synced = true
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UploadCalls returns how many times id was uploaded
func (m *MockRemoteLedger) UploadCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploadCalls[id]
}

// TotalUploadCalls returns the number of upload calls across all ids
func (m *MockRemoteLedger) TotalUploadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.uploadCalls {
		total += n
	}
	return total
}

// QueryCalls returns how many times QueryAfter was called
func (m *MockRemoteLedger) QueryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

// QueriedAfter returns the cursors passed to QueryAfter, in call order
func (m *MockRemoteLedger) QueriedAfter() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.queryAfter...)
}

// Documents returns a copy of every stored document
func (m *MockRemoteLedger) Documents() map[string]domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Transaction, len(m.docs))
	for id, tx := range m.docs {
		out[id] = tx
	}
	return out
}

// RecordingSleeper records requested delays instead of sleeping
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns immediately
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

// Delays returns the recorded delays in order
func (s *RecordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
