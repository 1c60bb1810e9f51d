package remote

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/ledgersync/internal/domain"
)

// MemoryLedger keeps documents in process memory. Used in development and tests.
type MemoryLedger struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{docs: make(map[string]Document)}
}

// Upload implements Ledger
func (m *MemoryLedger) Upload(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return uploadError(tx.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[tx.ID] = NewDocument(tx)
	return nil
}

// QueryAfter implements Ledger
func (m *MemoryLedger) QueryAfter(ctx context.Context, after time.Time) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, queryError(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, doc := range m.docs {
		if !doc.After(after) {
			continue
		}
		tx, err := doc.Transaction()
		if err != nil {
			return nil, queryError(err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// Len returns the number of stored documents
func (m *MemoryLedger) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Document returns the stored document for id
func (m *MemoryLedger) Document(id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	return doc, ok
}
