// Package remote talks to the authoritative remote ledger.
// Documents are keyed by transaction id; uploads are idempotent upserts.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/ledgersync/internal/domain"
)

// Ledger is the remote ledger client used by the sync engine
type Ledger interface {
	// Upload writes tx under its id, replacing any existing document
	Upload(ctx context.Context, tx domain.Transaction) error
	// QueryAfter returns every document whose timestamp is strictly after the instant,
	// marked as synced. Ordering is unspecified.
	QueryAfter(ctx context.Context, after time.Time) ([]domain.Transaction, error)
}

// Document is the stored shape of a transaction.
// Timestamp mirrors Date and is what queries compare against.
type Document struct {
	ID        string    `json:"id" msgpack:"id"`
	Amount    string    `json:"amount" msgpack:"amount"`
	Category  string    `json:"category" msgpack:"category"`
	Date      time.Time `json:"date" msgpack:"date"`
	Notes     string    `json:"notes" msgpack:"notes"`
	Type      string    `json:"type" msgpack:"type"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// NewDocument converts a transaction into its remote shape
func NewDocument(tx domain.Transaction) Document {
	return Document{
		ID:        tx.ID,
		Amount:    tx.Amount.String(),
		Category:  tx.Category,
		Date:      tx.Date.UTC(),
		Notes:     tx.Notes,
		Type:      string(tx.Type),
		Timestamp: tx.Date.UTC(),
	}
}

// Transaction converts a document back into a synced transaction
func (d Document) Transaction() (domain.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount %q in document %s: %w", d.Amount, d.ID, err)
	}

	date := d.Date
	if date.IsZero() {
		date = d.Timestamp
	}

	return domain.Transaction{
		ID:       d.ID,
		Amount:   amount,
		Category: d.Category,
		Type:     domain.TransactionType(d.Type),
		Date:     date.UTC(),
		Notes:    d.Notes,
		Synced:   true,
	}, nil
}

// After reports whether the document's timestamp is strictly after t
func (d Document) After(t time.Time) bool {
	return d.Timestamp.After(t)
}

func uploadError(id string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrUploadFailed, id, err)
}

func queryError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrQueryFailed, err)
}
