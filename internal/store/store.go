// Package store persists the transaction collection and the sync cursor on the device.
// Every value is written whole, so a failed write leaves the previous value in place.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/database"
	"github.com/aristath/ledgersync/internal/domain"
)

// Keys under which values are kept in kv_store.
const (
	KeyTransactions = "transactions"
	KeySyncCursor   = "lastSyncTime"
)

// Epoch is the cursor value before the first successful pull
var Epoch = time.Unix(0, 0).UTC()

// Store is the SQLite backed local store
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a new local store over an already migrated ledger database
func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "local_store").Logger(),
	}
}

// Load returns every persisted transaction, or an empty slice if nothing was saved yet
func (s *Store) Load(ctx context.Context) ([]domain.Transaction, error) {
	raw, err := s.get(ctx, KeyTransactions)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []domain.Transaction{}, nil
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("%w: failed to decode transactions: %v", domain.ErrPersistence, err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

// SaveAll replaces the persisted collection with txs
func (s *Store) SaveAll(ctx context.Context, txs []domain.Transaction) error {
	if txs == nil {
		txs = []domain.Transaction{}
	}

	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("%w: failed to encode transactions: %v", domain.ErrPersistence, err)
	}

	if err := s.put(ctx, KeyTransactions, string(data)); err != nil {
		return err
	}

	s.log.Debug().Int("count", len(txs)).Msg("Saved transactions")
	return nil
}

// SyncCursor returns the instant of the last successful pull, or Epoch if none happened.
// An unreadable cursor also falls back to Epoch.
func (s *Store) SyncCursor(ctx context.Context) (time.Time, error) {
	raw, err := s.get(ctx, KeySyncCursor)
	if err != nil {
		return time.Time{}, err
	}
	if raw == nil {
		return Epoch, nil
	}

	cursor, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		s.log.Warn().Str("value", string(raw)).Err(err).Msg("Unparsable sync cursor, pulling from epoch")
		return Epoch, nil
	}
	return cursor.UTC(), nil
}

// SetSyncCursor persists the cursor
func (s *Store) SetSyncCursor(ctx context.Context, cursor time.Time) error {
	return s.put(ctx, KeySyncCursor, cursor.UTC().Format(time.RFC3339Nano))
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", domain.ErrPersistence, key, err)
	}
	return []byte(value), nil
}

func (s *Store) put(ctx context.Context, key, value string) error {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)",
			key, value, time.Now().Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}
