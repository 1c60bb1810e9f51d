// Package ledger owns the local transaction collection.
// The local store is the source of truth; reads are served from an in-memory
// projection that is dropped after every persisted mutation.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/domain"
)

const projectionKey = "transactions"

// LocalStore is the durable key/value persistence the repository builds on
type LocalStore interface {
	Load(ctx context.Context) ([]domain.Transaction, error)
	SaveAll(ctx context.Context, txs []domain.Transaction) error
	SyncCursor(ctx context.Context) (time.Time, error)
	SetSyncCursor(ctx context.Context, cursor time.Time) error
}

// Repository serializes every read-modify-write of the transaction collection
type Repository struct {
	store      LocalStore
	projection *cache.Cache
	mu         sync.Mutex
	log        zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(store LocalStore, log zerolog.Logger) *Repository {
	return &Repository{
		store:      store,
		projection: cache.New(5*time.Minute, 10*time.Minute),
		log:        log.With().Str("repo", "ledger").Logger(),
	}
}

// All returns every transaction in insertion order
func (r *Repository) All(ctx context.Context) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshot(ctx)
}

// Get returns the transaction with the given id
func (r *Repository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	txs, err := r.All(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	for _, tx := range txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// Unsynced returns the transactions not yet acknowledged by the remote ledger
func (r *Repository) Unsynced(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]domain.Transaction, 0)
	for _, tx := range txs {
		if !tx.Synced {
			pending = append(pending, tx)
		}
	}
	return pending, nil
}

// Append persists a new transaction. Ids must be unique within the collection.
func (r *Repository) Append(ctx context.Context, tx domain.Transaction) error {
	return r.mutate(ctx, func(txs []domain.Transaction) ([]domain.Transaction, bool, error) {
		for _, existing := range txs {
			if existing.ID == tx.ID {
				return nil, false, fmt.Errorf("%w: %s", domain.ErrDuplicateID, tx.ID)
			}
		}
		return append(txs, tx), true, nil
	})
}

// MarkSynced flips the synced flag of id to true.
// Already synced transactions are left alone; a missing id yields ErrNotFound.
func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	return r.mutate(ctx, func(txs []domain.Transaction) ([]domain.Transaction, bool, error) {
		for i := range txs {
			if txs[i].ID != id {
				continue
			}
			if txs[i].Synced {
				return txs, false, nil
			}
			txs[i].Synced = true
			return txs, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	})
}

// MergeRemote inserts remote records whose ids are not known locally and
// returns the inserted records. Local records are never overwritten.
func (r *Repository) MergeRemote(ctx context.Context, remote []domain.Transaction) ([]domain.Transaction, error) {
	var inserted []domain.Transaction
	err := r.mutate(ctx, func(txs []domain.Transaction) ([]domain.Transaction, bool, error) {
		var merged []domain.Transaction
		merged, inserted = Merge(txs, remote)
		return merged, len(inserted) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// Cursor returns the instant of the last successful pull
func (r *Repository) Cursor(ctx context.Context) (time.Time, error) {
	return r.store.SyncCursor(ctx)
}

// SetCursor persists the instant of the last successful pull
func (r *Repository) SetCursor(ctx context.Context, cursor time.Time) error {
	return r.store.SetSyncCursor(ctx, cursor)
}

// Reload drops the projection and reads the collection back from the store
func (r *Repository) Reload(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.projection.Delete(projectionKey)
	txs, err := r.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	r.log.Info().Int("count", len(txs)).Msg("Loaded transactions from local store")
	return len(txs), nil
}

// snapshot returns a copy of the collection, loading it on a projection miss.
// Callers must hold r.mu.
func (r *Repository) snapshot(ctx context.Context) ([]domain.Transaction, error) {
	if cached, ok := r.projection.Get(projectionKey); ok {
		return clone(cached.([]domain.Transaction)), nil
	}

	txs, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	r.projection.Set(projectionKey, clone(txs), cache.DefaultExpiration)
	return txs, nil
}

// mutate applies fn to a copy of the collection and persists the result.
// The projection is dropped after every attempted write so the next read goes to the store.
func (r *Repository) mutate(ctx context.Context, fn func([]domain.Transaction) ([]domain.Transaction, bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.snapshot(ctx)
	if err != nil {
		return err
	}

	next, changed, err := fn(current)
	if err != nil || !changed {
		return err
	}

	defer r.projection.Delete(projectionKey)
	return r.store.SaveAll(ctx, next)
}

func clone(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	return out
}
