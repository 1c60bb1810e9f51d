package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/domain"
	"github.com/aristath/ledgersync/internal/events"
)

// SingleSyncer uploads one freshly added transaction.
// It must never return an error to the caller: failures are reported through notifications.
type SingleSyncer interface {
	SyncOneAsync(tx domain.Transaction)
}

// Service is the API the presentation layer uses: add a transaction, read the collection
type Service struct {
	repo   *Repository
	syncer SingleSyncer
	events *events.Manager
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a new ledger service
func NewService(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: eventManager,
		now:    time.Now,
		log:    log.With().Str("service", "ledger").Logger(),
	}
}

// SetSyncer wires the sync engine after construction; the engine itself depends on the repository
func (s *Service) SetSyncer(syncer SingleSyncer) {
	s.syncer = syncer
}

// AddTransaction validates input, persists a new unsynced transaction and
// kicks off a single-item sync. Sync outcomes never surface here.
func (s *Service) AddTransaction(ctx context.Context, in domain.NewTransactionInput) (domain.Transaction, error) {
	tx, err := domain.NewTransaction(in, s.now())
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := s.repo.Append(ctx, tx); err != nil {
		s.log.Error().Err(err).Str("id", tx.ID).Msg("Failed to persist transaction")
		return domain.Transaction{}, err
	}

	s.log.Info().
		Str("id", tx.ID).
		Str("type", string(tx.Type)).
		Str("category", tx.Category).
		Str("amount", tx.Amount.String()).
		Msg("Transaction added")

	if s.events != nil {
		s.events.Emit(events.TransactionAdded, "ledger", map[string]interface{}{
			"id":       tx.ID,
			"type":     tx.Type,
			"category": tx.Category,
			"amount":   tx.Amount.String(),
		})
	}

	if s.syncer != nil {
		s.syncer.SyncOneAsync(tx)
	}

	return tx, nil
}

// Transactions returns the current collection
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.All(ctx)
}

// Summary aggregates the current collection
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	txs, err := s.repo.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(txs), nil
}

// Transaction returns one transaction by id
func (s *Service) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	return s.repo.Get(ctx, id)
}
