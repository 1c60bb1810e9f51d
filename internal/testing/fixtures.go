package testing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/ledgersync/internal/domain"
)

// NewTransactionFixture returns an unsynced expense dated at
func NewTransactionFixture(id string, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:       id,
		Amount:   decimal.RequireFromString("10.00"),
		Category: "Food",
		Type:     domain.TransactionTypeExpense,
		Date:     at.UTC(),
		Notes:    "",
		Synced:   false,
	}
}

// NewTransactionFixtures returns n unsynced transactions one minute apart, ids tx-1..tx-n
func NewTransactionFixtures(n int, start time.Time) []domain.Transaction {
	txs := make([]domain.Transaction, 0, n)
	for i := 1; i <= n; i++ {
		txs = append(txs, NewTransactionFixture(fmt.Sprintf("tx-%d", i), start.Add(time.Duration(i)*time.Minute)))
	}
	return txs
}
