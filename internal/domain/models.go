// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money coming in from money going out
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single ledger entry.
// ID is generated on the client and is the only identity used for dedup and upsert.
type Transaction struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Date     time.Time       `json:"date"`
	Notes    string          `json:"notes"`
	Synced   bool            `json:"synced"` // Only ever moves false -> true
}

// NewTransactionInput is what a caller supplies to create a transaction
type NewTransactionInput struct {
	Amount   decimal.NullDecimal `json:"amount"`
	Category string              `json:"category"`
	Type     TransactionType     `json:"type"`
	Notes    string              `json:"notes"`
}

// NewTransaction validates input and builds an unsynced transaction with a fresh id
// dated at the creation instant.
func NewTransaction(in NewTransactionInput, now time.Time) (Transaction, error) {
	if !in.Amount.Valid {
		return Transaction{}, fmt.Errorf("%w: amount is required", ErrInvalidTransaction)
	}
	if in.Amount.Decimal.IsNegative() {
		return Transaction{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return Transaction{}, fmt.Errorf("%w: category is required", ErrInvalidTransaction)
	}

	txType := in.Type
	if txType == "" {
		txType = TransactionTypeExpense
	}
	if !txType.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, in.Type)
	}

	return Transaction{
		ID:       uuid.NewString(),
		Amount:   in.Amount.Decimal,
		Category: category,
		Type:     txType,
		Date:     now.UTC(),
		Notes:    in.Notes,
		Synced:   false,
	}, nil
}

// SuggestedCategories are offered to users when picking a category.
// Any other non-empty category is accepted as well.
var SuggestedCategories = []string{
	"Food",
	"Transportation",
	"Housing",
	"Utilities",
	"Entertainment",
	"Healthcare",
	"Education",
	"Shopping",
	"Personal Care",
	"Gifts",
	"Investments",
	"Salary",
	"Freelance",
	"Dividends",
	"Rental Income",
}
