package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/ledgersync/internal/domain"
	testhelpers "github.com/aristath/ledgersync/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)
	return New(db.Conn(), zerolog.Nop())
}

func sampleTx(id string) domain.Transaction {
	return domain.Transaction{
		ID:       id,
		Amount:   decimal.RequireFromString("19.99"),
		Category: "Food",
		Type:     domain.TransactionTypeExpense,
		Date:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Notes:    "groceries",
	}
}

func TestLoad_EmptyWhenNeverSaved(t *testing.T) {
	s := newTestStore(t)

	txs, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestSaveAllAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	synced := sampleTx("b")
	synced.Synced = true
	require.NoError(t, s.SaveAll(ctx, []domain.Transaction{sampleTx("a"), synced}))

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "a", txs[0].ID)
	assert.False(t, txs[0].Synced)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("19.99")))
	assert.True(t, txs[0].Date.Equal(sampleTx("a").Date))
	assert.True(t, txs[1].Synced)
}

func TestSaveAll_ReplacesWholeCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAll(ctx, []domain.Transaction{sampleTx("a"), sampleTx("b")}))
	require.NoError(t, s.SaveAll(ctx, []domain.Transaction{sampleTx("c")}))

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "c", txs[0].ID)
}

func TestSaveAll_FailureKeepsPreviousState(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveAll(context.Background(), []domain.Transaction{sampleTx("a")}))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SaveAll(cancelled, []domain.Transaction{sampleTx("x"), sampleTx("y")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	txs, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "a", txs[0].ID)
}

func TestLoad_AcceptsNumericAmounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	raw := `[{"id":"legacy","amount":12.5,"category":"Salary","type":"income","date":"2024-01-02T03:04:05.000Z","notes":"","synced":true}]`
	_, err := s.db.Exec("INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, 0)", KeyTransactions, raw)
	require.NoError(t, err)

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "12.5", txs[0].Amount.String())
	assert.Equal(t, domain.TransactionTypeIncome, txs[0].Type)
}

func TestLoad_CorruptValue(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec("INSERT INTO kv_store (key, value, updated_at) VALUES (?, 'not json', 0)", KeyTransactions)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestSyncCursor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cursor, err := s.SyncCursor(ctx)
	require.NoError(t, err)
	assert.True(t, cursor.Equal(Epoch))

	at := time.Date(2024, 6, 1, 10, 11, 12, 123456789, time.UTC)
	require.NoError(t, s.SetSyncCursor(ctx, at))

	cursor, err = s.SyncCursor(ctx)
	require.NoError(t, err)
	assert.True(t, cursor.Equal(at))
}

func TestSyncCursor_UnparsableFallsBackToEpoch(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec("INSERT INTO kv_store (key, value, updated_at) VALUES (?, 'yesterday', 0)", KeySyncCursor)
	require.NoError(t, err)

	cursor, err := s.SyncCursor(context.Background())
	require.NoError(t, err)
	assert.True(t, cursor.Equal(Epoch))
}
