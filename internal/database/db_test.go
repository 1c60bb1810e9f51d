package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/data/ledger.db", ProfileLedger)
	assert.Contains(t, ledger, "/data/ledger.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")

	cache := buildConnectionString("/data/cache.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")

	uri := buildConnectionString("file:test?mode=memory", ProfileStandard)
	assert.Contains(t, uri, "file:test?mode=memory&_pragma=journal_mode(WAL)")
}

func TestNew_DefaultsProfile(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "nested", "x.db"), Name: "x"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "x", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestMigrate_CreatesKVStore(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Conn().Exec("INSERT INTO kv_store (key, value, updated_at) VALUES ('k', 'v', 1)")
	require.NoError(t, err)

	// Idempotent
	require.NoError(t, db.Migrate())
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, execErr := tx.Exec("INSERT INTO kv_store (key, value, updated_at) VALUES ('k', 'v', 1)")
		require.NoError(t, execErr)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("kaboom")
	})
	assert.ErrorContains(t, err, "panic in transaction")
}

func TestSnapshot(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Conn().Exec("INSERT INTO kv_store (key, value, updated_at) VALUES ('transactions', '[]', 1)")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snap", "copy.db")
	require.NoError(t, db.Snapshot(context.Background(), dest))

	copyDB, err := New(Config{Path: dest, Name: "copy"})
	require.NoError(t, err)
	defer copyDB.Close()

	var value string
	require.NoError(t, copyDB.Conn().QueryRow("SELECT value FROM kv_store WHERE key = 'transactions'").Scan(&value))
	assert.Equal(t, "[]", value)
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background()))
}
