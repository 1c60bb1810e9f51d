package domain

import "errors"

// Failure classes surfaced by the ledger and the sync engine.
// Callers classify with errors.Is; concrete causes are wrapped with %w.
var (
	// ErrPersistence means the local store could not be read or written
	ErrPersistence = errors.New("local persistence failure")
	// ErrNetworkUnavailable means the device is offline
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrUploadFailed means the remote ledger rejected or never acknowledged an upload
	ErrUploadFailed = errors.New("remote upload failed")
	// ErrQueryFailed means the remote ledger could not be queried
	ErrQueryFailed = errors.New("remote query failed")

	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrDuplicateID        = errors.New("duplicate transaction id")
	ErrNotFound           = errors.New("transaction not found")
)
