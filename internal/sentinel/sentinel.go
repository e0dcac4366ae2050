package sentinel

import "errors"

// Sentinel dependency errors. Ledger backends and infrastructure adapters return
// these (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("version conflict")
	ErrReadOnly     = errors.New("write attempted in read-only transaction")
	ErrInvalidInput = errors.New("invalid input")
)
