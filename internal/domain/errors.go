package domain

import "errors"

// ErrStoreUnavailable marks a transient ledger failure (network, auth). It
// must never crash the live event loop; bulk sync logs the row and moves on.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

// ErrSchemaMissing means the backing table/tab does not exist. Callers heal
// it once via EnsureSchema and retry the operation exactly once.
var ErrSchemaMissing = errors.New("ledger schema missing")
