package domain

import (
	"context"
	"time"
)

// LedgerStore is the contract the external progress ledger must satisfy.
// The store is append-preferring: rows are appended and deleted, never
// mutated in place.
type LedgerStore interface {
	// EnsureSchema idempotently provisions the backing table/tab.
	EnsureSchema(ctx context.Context) error
	// AppendRow adds one row. Fails with ErrSchemaMissing when the table/tab
	// is absent and ErrStoreUnavailable when the store cannot be reached.
	AppendRow(ctx context.Context, row LedgerRow) error
	// FindRow returns the row with the given key, or nil when absent.
	FindRow(ctx context.Context, key LedgerKey) (*LedgerRow, error)
	// DeleteRow removes the row with the given key and reports whether a row
	// was actually removed.
	DeleteRow(ctx context.Context, key LedgerKey) (bool, error)
	// LoadAll returns every row, normalizing legacy and current physical
	// layouts. Used only for bulk reconciliation and leaderboard aggregation.
	LoadAll(ctx context.Context) ([]LedgerRow, error)
}

// EventSource discovers reactions by re-scanning recent channel history.
// Live gateway events arrive through platform handlers instead.
type EventSource interface {
	ScanHistory(ctx context.Context, channelID string) ([]SourceMessage, error)
}

// PlanOracle answers where the reading plan currently stands.
type PlanOracle interface {
	PlanStartDate() (time.Time, error)
	PlanLength() (int, error)
}

// Cache is a simple TTL store.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}

// SyncQueue hands bulk-sync jobs to the background worker.
type SyncQueue interface {
	Enqueue(ctx context.Context, job SyncJob) error
	Pop(ctx context.Context) (SyncJob, error)
}

// Encourager produces the short encouragement line for the daily post.
type Encourager interface {
	Encouragement(ctx context.Context, day int, passage string) (string, error)
}

// Bridge mirrors announcements to a second chat platform.
type Bridge interface {
	Send(ctx context.Context, text string) error
}
