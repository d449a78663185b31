package memledger

import (
	"context"
	"sync"

	"bibleman-bot/internal/domain"
)

// Store is the in-memory reference implementation of the ledger contract.
// It backs tests and local runs; lookups scan linearly like the sheet does.
type Store struct {
	mu   sync.RWMutex
	rows []domain.LedgerRow
}

// New builds an empty store, optionally pre-seeded with rows.
func New(rows ...domain.LedgerRow) *Store {
	s := &Store{}
	s.rows = append(s.rows, rows...)
	return s
}

var _ domain.LedgerStore = (*Store)(nil)

// EnsureSchema is a no-op: memory has no schema to provision.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return nil
}

// AppendRow adds one row.
func (s *Store) AppendRow(ctx context.Context, row domain.LedgerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

// FindRow returns the row with the given key, or nil.
func (s *Store) FindRow(ctx context.Context, key domain.LedgerKey) (*domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rows {
		if s.rows[i].Key() == key {
			row := s.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

// DeleteRow removes the row with the given key.
func (s *Store) DeleteRow(ctx context.Context, key domain.LedgerKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Key() == key {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// LoadAll returns a copy of every row.
func (s *Store) LoadAll(ctx context.Context) ([]domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LedgerRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}
