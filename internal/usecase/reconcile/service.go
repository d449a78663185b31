package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/metrics"
)

// defaultBackoff spaces the repeated existence checks on the Add path:
// immediate, then short, then longer. Gateway events can be re-fired or
// arrive nearly simultaneously from concurrent processes; re-checking
// narrows the window where two writers both observe "no row".
var defaultBackoff = []time.Duration{0, 500 * time.Millisecond, 1500 * time.Millisecond}

// Service turns reaction events into idempotent ledger mutations.
type Service struct {
	ledger  domain.LedgerStore
	log     zerolog.Logger
	loc     *time.Location
	backoff []time.Duration

	mu   sync.Mutex
	keys map[domain.LedgerKey]*sync.Mutex
}

// NewService builds the reconciliation engine. A nil backoff uses the
// default three-attempt schedule.
func NewService(ledger domain.LedgerStore, logger zerolog.Logger, loc *time.Location, backoff []time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if backoff == nil {
		backoff = defaultBackoff
	}
	return &Service{
		ledger:  ledger,
		log:     logger,
		loc:     loc,
		backoff: backoff,
		keys:    make(map[domain.LedgerKey]*sync.Mutex),
	}
}

// Track resolves the day key out of the message description and reconciles
// the event. Events without a parseable day key are dropped entirely: no row
// is ever written under a fallback day.
func (s *Service) Track(ctx context.Context, ev domain.ReactionEvent, description string) (domain.Outcome, error) {
	day, ok := domain.ExtractDayKey(description)
	if !ok {
		s.log.Warn().
			Str("user", ev.UserID).
			Str("community", ev.Community).
			Str("message", ev.MessageID).
			Msg("reconcile: no day key in message, event dropped")
		metrics.IncReconcileOutcome(string(domain.OutcomeDropped))
		return domain.OutcomeDropped, nil
	}
	outcome, err := s.Reconcile(ctx, ev, day)
	if err == nil {
		metrics.IncReconcileOutcome(string(outcome))
	}
	return outcome, err
}

// Reconcile applies one event under the given day key, enforcing at most one
// row per (day, user, community).
func (s *Service) Reconcile(ctx context.Context, ev domain.ReactionEvent, day int) (domain.Outcome, error) {
	key := domain.LedgerKey{DayNumber: day, UserID: ev.UserID, Community: ev.Community}
	switch ev.Direction {
	case domain.DirectionAdd:
		return s.applyAdd(ctx, ev, key)
	case domain.DirectionRemove:
		return s.applyRemove(ctx, key)
	default:
		return "", fmt.Errorf("reconcile: unknown direction %q", ev.Direction)
	}
}

func (s *Service) applyAdd(ctx context.Context, ev domain.ReactionEvent, key domain.LedgerKey) (domain.Outcome, error) {
	unlock := s.lockKey(key)
	defer unlock()

	for _, delay := range s.backoff {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
		row, err := s.ledger.FindRow(ctx, key)
		if err != nil {
			return "", fmt.Errorf("existence check %s: %w", key, err)
		}
		if row != nil {
			return domain.OutcomeSkippedDuplicate, nil
		}
	}

	if err := s.Append(ctx, s.RowFromEvent(ev, key.DayNumber)); err != nil {
		return "", fmt.Errorf("append %s: %w", key, err)
	}
	return domain.OutcomeInserted, nil
}

func (s *Service) applyRemove(ctx context.Context, key domain.LedgerKey) (domain.Outcome, error) {
	removed, err := s.ledger.DeleteRow(ctx, key)
	if err != nil {
		return "", fmt.Errorf("delete %s: %w", key, err)
	}
	if !removed {
		// Removing a reaction that was never recorded (extraction failed at
		// add time, or the row was already cleaned up) is a no-op.
		return domain.OutcomeSkippedNotFound, nil
	}
	return domain.OutcomeDeleted, nil
}

// Append writes one row, healing a missing schema exactly once.
func (s *Service) Append(ctx context.Context, row domain.LedgerRow) error {
	err := s.ledger.AppendRow(ctx, row)
	if !errors.Is(err, domain.ErrSchemaMissing) {
		return err
	}
	s.log.Warn().Msg("reconcile: ledger schema missing, provisioning")
	if err := s.ledger.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.ledger.AppendRow(ctx, row)
}

// RowFromEvent renders the persisted row for an Add event.
func (s *Service) RowFromEvent(ev domain.ReactionEvent, day int) domain.LedgerRow {
	observed := ev.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	local := observed.In(s.loc)
	zone, _ := local.Zone()
	ts := local.Format("2006-01-02 15:04:05")
	return domain.LedgerRow{
		DayNumber:            day,
		UserID:               ev.UserID,
		DisplayName:          ev.DisplayName,
		Community:            ev.Community,
		ObservationDate:      local.Format("2006-01-02"),
		ObservationTime:      ts,
		ObservationTimeLabel: ts + " " + zone,
		ChannelName:          ev.ChannelName,
	}
}

// lockKey serializes writers of one primary key within this process. The
// repeated existence check still guards cross-process races.
func (s *Service) lockKey(key domain.LedgerKey) func() {
	s.mu.Lock()
	m, ok := s.keys[key]
	if !ok {
		m = &sync.Mutex{}
		s.keys[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Index is a transient read-only set of existing ledger keys, owned by one
// bulk-sync pass. It exists so bulk reconciliation never queries the
// rate-limited store per event.
type Index struct {
	keys map[string]struct{}
}

// NewIndex builds the index from a full ledger read.
func NewIndex(rows []domain.LedgerRow) *Index {
	ix := &Index{keys: make(map[string]struct{}, len(rows))}
	for _, row := range rows {
		ix.keys[row.Key().String()] = struct{}{}
	}
	return ix
}

// Has reports whether the key is already in the ledger.
func (ix *Index) Has(key domain.LedgerKey) bool {
	_, ok := ix.keys[key.String()]
	return ok
}

// Add marks a key as present after a successful append.
func (ix *Index) Add(key domain.LedgerKey) {
	ix.keys[key.String()] = struct{}{}
}

// Len returns the number of indexed keys.
func (ix *Index) Len() int {
	return len(ix.keys)
}
