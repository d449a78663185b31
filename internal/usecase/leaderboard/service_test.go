package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bibleman-bot/internal/adapters/memledger"
	"bibleman-bot/internal/domain"
)

type fakeOracle struct {
	start time.Time
	len   int
	err   error
}

func (o fakeOracle) PlanStartDate() (time.Time, error) {
	if o.err != nil {
		return time.Time{}, o.err
	}
	return o.start, nil
}

func (o fakeOracle) PlanLength() (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.len, nil
}

func seed(t *testing.T, ledger *memledger.Store, rows ...domain.LedgerRow) {
	t.Helper()
	for _, row := range rows {
		if err := ledger.AppendRow(context.Background(), row); err != nil {
			t.Fatalf("seed row: %v", err)
		}
	}
}

func TestComputeCountsDistinctDays(t *testing.T) {
	ledger := memledger.New()
	// Day 4 appears twice for U1; it must count once.
	seed(t, ledger,
		domain.LedgerRow{DayNumber: 4, UserID: "U1", DisplayName: "Alice", Community: "G1"},
		domain.LedgerRow{DayNumber: 4, UserID: "U1", DisplayName: "Alice", Community: "G1", ChannelName: "other"},
		domain.LedgerRow{DayNumber: 5, UserID: "U1", DisplayName: "Alice", Community: "G1"},
	)

	oracle := fakeOracle{start: time.Now().AddDate(0, 0, -9), len: 365}
	svc := NewService(ledger, oracle, zerolog.Nop())

	entries, err := svc.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].CompletedDays != 2 {
		t.Fatalf("completed = %d, want 2", entries[0].CompletedDays)
	}
}

func TestComputeFallsBackWhenOracleFails(t *testing.T) {
	ledger := memledger.New()
	seed(t, ledger,
		domain.LedgerRow{DayNumber: 1, UserID: "U1", DisplayName: "Alice", Community: "G1"},
	)

	svc := NewService(ledger, fakeOracle{err: errors.New("no plan configured")}, zerolog.Nop())

	entries, err := svc.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if entries[0].TotalPlanDays != fallbackPlanDays {
		t.Fatalf("total = %d, want %d", entries[0].TotalPlanDays, fallbackPlanDays)
	}
	if entries[0].DaysBehind != fallbackPlanDays-1 {
		t.Fatalf("behind = %d, want %d", entries[0].DaysBehind, fallbackPlanDays-1)
	}
}

func TestComputeSortsByCompletionRate(t *testing.T) {
	ledger := memledger.New()
	seed(t, ledger,
		domain.LedgerRow{DayNumber: 1, UserID: "U1", DisplayName: "Alice", Community: "G1"},
		domain.LedgerRow{DayNumber: 1, UserID: "U2", DisplayName: "Bob", Community: "G1"},
		domain.LedgerRow{DayNumber: 2, UserID: "U2", DisplayName: "Bob", Community: "G1"},
		domain.LedgerRow{DayNumber: 3, UserID: "U2", DisplayName: "Bob", Community: "G1"},
	)

	oracle := fakeOracle{start: time.Now().AddDate(0, 0, -4), len: 365}
	svc := NewService(ledger, oracle, zerolog.Nop())

	entries, err := svc.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].UserID != "U2" {
		t.Fatalf("first = %s, want U2", entries[0].UserID)
	}
	if entries[0].CompletionRate <= entries[1].CompletionRate {
		t.Fatalf("rates not descending: %.2f then %.2f", entries[0].CompletionRate, entries[1].CompletionRate)
	}
}

func TestComputeSeparatesCommunities(t *testing.T) {
	ledger := memledger.New()
	seed(t, ledger,
		domain.LedgerRow{DayNumber: 1, UserID: "U1", DisplayName: "Alice", Community: "G1"},
		domain.LedgerRow{DayNumber: 1, UserID: "U1", DisplayName: "Alice", Community: "G2"},
	)

	oracle := fakeOracle{start: time.Now().AddDate(0, 0, -2), len: 365}
	svc := NewService(ledger, oracle, zerolog.Nop())

	entries, err := svc.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (one per community)", len(entries))
	}
}

func TestComputeClampsElapsedToPlanLength(t *testing.T) {
	ledger := memledger.New()
	seed(t, ledger,
		domain.LedgerRow{DayNumber: 1, UserID: "U1", DisplayName: "Alice", Community: "G1"},
	)

	// Plan started long ago; elapsed days must clamp to the plan length.
	oracle := fakeOracle{start: time.Now().AddDate(-3, 0, 0), len: 365}
	svc := NewService(ledger, oracle, zerolog.Nop())

	entries, err := svc.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if entries[0].TotalPlanDays != 365 {
		t.Fatalf("total = %d, want 365", entries[0].TotalPlanDays)
	}
}
