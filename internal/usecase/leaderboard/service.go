package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
)

// fallbackPlanDays is used when the plan oracle cannot answer. A small
// constant keeps the leaderboard rendering instead of failing outright.
const fallbackPlanDays = 7

type Service struct {
	ledger domain.LedgerStore
	oracle domain.PlanOracle
	log    zerolog.Logger
}

func NewService(ledger domain.LedgerStore, oracle domain.PlanOracle, logger zerolog.Logger) *Service {
	return &Service{
		ledger: ledger,
		oracle: oracle,
		log:    logger.With().Str("component", "leaderboard").Logger(),
	}
}

type groupKey struct {
	userID    string
	community string
}

type groupState struct {
	displayName string
	days        map[int]struct{}
}

// Compute aggregates the whole ledger into per-user standings sorted by
// completion rate, highest first. Duplicate rows for the same day count once.
func (s *Service) Compute(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	totalDays := s.elapsedPlanDays()

	groups := make(map[groupKey]*groupState)
	order := make([]groupKey, 0)
	for _, row := range rows {
		k := groupKey{userID: row.UserID, community: row.Community}
		st, ok := groups[k]
		if !ok {
			st = &groupState{days: make(map[int]struct{})}
			groups[k] = st
			order = append(order, k)
		}
		st.days[row.DayNumber] = struct{}{}
		if row.DisplayName != "" {
			st.displayName = row.DisplayName
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, k := range order {
		st := groups[k]
		completed := len(st.days)
		behind := totalDays - completed
		if behind < 0 {
			behind = 0
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:         k.userID,
			DisplayName:    st.displayName,
			Community:      k.community,
			CompletedDays:  completed,
			TotalPlanDays:  totalDays,
			CurrentPlanDay: totalDays,
			CompletionRate: float64(completed) / float64(totalDays) * 100,
			DaysBehind:     behind,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CompletionRate > entries[j].CompletionRate
	})

	return entries, nil
}

// elapsedPlanDays derives how many plan days have elapsed since the start
// date, clamped to the plan length. Oracle failures fall back to a constant
// so a standings request never dies on plan misconfiguration.
func (s *Service) elapsedPlanDays() int {
	start, err := s.oracle.PlanStartDate()
	if err != nil {
		s.log.Warn().Err(err).Msg("plan start date unavailable, using fallback")
		return fallbackPlanDays
	}
	length, err := s.oracle.PlanLength()
	if err != nil {
		s.log.Warn().Err(err).Msg("plan length unavailable, using fallback")
		return fallbackPlanDays
	}

	elapsed := int(time.Since(start).Hours()/24) + 1
	if elapsed < 1 {
		elapsed = 1
	}
	if elapsed > length {
		elapsed = length
	}
	return elapsed
}
