package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
)

// onceTTL keeps the daily dedup key alive past the posting window so a
// restart within the same day cannot repost.
const onceTTL = 26 * time.Hour

// Poster publishes the bot's announcements to the chat platform.
type Poster interface {
	PostDailyReading(ctx context.Context, channelID string, day int, passage, encouragement string) error
	PostLeaderboard(ctx context.Context, channelID string, entries []domain.LeaderboardEntry) error
}

// Standings computes the current leaderboard.
type Standings interface {
	Compute(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// Service drives the time-based announcements: the daily reading post and
// the Sunday leaderboard. Dedup across replicas goes through cache.Once.
type Service struct {
	poster    Poster
	standings Standings
	oracle    domain.PlanOracle
	enc       domain.Encourager
	fallback  domain.Encourager
	bridge    domain.Bridge
	cache     domain.Cache
	channels  []string
	loc       *time.Location

	dailyHour       int
	leaderboardHour int

	log zerolog.Logger
}

// Deps collects everything the scheduler needs. Bridge and Encourager may
// be nil when the corresponding integration is not configured.
type Deps struct {
	Poster          Poster
	Standings       Standings
	Oracle          domain.PlanOracle
	Encourager      domain.Encourager
	Fallback        domain.Encourager
	Bridge          domain.Bridge
	Cache           domain.Cache
	Channels        []string
	Location        *time.Location
	DailyHour       int
	LeaderboardHour int
}

func NewService(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		poster:          deps.Poster,
		standings:       deps.Standings,
		oracle:          deps.Oracle,
		enc:             deps.Encourager,
		fallback:        deps.Fallback,
		bridge:          deps.Bridge,
		cache:           deps.Cache,
		channels:        deps.Channels,
		loc:             deps.Location,
		dailyHour:       deps.DailyHour,
		leaderboardHour: deps.LeaderboardHour,
		log:             logger.With().Str("component", "schedule").Logger(),
	}
}

// Run ticks once a minute and fires the posts for the current hour. It
// returns when the context is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now.In(s.loc))
		}
	}
}

func (s *Service) tick(ctx context.Context, now time.Time) {
	if now.Hour() == s.dailyHour {
		if err := s.PostDaily(ctx, now); err != nil {
			s.log.Error().Err(err).Msg("daily post failed")
		}
	}
	if now.Weekday() == time.Sunday && now.Hour() == s.leaderboardHour {
		if err := s.PostLeaderboard(ctx, now); err != nil {
			s.log.Error().Err(err).Msg("leaderboard post failed")
		}
	}
}

// PostDaily publishes the reading post for the plan day that now falls on.
// At most one post happens per calendar date.
func (s *Service) PostDaily(ctx context.Context, now time.Time) error {
	day, err := s.planDay(now)
	if err != nil {
		return fmt.Errorf("resolve plan day: %w", err)
	}

	key := "daily_post:" + now.Format("2006-01-02")
	return s.cache.Once(key, onceTTL, func() error {
		encouragement := s.encouragement(ctx, day)
		for _, channelID := range s.channels {
			if err := s.poster.PostDailyReading(ctx, channelID, day, "", encouragement); err != nil {
				return fmt.Errorf("post to %s: %w", channelID, err)
			}
		}
		s.mirror(ctx, fmt.Sprintf("📖 Day %d of the reading plan is up! %s", day, encouragement))
		s.log.Info().Int("day", day).Msg("daily reading posted")
		return nil
	})
}

// PostLeaderboard publishes the standings. At most once per calendar date.
func (s *Service) PostLeaderboard(ctx context.Context, now time.Time) error {
	key := "leaderboard_post:" + now.Format("2006-01-02")
	return s.cache.Once(key, onceTTL, func() error {
		entries, err := s.standings.Compute(ctx)
		if err != nil {
			return fmt.Errorf("compute standings: %w", err)
		}
		for _, channelID := range s.channels {
			if err := s.poster.PostLeaderboard(ctx, channelID, entries); err != nil {
				return fmt.Errorf("post to %s: %w", channelID, err)
			}
		}
		s.log.Info().Int("entries", len(entries)).Msg("leaderboard posted")
		return nil
	})
}

// planDay derives which plan day the given moment falls on.
func (s *Service) planDay(now time.Time) (int, error) {
	start, err := s.oracle.PlanStartDate()
	if err != nil {
		return 0, err
	}
	length, err := s.oracle.PlanLength()
	if err != nil {
		return 0, err
	}

	day := int(now.Sub(start).Hours()/24) + 1
	if day < 1 {
		return 0, fmt.Errorf("plan has not started yet")
	}
	if day > length {
		return 0, fmt.Errorf("plan finished on day %d", length)
	}
	return day, nil
}

// encouragement asks the configured generator and falls back to the static
// lines when it fails. The daily post never blocks on generation errors.
func (s *Service) encouragement(ctx context.Context, day int) string {
	if s.enc != nil {
		line, err := s.enc.Encouragement(ctx, day, "")
		if err == nil {
			return line
		}
		s.log.Warn().Err(err).Msg("encouragement generation failed, using fallback")
	}
	if s.fallback == nil {
		return ""
	}
	line, err := s.fallback.Encouragement(ctx, day, "")
	if err != nil {
		return ""
	}
	return line
}

func (s *Service) mirror(ctx context.Context, text string) {
	if s.bridge == nil {
		return
	}
	if err := s.bridge.Send(ctx, text); err != nil {
		s.log.Warn().Err(err).Msg("bridge mirror failed")
	}
}
