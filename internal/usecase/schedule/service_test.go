package schedule

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
)

type memCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemCache() *memCache {
	return &memCache{keys: make(map[string]struct{})}
}

func (c *memCache) Once(key string, _ time.Duration, fn func() error) error {
	c.mu.Lock()
	if _, seen := c.keys[key]; seen {
		c.mu.Unlock()
		return nil
	}
	c.keys[key] = struct{}{}
	c.mu.Unlock()

	if err := fn(); err != nil {
		c.mu.Lock()
		delete(c.keys, key)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *memCache) Set(string, []byte, time.Duration) error { return nil }
func (c *memCache) Get(string) ([]byte, error)              { return nil, nil }

type recordingPoster struct {
	daily        []int
	descriptions []string
	boards       int
}

func (p *recordingPoster) PostDailyReading(_ context.Context, _ string, day int, _, _ string) error {
	p.daily = append(p.daily, day)
	description := "📖 **Day " + strconv.Itoa(day) + "**"
	p.descriptions = append(p.descriptions, description)
	return nil
}

func (p *recordingPoster) PostLeaderboard(_ context.Context, _ string, _ []domain.LeaderboardEntry) error {
	p.boards++
	return nil
}

type fixedOracle struct {
	start  time.Time
	length int
}

func (o fixedOracle) PlanStartDate() (time.Time, error) { return o.start, nil }
func (o fixedOracle) PlanLength() (int, error)          { return o.length, nil }

type staticStandings struct{ entries []domain.LeaderboardEntry }

func (s staticStandings) Compute(context.Context) ([]domain.LeaderboardEntry, error) {
	return s.entries, nil
}

func newScheduler(poster *recordingPoster, cache domain.Cache, start time.Time) *Service {
	return NewService(Deps{
		Poster:          poster,
		Standings:       staticStandings{},
		Oracle:          fixedOracle{start: start, length: 365},
		Cache:           cache,
		Channels:        []string{"CH1"},
		Location:        time.UTC,
		DailyHour:       5,
		LeaderboardHour: 9,
	}, zerolog.Nop())
}

func TestPostDailyPicksPlanDay(t *testing.T) {
	poster := &recordingPoster{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduler(poster, newMemCache(), start)

	now := time.Date(2025, 1, 21, 5, 0, 0, 0, time.UTC)
	if err := svc.PostDaily(context.Background(), now); err != nil {
		t.Fatalf("post daily: %v", err)
	}
	if len(poster.daily) != 1 || poster.daily[0] != 21 {
		t.Fatalf("posted days = %v, want [21]", poster.daily)
	}
}

func TestDailyDescriptionRoundTripsThroughExtraction(t *testing.T) {
	poster := &recordingPoster{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduler(poster, newMemCache(), start)

	now := time.Date(2025, 2, 10, 5, 0, 0, 0, time.UTC)
	if err := svc.PostDaily(context.Background(), now); err != nil {
		t.Fatalf("post daily: %v", err)
	}

	// The day marker in what we post must be what reaction tracking parses.
	day, ok := domain.ExtractDayKey(poster.descriptions[0])
	if !ok {
		t.Fatalf("no day key in %q", poster.descriptions[0])
	}
	if day != 41 {
		t.Fatalf("day = %d, want 41", day)
	}
}

func TestPostDailyDedupesPerDate(t *testing.T) {
	poster := &recordingPoster{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduler(poster, newMemCache(), start)

	now := time.Date(2025, 1, 5, 5, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := svc.PostDaily(context.Background(), now); err != nil {
			t.Fatalf("post daily: %v", err)
		}
	}
	if len(poster.daily) != 1 {
		t.Fatalf("posted %d times, want 1", len(poster.daily))
	}
}

func TestPostDailyFailsBeforePlanStart(t *testing.T) {
	poster := &recordingPoster{}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduler(poster, newMemCache(), start)

	now := time.Date(2025, 1, 5, 5, 0, 0, 0, time.UTC)
	if err := svc.PostDaily(context.Background(), now); err == nil {
		t.Fatal("expected error before plan start")
	}
	if len(poster.daily) != 0 {
		t.Fatalf("posted %d times, want 0", len(poster.daily))
	}
}

func TestTickPostsLeaderboardOnSundayOnly(t *testing.T) {
	poster := &recordingPoster{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduler(poster, newMemCache(), start)

	// 2025-01-05 is a Sunday, 2025-01-06 a Monday.
	svc.tick(context.Background(), time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	if poster.boards != 0 {
		t.Fatalf("boards = %d after Monday tick, want 0", poster.boards)
	}
	svc.tick(context.Background(), time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC))
	if poster.boards != 1 {
		t.Fatalf("boards = %d after Sunday tick, want 1", poster.boards)
	}
}
