package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/metrics"
	"bibleman-bot/internal/usecase/reconcile"
)

// Service backfills the ledger from a re-scan of recent channel history.
// A run is safe to repeat arbitrarily often: only net-new keys are appended.
type Service struct {
	source     domain.EventSource
	ledger     domain.LedgerStore
	rec        *reconcile.Service
	channels   []string
	writeDelay time.Duration
	log        zerolog.Logger
}

// NewService builds the bulk syncer. writeDelay paces appends to respect the
// store's rate limits.
func NewService(source domain.EventSource, ledger domain.LedgerStore, rec *reconcile.Service, channels []string, writeDelay time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		source:     source,
		ledger:     ledger,
		rec:        rec,
		channels:   channels,
		writeDelay: writeDelay,
		log:        logger,
	}
}

// Run performs one collect → reconcile → report pass.
func (s *Service) Run(ctx context.Context) (domain.SyncReport, error) {
	var report domain.SyncReport

	// Collect. A failing channel yields zero reactions, never aborts the pass.
	var messages []domain.SourceMessage
	for _, channelID := range s.channels {
		batch, err := s.source.ScanHistory(ctx, channelID)
		if err != nil {
			metrics.ScanErrors.Inc()
			s.log.Warn().Err(err).Str("channel", channelID).Msg("sync: channel scan failed, skipping")
			continue
		}
		messages = append(messages, batch...)
	}

	// One full read builds the pass-local key index; per-event store queries
	// would hammer the rate-limited backend.
	rows, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("load ledger: %w", err)
	}
	ix := reconcile.NewIndex(rows)

	for _, msg := range messages {
		day, ok := domain.ExtractDayKey(msg.Description)
		if !ok {
			s.log.Warn().Str("message", msg.MessageID).Msg("sync: message without day key skipped")
			continue
		}
		for _, user := range msg.ReactedUsers {
			report.Collected++
			key := domain.LedgerKey{DayNumber: day, UserID: user.UserID, Community: msg.Community}
			if ix.Has(key) {
				report.Skipped++
				metrics.IncSyncRow("skipped")
				continue
			}
			row := s.rec.RowFromEvent(domain.ReactionEvent{
				Community:   msg.Community,
				ChannelID:   msg.ChannelID,
				ChannelName: msg.ChannelName,
				MessageID:   msg.MessageID,
				UserID:      user.UserID,
				DisplayName: user.DisplayName,
				Direction:   domain.DirectionAdd,
				ObservedAt:  msg.CreatedAt,
			}, day)
			if err := s.rec.Append(ctx, row); err != nil {
				report.Failed++
				metrics.IncSyncRow("failed")
				s.log.Error().Err(err).
					Str("user", user.UserID).
					Int("day", day).
					Str("community", msg.Community).
					Msg("sync: append failed, row skipped")
				continue
			}
			ix.Add(key)
			report.Added++
			metrics.IncSyncRow("added")
			if s.writeDelay > 0 {
				select {
				case <-ctx.Done():
					return report, ctx.Err()
				case <-time.After(s.writeDelay):
				}
			}
		}
	}

	s.log.Info().
		Int("collected", report.Collected).
		Int("added", report.Added).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("sync: pass complete")
	return report, nil
}
