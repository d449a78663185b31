package main

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"

	"bibleman-bot/internal/adapters/discord"
	"bibleman-bot/internal/adapters/repo"
	"bibleman-bot/internal/adapters/sheets"
	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/config"
	"bibleman-bot/internal/infra/db"
	"bibleman-bot/internal/infra/log"
	"bibleman-bot/internal/infra/metrics"
	"bibleman-bot/internal/usecase/reconcile"
)

// Read-only diagnostic: compares what the channels show against what the
// ledger holds and logs every discrepancy. Writes nothing.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx := context.Background()

	var ledger domain.LedgerStore
	var err error
	switch cfg.Ledger.Backend {
	case "sheets":
		ledger, err = sheets.New(ctx, cfg.Ledger.CredentialsFile, cfg.Ledger.SheetID, cfg.Ledger.SheetTab, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not init sheets ledger")
		}
	case "postgres":
		pool, errConnect := db.Connect(cfg.PGDSN)
		if errConnect != nil {
			logger.Fatal().Err(errConnect).Msg("could not connect to postgres")
		}
		defer pool.Close()
		ledger = repo.NewPostgres(pool)
	default:
		logger.Fatal().Str("backend", cfg.Ledger.Backend).Msg("audit needs a persistent ledger backend")
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create discord session")
	}
	me, err := session.User("@me")
	if err != nil {
		logger.Fatal().Err(err).Msg("could not resolve bot identity")
	}
	source := discord.NewSource(session, me.ID, logger)

	rows, err := ledger.LoadAll(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load ledger")
	}
	ledgered := reconcile.NewIndex(rows)

	observed := reconcile.NewIndex(nil)
	var missing int
	start := time.Now()
	for _, channelID := range cfg.Discord.ChannelIDs {
		messages, err := source.ScanHistory(ctx, channelID)
		if err != nil {
			logger.Warn().Err(err).Str("channel", channelID).Msg("channel scan failed, skipping")
			continue
		}
		for _, msg := range messages {
			day, ok := domain.ExtractDayKey(msg.Description)
			if !ok {
				logger.Warn().Str("message", msg.MessageID).Msg("trackable message without day key")
				continue
			}
			for _, user := range msg.ReactedUsers {
				key := domain.LedgerKey{DayNumber: day, UserID: user.UserID, Community: msg.Community}
				observed.Add(key)
				if !ledgered.Has(key) {
					missing++
					logger.Info().
						Int("day", day).
						Str("user", user.UserID).
						Str("community", msg.Community).
						Msg("reaction present but not ledgered")
				}
			}
		}
	}

	// Rows whose reaction is no longer visible in the scanned window are
	// normal (history scans are bounded), so they are reported at debug.
	var unobserved int
	for _, row := range rows {
		if !observed.Has(row.Key()) {
			unobserved++
			logger.Debug().
				Int("day", row.DayNumber).
				Str("user", row.UserID).
				Str("community", row.Community).
				Msg("ledger row outside scanned window")
		}
	}

	logger.Info().
		Int("ledger_rows", len(rows)).
		Int("observed_keys", observed.Len()).
		Int("missing", missing).
		Int("outside_window", unobserved).
		Dur("took", time.Since(start)).
		Msg("audit finished")
}
