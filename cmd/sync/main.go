package main

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"

	"bibleman-bot/internal/adapters/discord"
	"bibleman-bot/internal/adapters/memledger"
	"bibleman-bot/internal/adapters/repo"
	"bibleman-bot/internal/adapters/sheets"
	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/config"
	"bibleman-bot/internal/infra/db"
	"bibleman-bot/internal/infra/log"
	"bibleman-bot/internal/infra/metrics"
	"bibleman-bot/internal/usecase/reconcile"
	"bibleman-bot/internal/usecase/syncer"
)

// One-shot bulk sync: collect recent channel history, reconcile it against
// the ledger, print the report and exit. Safe to run arbitrarily often.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.Timezone).Msg("unknown timezone")
	}

	ctx := context.Background()

	var ledger domain.LedgerStore
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
	case "memory":
		ledger = memledger.New()
	default:
		logger.Fatal().Str("backend", cfg.Ledger.Backend).Msg("unknown ledger backend")
	}

	if err := ledger.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not provision ledger schema")
	}

	// History scans use plain REST, no gateway connection needed.
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create discord session")
	}
	me, err := session.User("@me")
	if err != nil {
		logger.Fatal().Err(err).Msg("could not resolve bot identity")
	}

	reconcileService := reconcile.NewService(ledger, logger, loc, nil)
	source := discord.NewSource(session, me.ID, logger)
	syncService := syncer.NewService(source, ledger, reconcileService, cfg.Discord.ChannelIDs, cfg.Ledger.WriteDelay, logger)

	report, err := syncService.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("sync failed")
	}
	logger.Info().
		Int("collected", report.Collected).
		Int("added", report.Added).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("sync finished")
}
