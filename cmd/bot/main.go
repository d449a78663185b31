package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bibleman-bot/internal/adapters/discord"
	"bibleman-bot/internal/adapters/encourager"
	"bibleman-bot/internal/adapters/groupme"
	"bibleman-bot/internal/adapters/memledger"
	"bibleman-bot/internal/adapters/plan"
	"bibleman-bot/internal/adapters/repo"
	"bibleman-bot/internal/adapters/sheets"
	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/cache"
	"bibleman-bot/internal/infra/config"
	"bibleman-bot/internal/infra/db"
	infrahttp "bibleman-bot/internal/infra/http"
	"bibleman-bot/internal/infra/log"
	"bibleman-bot/internal/infra/metrics"
	"bibleman-bot/internal/infra/openai"
	"bibleman-bot/internal/infra/queue"
	"bibleman-bot/internal/usecase/leaderboard"
	"bibleman-bot/internal/usecase/reconcile"
	"bibleman-bot/internal/usecase/schedule"
	"bibleman-bot/internal/usecase/syncer"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.Timezone).Msg("unknown timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := buildLedger(ctx, cfg, logger)
	if err := ledger.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not provision ledger schema on boot")
	}

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("REDIS_ADDR is required")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cacheAdapter := cache.NewRedis(redisClient)
	syncQueue := queue.NewRedisSyncQueue(redisClient, cfg.Queues.Sync)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create discord session")
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent

	if err := session.Open(); err != nil {
		logger.Fatal().Err(err).Msg("could not open discord gateway")
	}
	defer session.Close()

	me, err := session.User("@me")
	if err != nil {
		logger.Fatal().Err(err).Msg("could not resolve bot identity")
	}

	reconcileService := reconcile.NewService(ledger, logger, loc, nil)
	source := discord.NewSource(session, me.ID, logger)
	discord.NewHandler(source, reconcileService, logger).Register(session)

	syncService := syncer.NewService(source, ledger, reconcileService, cfg.Discord.ChannelIDs, cfg.Ledger.WriteDelay, logger)
	go runSyncWorker(ctx, syncQueue, syncService, logger)

	// Catch up on reactions missed while the process was down.
	startupJob := domain.SyncJob{ID: uuid.NewString(), RequestedBy: "startup", EnqueuedAt: time.Now()}
	if err := syncQueue.Enqueue(ctx, startupJob); err != nil {
		logger.Warn().Err(err).Msg("could not enqueue startup sync")
	}

	oracle := plan.NewFixedOracle(cfg.Plan.StartDate, cfg.Plan.Length, loc)
	standings := leaderboard.NewService(ledger, oracle, logger)
	poster := discord.NewPoster(session, logger)

	var generated domain.Encourager
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		generated = encourager.NewOpenAI(client, cfg.OpenAI.Model)
	}

	var bridge domain.Bridge
	if cfg.GroupMe.BotID != "" {
		bridge = groupme.NewClient(cfg.GroupMe.BotID)
	}

	scheduler := schedule.NewService(schedule.Deps{
		Poster:          poster,
		Standings:       standings,
		Oracle:          oracle,
		Encourager:      generated,
		Fallback:        encourager.NewSimple(),
		Bridge:          bridge,
		Cache:           cacheAdapter,
		Channels:        cfg.Discord.ChannelIDs,
		Location:        loc,
		DailyHour:       cfg.Schedule.DailyHour,
		LeaderboardHour: cfg.Schedule.LeaderboardHour,
	}, logger)
	go scheduler.Run(ctx)

	server := infrahttp.NewServer(logger)
	server.Router.Post("/admin/sync", func(w http.ResponseWriter, r *http.Request) {
		job := domain.SyncJob{ID: uuid.NewString(), RequestedBy: r.RemoteAddr, EnqueuedAt: time.Now()}
		if err := syncQueue.Enqueue(r.Context(), job); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(job.ID))
	})
	server.Router.Post("/groupme/callback", func(w http.ResponseWriter, r *http.Request) {
		msg, ok, err := groupme.ParseCallback(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if ok && len(cfg.Discord.ChannelIDs) > 0 {
			text := "💬 " + msg.Name + ": " + msg.Text
			if _, err := session.ChannelMessageSend(cfg.Discord.ChannelIDs[0], text); err != nil {
				metrics.DiscordSendErrors.Inc()
				logger.Warn().Err(err).Msg("could not relay groupme message")
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := server.Start(addr(cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// buildLedger picks the ledger backend from configuration.
func buildLedger(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) domain.LedgerStore {
	switch cfg.Ledger.Backend {
	case "sheets":
		ledger, err := sheets.New(ctx, cfg.Ledger.CredentialsFile, cfg.Ledger.SheetID, cfg.Ledger.SheetTab, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not init sheets ledger")
		}
		return ledger
	case "postgres":
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not connect to postgres")
		}
		return repo.NewPostgres(pool)
	case "memory":
		logger.Warn().Msg("using in-memory ledger, progress is not persisted")
		return memledger.New()
	default:
		logger.Fatal().Str("backend", cfg.Ledger.Backend).Msg("unknown ledger backend")
		return nil
	}
}

// runSyncWorker consumes sync jobs until the context ends.
func runSyncWorker(ctx context.Context, q domain.SyncQueue, svc *syncer.Service, logger zerolog.Logger) {
	for {
		job, err := q.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("could not pop sync job")
			time.Sleep(time.Second)
			continue
		}

		report, err := svc.Run(ctx)
		if err != nil {
			logger.Error().Err(err).Str("job_id", job.ID).Msg("sync job failed")
			continue
		}
		logger.Info().
			Str("job_id", job.ID).
			Str("requested_by", job.RequestedBy).
			Int("collected", report.Collected).
			Int("added", report.Added).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("sync job finished")
	}
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}
