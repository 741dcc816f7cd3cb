package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corporate-fund-bot/internal/application"
	"corporate-fund-bot/internal/config"
	"corporate-fund-bot/internal/domain/ports/adapter"
	tele "corporate-fund-bot/internal/infra/adapters/telegram"
	pg "corporate-fund-bot/internal/infra/db/postgres"
	"corporate-fund-bot/internal/infra/logging"
	"corporate-fund-bot/internal/infra/metrics"
	red "corporate-fund-bot/internal/infra/redis"
	"corporate-fund-bot/internal/infra/sched"
	"corporate-fund-bot/internal/infra/web"
	"corporate-fund-bot/internal/infra/worker"
	"corporate-fund-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		log.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("schema")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	stateRepo := red.NewStateRepo(redisClient, cfg.Redis.StateTTL)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	personRepo := pg.NewPostgresPersonRepo(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	fundRepo := pg.NewPostgresFundRepo(pool)
	notifRepo := pg.NewPostgresNotificationRepo(pool)
	broadcastRepo := pg.NewPostgresBroadcastRepo(pool)
	auditRepo := pg.NewPostgresAuditRepo(pool)

	// ---- Use cases ----
	personUC := usecase.NewPersonUseCase(personRepo, userRepo, txManager, log)
	userUC := usecase.NewUserUseCase(userRepo, personRepo, txManager, log)
	fundUC := usecase.NewFundUseCase(fundRepo, userRepo, personRepo, txManager, log)
	statsUC := usecase.NewStatsUseCase(userRepo, fundRepo, log)

	// The notification usecase needs the bot to deliver, and the bot
	// needs the facade; the facade's outbox slots are filled in below.
	facade := application.NewBotFacade(personUC, userUC, fundUC, nil, nil, statsUC)
	facade.AuditRepo = auditRepo

	// Without a token (dev mode only) outgoing messages are discarded
	// and polling is skipped.
	var sender adapter.TelegramBotAdapter
	var botAdapter *tele.RealTelegramBotAdapter
	if cfg.Bot.Token == "" {
		log.Warn().Msg("no bot token, running with a no-op sender")
		sender = tele.NewNoopBot()
	} else {
		botAdapter, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, facade, stateRepo, rateLimiter, cfg.Bot.Workers)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
		sender = botAdapter
	}

	sendPool := worker.NewPool(cfg.Bot.Workers, log)
	sendPool.Start(ctx)

	notifUC := usecase.NewNotificationUseCase(notifRepo, userRepo, sender, sendPool, log)
	broadcastUC := usecase.NewBroadcastUseCase(broadcastRepo, userRepo, fundUC, notifUC, log)
	facade.NotifUC = notifUC
	facade.BroadcastUC = broadcastUC

	reminderUC := usecase.NewReminderUseCase(
		personUC, userUC, fundUC, notifUC,
		cfg.Scheduler.BirthdayLookaheadDays,
		cfg.Scheduler.FundDeadlineDays,
		log,
	)

	// ---- Telegram polling ----
	if strings.ToLower(cfg.Bot.Mode) != "polling" && cfg.Bot.Mode != "" {
		log.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented, falling back to polling")
	}
	if botAdapter != nil {
		go func() {
			if err := botAdapter.StartPolling(ctx); err != nil {
				log.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Admin API ----
	auth := web.NewAuthManager(cfg.Admin.APIKey, !cfg.Runtime.Dev, "", 30*time.Minute)
	adminSrv := web.NewServer(statsUC, personUC, fundUC, notifUC, cfg.Admin.APIKey, auth, log)
	router := chi.NewRouter()
	adminSrv.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: router}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("admin API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Scheduled workers ----
	reminderSched := sched.NewReminderScheduler(cfg.Scheduler.ReminderHour, reminderUC, log)
	go func() { _ = reminderSched.Run(ctx) }()

	outboxWorker := sched.NewOutboxWorker(cfg.Scheduler.OutboxInterval, notifUC, log)
	go func() { _ = outboxWorker.Run(ctx) }()

	purgeWorker := sched.NewPurgeWorker(time.Duration(cfg.Scheduler.PurgeAfterDays)*24*time.Hour, notifUC, log)
	go func() { _ = purgeWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	if botAdapter != nil {
		botAdapter.StopPolling()
	}
	sendPool.Stop()
	cancel()
}
