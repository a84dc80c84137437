package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zenstore/zenstore-backend/internal/autoresume"
	"github.com/zenstore/zenstore-backend/internal/cron"
	"github.com/zenstore/zenstore-backend/internal/fulfillment"
	"github.com/zenstore/zenstore-backend/internal/notes"
	"github.com/zenstore/zenstore-backend/internal/settlement"
	"github.com/zenstore/zenstore-backend/internal/wallet"
	"github.com/zenstore/zenstore-backend/pkg/config"
	"github.com/zenstore/zenstore-backend/pkg/db"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/metrics"
	"github.com/zenstore/zenstore-backend/pkg/migrate"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/redis"
)

const lockKeyFormat = "zen:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	notesService, err := notes.NewService(notes.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notes service", err)
		os.Exit(1)
	}

	ledger, err := wallet.NewGormLedger(dbClient.DB(), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet ledger", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Ledger:        ledger,
		Logger:        logg,
		Metrics:       metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		LedgerTimeout: cfg.Settlement.LedgerTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	orderRepo := fulfillment.NewRepository(dbClient.DB())
	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		DB:         dbClient,
		Repo:       orderRepo,
		Settlement: settlementService,
		Notes:      notesService,
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	scanner, err := autoresume.NewScanner(autoresume.ScannerParams{
		Reader:  orderRepo,
		Resumer: fulfillmentService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto-resume scanner", err)
		os.Exit(1)
	}

	walletResumeJob, err := cron.NewWalletResumeJob(cron.WalletResumeJobParams{
		Scanner: scanner,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet resume job", err)
		os.Exit(1)
	}

	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(walletResumeJob, outboxRetentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
