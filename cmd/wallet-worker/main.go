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
	"github.com/zenstore/zenstore-backend/internal/consumers/walletcredit"
	"github.com/zenstore/zenstore-backend/internal/fulfillment"
	"github.com/zenstore/zenstore-backend/internal/notes"
	"github.com/zenstore/zenstore-backend/internal/settlement"
	"github.com/zenstore/zenstore-backend/internal/wallet"
	"github.com/zenstore/zenstore-backend/pkg/config"
	"github.com/zenstore/zenstore-backend/pkg/db"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/metrics"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/outbox/idempotency"
	"github.com/zenstore/zenstore-backend/pkg/pubsub"
	"github.com/zenstore/zenstore-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "wallet-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "wallet-worker"

	logg = logger.New(logger.Options{
		ServiceName: "wallet-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	subscription := pubsubClient.WalletSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "wallet subscription", errors.New("subscription not configured"))
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	notesService, err := notes.NewService(notes.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notes service", err)

	ledger, err := wallet.NewGormLedger(dbClient.DB(), dbClient)
	requireResource(ctx, logg, "wallet ledger", err)

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Ledger:        ledger,
		Logger:        logg,
		Metrics:       metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		LedgerTimeout: cfg.Settlement.LedgerTimeout,
	})
	requireResource(ctx, logg, "settlement service", err)

	orderRepo := fulfillment.NewRepository(dbClient.DB())
	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		DB:         dbClient,
		Repo:       orderRepo,
		Settlement: settlementService,
		Notes:      notesService,
		Outbox:     outboxService,
		Logger:     logg,
	})
	requireResource(ctx, logg, "fulfillment service", err)

	scanner, err := autoresume.NewScanner(autoresume.ScannerParams{
		Reader:  orderRepo,
		Resumer: fulfillmentService,
		Logger:  logg,
	})
	requireResource(ctx, logg, "auto-resume scanner", err)

	manager, err := idempotency.NewManager(redisClient, cfg.PubSub.ConsumerIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := walletcredit.NewConsumer(scanner, manager, logg)
	requireResource(ctx, logg, "wallet-credit consumer", err)

	service, err := NewService(subscription, consumer, logg)
	requireResource(ctx, logg, "wallet worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "wallet worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "wallet worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
