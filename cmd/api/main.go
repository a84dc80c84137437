package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zenstore/zenstore-backend/api/controllers"
	"github.com/zenstore/zenstore-backend/api/routes"
	"github.com/zenstore/zenstore-backend/internal/fulfillment"
	"github.com/zenstore/zenstore-backend/internal/ingestion"
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

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	ingestionService, err := ingestion.NewService(ingestion.ServiceParams{
		DB:          dbClient,
		Orders:      orderRepo,
		Connections: ingestion.NewConnectionRepository(dbClient.DB()),
		Outbox:      outboxService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingestion service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.ServiceParams{
		Ledger: ledger,
		TxRun:  dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Fulfillment: fulfillmentService,
			Ingestion:   ingestionService,
			Wallet:      walletService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
