package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kwameasiedu/shopstack/internal/marketplace"
	"github.com/kwameasiedu/shopstack/internal/marketplace/projector"
	"github.com/kwameasiedu/shopstack/internal/sellers"
	"github.com/kwameasiedu/shopstack/pkg/config"
	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/metrics"
	"github.com/kwameasiedu/shopstack/pkg/migrate"
	"github.com/kwameasiedu/shopstack/pkg/outbox/idempotency"
	"github.com/kwameasiedu/shopstack/pkg/pubsub"
	"github.com/kwameasiedu/shopstack/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "marketplace-projector"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "marketplace-projector",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	proj, err := projector.New(
		dbClient,
		marketplace.NewRepository(dbClient.DB()),
		sellers.NewRepository(dbClient.DB()),
		pubsubClient.CatalogSubscription(),
		manager,
		metrics.NewProjectorMetrics(prometheus.DefaultRegisterer),
		logg,
		cfg.Marketplace.FanoutChunk,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create projector", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.CatalogSubscription,
	})
	logg.Info(ctx, "starting marketplace projector")

	if err := proj.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "projector stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "projector shutting down gracefully")
}
