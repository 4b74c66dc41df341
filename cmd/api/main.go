package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kwameasiedu/shopstack/api/routes"
	"github.com/kwameasiedu/shopstack/internal/catalog"
	"github.com/kwameasiedu/shopstack/internal/marketplace"
	"github.com/kwameasiedu/shopstack/internal/marketplace/browse"
	"github.com/kwameasiedu/shopstack/internal/sales"
	"github.com/kwameasiedu/shopstack/internal/sellers"
	"github.com/kwameasiedu/shopstack/internal/stats"
	"github.com/kwameasiedu/shopstack/pkg/config"
	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/migrate"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/redis"
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

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(sales.NewRepository(dbClient.DB()), dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	sellersService, err := sellers.NewService(sellers.NewRepository(dbClient.DB()), dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create sellers service", err)
		os.Exit(1)
	}

	statsService, err := stats.NewService(stats.NewRepository(dbClient.DB()), redisClient, cfg.Stats, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	browseService, err := browse.NewService(marketplace.NewRepository(dbClient.DB()), redisClient, cfg.Marketplace)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

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
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Registry:    registry,
			Catalog:     catalogService,
			Sales:       salesService,
			Sellers:     sellersService,
			Stats:       statsService,
			Marketplace: browseService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
