package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pricewatch-backend/api/routes"
	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/notify"
	"github.com/angelmondragon/pricewatch-backend/internal/store"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	"github.com/angelmondragon/pricewatch-backend/pkg/instance"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
	"github.com/angelmondragon/pricewatch-backend/pkg/metrics"
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

	productStore, err := store.New(context.Background(), cfg.Store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open product store", err)
		os.Exit(1)
	}
	defer func() {
		if err := productStore.Close(); err != nil {
			logg.Error(context.Background(), "error closing product store", err)
		}
	}()

	catalogClient, err := catalog.NewClient(cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}

	events := catalog.NewRingSink(256)
	sink := catalog.MultiSink{catalog.LogSink{Log: logg}, events}

	resolver, err := catalog.NewResolver(catalog.ResolverParams{
		Source:    catalogClient,
		Logger:    logg,
		Sink:      sink,
		Metrics:   metrics.NewResolutionMetrics(prometheus.DefaultRegisterer),
		BatchSize: cfg.Resolver.BatchSize,
		SearchGap: cfg.Resolver.SearchGap,
		DetailGap: cfg.Resolver.DetailGap,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog resolver", err)
		os.Exit(1)
	}

	scanner, err := catalog.NewScanner(catalog.ScannerParams{
		Source:   catalogClient,
		Logger:   logg,
		Sink:     sink,
		PageSize: cfg.Catalog.PageSize,
		PageGap:  cfg.Resolver.SearchGap,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create section scanner", err)
		os.Exit(1)
	}

	notifier, err := notify.New(context.Background(), cfg.Telegram, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create telegram notifier", err)
		os.Exit(1)
	}

	trackerService, err := tracker.NewService(tracker.ServiceParams{
		Store:        productStore,
		Resolver:     resolver,
		Notifier:     notifier,
		Logger:       logg,
		Metrics:      metrics.NewRunMetrics(prometheus.DefaultRegisterer),
		HistoryLimit: cfg.Tracker.HistoryLimit,
		Timezone:     cfg.Tracker.Timezone,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tracker service", err)
		os.Exit(1)
	}

	targets, err := catalog.LoadTargets(cfg.Reports.TargetsDir)
	if err != nil {
		ctx := logg.WithField(context.Background(), "error", err.Error())
		logg.Warn(ctx, "some scan targets failed to load")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"store":    cfg.Store.Driver,
		"targets":  len(targets),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			productStore,
			trackerService,
			resolver,
			scanner,
			targets,
			events,
			promhttp.Handler(),
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
