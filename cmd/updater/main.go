package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/notify"
	"github.com/angelmondragon/pricewatch-backend/internal/schedule"
	"github.com/angelmondragon/pricewatch-backend/internal/store"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	"github.com/angelmondragon/pricewatch-backend/pkg/instance"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
	"github.com/angelmondragon/pricewatch-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "updater"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "updater"

	logg = logger.New(logger.Options{
		ServiceName: "updater",
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

	resolver, err := catalog.NewResolver(catalog.ResolverParams{
		Source:    catalogClient,
		Logger:    logg,
		Sink:      catalog.LogSink{Log: logg},
		Metrics:   metrics.NewResolutionMetrics(prometheus.DefaultRegisterer),
		BatchSize: cfg.Resolver.BatchSize,
		SearchGap: cfg.Resolver.SearchGap,
		DetailGap: cfg.Resolver.DetailGap,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog resolver", err)
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

	updateJob, err := schedule.NewUpdateJob(schedule.UpdateJobParams{
		Logger:  logg,
		Tracker: trackerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create update job", err)
		os.Exit(1)
	}

	service, err := schedule.NewService(schedule.ServiceParams{
		Logger:   logg,
		Registry: schedule.NewRegistry(updateJob),
		Guard:    schedule.NewRunGuard(),
		Interval: cfg.Schedule.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create schedule service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"interval":    cfg.Schedule.Interval.String(),
		"runOnce":     cfg.Schedule.RunOnce,
	})
	logg.Info(ctx, "starting price updater")

	if cfg.Schedule.RunOnce {
		if err := service.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "update cycle failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "single update cycle complete")
		return
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "price updater stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "price updater shutting down gracefully")
}
