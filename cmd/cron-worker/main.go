package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/internal/cron"
	"github.com/angelmondragon/lendinglib-backend/internal/inventory"
	"github.com/angelmondragon/lendinglib-backend/internal/reservations"
	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/config"
	"github.com/angelmondragon/lendinglib-backend/pkg/db"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/instance"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	"github.com/angelmondragon/lendinglib-backend/pkg/metrics"
	"github.com/angelmondragon/lendinglib-backend/pkg/migrate"
	"github.com/angelmondragon/lendinglib-backend/pkg/redis"
)

const lockNameFormat = "cron-worker:%s"

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

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Calendar.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid calendar timezone", err)
		os.Exit(1)
	}
	clk := clock.NewSystem(loc)

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	bus, err := events.NewRedisBus(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create event bus", err)
		os.Exit(1)
	}

	reservationRepo := reservations.NewRepository(dbClient.DB())
	availabilityService, err := availability.NewService(availability.ServiceParams{
		DB:           dbClient,
		Reservations: reservationRepo,
		Items:        inventory.NewRepository(dbClient.DB()),
		Clock:        clk,
		Publisher:    bus,
		Metrics:      metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		Options:      availability.Options{MarkMalformedUnknown: cfg.Availability.MarkMalformedUnknown},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}
	calendarService, err := calendar.NewService(calendar.ServiceParams{
		Repo:         calendar.NewRepository(dbClient.DB()),
		Reservations: reservationRepo,
		Clock:        clk,
		Publisher:    bus,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create calendar service", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewAvailabilityReconcileJob(cron.AvailabilityReconcileJobParams{
		Logger:     logg,
		Reconciler: availabilityService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewClosedDateRetentionJob(cron.ClosedDateRetentionJobParams{
		Logger:    logg,
		Pruner:    calendarService,
		Retention: cfg.Calendar.RetentionDays,
		Location:  loc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create closed date retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(reconcileJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Clock:    clk,
		Interval: cfg.Availability.ReconcileInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"lock":     lock.Key(),
		"jobs":     registry.Names(),
		"interval": cfg.Availability.ReconcileInterval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}
