package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/lendinglib-backend/api/controllers"
	"github.com/angelmondragon/lendinglib-backend/api/routes"
	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/internal/feed"
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

const (
	localBusBuffer  = 64
	shutdownTimeout = 10 * time.Second
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

	// Without Redis the API falls back to an in-process bus and
	// per-process dismissals.
	var (
		bus         events.Bus
		prefs       feed.PreferenceStore
		redisPinger controllers.Pinger
	)
	if cfg.Redis.Enabled() {
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
		redisBus, err := events.NewRedisBus(redisClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create event bus", err)
			os.Exit(1)
		}
		redisPrefs, err := feed.NewRedisPreferences(redisClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create preference store", err)
			os.Exit(1)
		}
		bus, prefs, redisPinger = redisBus, redisPrefs, redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-process event bus")
		bus, prefs = events.NewLocalBus(localBusBuffer), feed.NewMemoryPreferences()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	reservationRepo := reservations.NewRepository(dbClient.DB())
	itemRepo := inventory.NewRepository(dbClient.DB())

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

	availabilityService, err := availability.NewService(availability.ServiceParams{
		DB:           dbClient,
		Reservations: reservationRepo,
		Items:        itemRepo,
		Clock:        clk,
		Publisher:    bus,
		Metrics:      metrics.NewReconcileMetrics(registry),
		Logger:       logg,
		Options:      availability.Options{MarkMalformedUnknown: cfg.Availability.MarkMalformedUnknown},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	conflictFeed, err := feed.New(feed.Params{
		Reservations:     reservationRepo,
		Reconciler:       availabilityService,
		Preferences:      prefs,
		Clock:            clk,
		Logger:           logg,
		UrgentWindowDays: cfg.Availability.UrgentWindowDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create conflict feed", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Availability.ReconcileOnStartup {
		result, err := availabilityService.ReconcileAll(ctx)
		if err != nil {
			logg.Error(ctx, "startup reconcile failed", err)
		} else {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"checked": result.Checked,
				"flagged": result.Flagged,
				"failed":  result.Failed,
			}), "startup reconcile completed")
		}
	}
	go func() {
		if err := conflictFeed.Run(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "conflict feed listener stopped", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisPinger,
			Calendar:     calendarService,
			Availability: availabilityService,
			Feed:         conflictFeed,
			HTTPMetrics:  metrics.NewHTTPMetrics(registry),
			Gatherer:     registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
