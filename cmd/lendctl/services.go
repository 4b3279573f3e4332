package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/internal/inventory"
	"github.com/angelmondragon/lendinglib-backend/internal/reservations"
	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/config"
	"github.com/angelmondragon/lendinglib-backend/pkg/db"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/redis"
)

type services struct {
	cfg          *config.Config
	clock        clock.Clock
	availability *availability.Service
	calendar     *calendar.Service
}

func (s *services) today() calendar.DateKey {
	return calendar.Today(s.clock)
}

// withServices wires config, storage and domain services for one command and
// tears them down afterwards. Status changes are published on Redis when it is
// configured so running APIs refresh their feeds.
func withServices(fn func(c *cli.Context, s *services) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		logg := newLogger(c)

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		loc, err := cfg.Calendar.Location()
		if err != nil {
			return err
		}
		clk := clock.NewSystem(loc)

		dbClient, err := db.New(c.Context, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer dbClient.Close()

		var publisher events.Publisher = events.Nop{}
		if cfg.Redis.Enabled() {
			redisClient, err := redis.New(c.Context, cfg.Redis, logg)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisClient.Close()
			bus, err := events.NewRedisBus(redisClient, logg)
			if err != nil {
				return err
			}
			publisher = bus
		}

		reservationRepo := reservations.NewRepository(dbClient.DB())
		availabilityService, err := availability.NewService(availability.ServiceParams{
			DB:           dbClient,
			Reservations: reservationRepo,
			Items:        inventory.NewRepository(dbClient.DB()),
			Clock:        clk,
			Publisher:    publisher,
			Logger:       logg,
			Options:      availability.Options{MarkMalformedUnknown: cfg.Availability.MarkMalformedUnknown},
		})
		if err != nil {
			return err
		}
		calendarService, err := calendar.NewService(calendar.ServiceParams{
			Repo:         calendar.NewRepository(dbClient.DB()),
			Reservations: reservationRepo,
			Clock:        clk,
			Publisher:    publisher,
			Logger:       logg,
		})
		if err != nil {
			return err
		}

		return fn(c, &services{
			cfg:          cfg,
			clock:        clk,
			availability: availabilityService,
			calendar:     calendarService,
		})
	}
}
