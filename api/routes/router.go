package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/lendinglib-backend/api/controllers"
	"github.com/angelmondragon/lendinglib-backend/api/middleware"
	"github.com/angelmondragon/lendinglib-backend/pkg/config"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	"github.com/angelmondragon/lendinglib-backend/pkg/metrics"
)

// RouterParams carries everything the HTTP surface depends on. Nil pingers
// are reported as disabled by the readiness probe.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	Calendar     controllers.CalendarService
	Availability controllers.AvailabilityService
	Feed         controllers.FeedService
	HTTPMetrics  *metrics.HTTPMetrics
	Gatherer     prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{"db": p.DB, "redis": p.Redis}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/closed-dates/{dateKey}", controllers.GetClosedDate(p.Calendar, logg))
			r.Post("/validate-reservation", controllers.ValidateReservationDates(p.Calendar, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Get("/closed-dates", controllers.ListClosedDates(p.Calendar, logg))
				r.Post("/closed-dates", controllers.CloseDate(p.Calendar, logg))
				r.Delete("/closed-dates/{dateKey}", controllers.ReopenDate(p.Calendar, logg))
			})
		})

		r.Get("/availability", controllers.ItemAvailability(p.Availability, logg))
		r.Route("/reservations/{reservationId}", func(r chi.Router) {
			r.Get("/availability", controllers.ReservationAvailability(p.Availability, logg))
			r.With(middleware.RequireStaff(logg)).Post("/close", controllers.CloseReservation(p.Availability, logg))
		})

		// role checks for the feed live in the feed service
		r.Route("/conflicts", func(r chi.Router) {
			r.Get("/", controllers.ConflictFeed(p.Feed, logg))
			r.Post("/refresh", controllers.RefreshConflicts(p.Feed, logg))
			r.Post("/{reservationId}/dismiss", controllers.DismissConflict(p.Feed, logg))
		})
	})

	return r
}
