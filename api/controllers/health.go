package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/lendinglib-backend/api/responses"
	"github.com/angelmondragon/lendinglib-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

const (
	envHeader          = "X-Lendinglib-Env"
	readinessTimeout   = 2 * time.Second
	dependencyUp       = "ok"
	dependencyDisabled = "disabled"
)

// Pinger is any dependency with a health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each dependency; a nil pinger is reported as disabled.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		failed := false
		for name, dep := range deps {
			if dep == nil {
				checks[name] = dependencyDisabled
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				failed = true
				continue
			}
			checks[name] = dependencyUp
		}
		if failed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
