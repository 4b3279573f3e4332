package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/lendinglib-backend/api/middleware"
	"github.com/angelmondragon/lendinglib-backend/api/responses"
	"github.com/angelmondragon/lendinglib-backend/api/validators"
	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/feed"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

// FeedService is the conflict feed surface used by the handlers.
type FeedService interface {
	View(ctx context.Context, viewer feed.Viewer) (feed.View, error)
	Refresh(ctx context.Context, viewer feed.Viewer) (feed.View, availability.Result, error)
	Dismiss(ctx context.Context, viewer feed.Viewer, reservationID uuid.UUID) error
}

func viewerFrom(r *http.Request) feed.Viewer {
	return feed.Viewer{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}

func ConflictFeed(svc FeedService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.View(r.Context(), viewerFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RefreshConflicts(svc FeedService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, result, err := svc.Refresh(r.Context(), viewerFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"feed":      view,
			"reconcile": result,
		})
	}
}

func DismissConflict(svc FeedService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Dismiss(r.Context(), viewerFrom(r), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"dismissed": true})
	}
}
