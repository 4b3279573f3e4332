package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/lendinglib-backend/api/responses"
	"github.com/angelmondragon/lendinglib-backend/api/validators"
	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

// AvailabilityService is the detector/reconciler surface used by the handlers.
type AvailabilityService interface {
	Availability(ctx context.Context, q availability.AvailabilityQuery) (*availability.AvailabilityResult, error)
	CheckReservation(ctx context.Context, id uuid.UUID) (*availability.CheckResult, error)
	CloseReservation(ctx context.Context, id uuid.UUID, status enums.ReservationStatus) (availability.Result, error)
}

type closeReservationRequest struct {
	Status string `json:"status" validate:"required,oneof=closed returned canceled"`
}

// ItemAvailability reports free units of one item over a date range.
func ItemAvailability(svc AvailabilityService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseQueryUUID(r, "itemId", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		exclude, err := validators.ParseQueryUUID(r, "excludeReservationId", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.Availability(r.Context(), availability.AvailabilityQuery{
			ItemID:               itemID,
			PickupDate:           q.Get("pickupDate"),
			ReturnDate:           q.Get("returnDate"),
			ExcludeReservationID: exclude,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ReservationAvailability(svc AvailabilityService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CheckReservation(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CloseReservation ends an open reservation and returns the follow-up
// reconcile summary.
func CloseReservation(svc AvailabilityService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req closeReservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseReservationStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		result, err := svc.CloseReservation(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
