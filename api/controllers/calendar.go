package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/lendinglib-backend/api/middleware"
	"github.com/angelmondragon/lendinglib-backend/api/responses"
	"github.com/angelmondragon/lendinglib-backend/api/validators"
	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

const maxClosureReasonLen = 500

// CalendarService is the closed-dates surface used by the handlers.
type CalendarService interface {
	ListClosedDates(ctx context.Context) ([]models.ClosedDate, error)
	IsDateClosed(ctx context.Context, value any) (bool, error)
	CloseDate(ctx context.Context, input calendar.CloseDateInput) (*models.ClosedDate, error)
	ReopenDate(ctx context.Context, value any) error
	ValidateReservationDates(ctx context.Context, pickup, ret any) (calendar.ReservationDateValidation, error)
}

type closeDateRequest struct {
	Date   string `json:"date" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type validateReservationRequest struct {
	PickupDate string `json:"pickupDate"`
	ReturnDate string `json:"returnDate"`
}

func ListClosedDates(svc CalendarService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListClosedDates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetClosedDate reports whether the date in the path is blacked out.
func GetClosedDate(svc CalendarService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "dateKey")
		closed, err := svc.IsDateClosed(r.Context(), raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"dateKey": calendar.Normalize(raw),
			"closed":  closed,
		})
	}
}

func CloseDate(svc CalendarService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req closeDateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.CloseDate(r.Context(), calendar.CloseDateInput{
			Date:      req.Date,
			Reason:    validators.SanitizeString(req.Reason, maxClosureReasonLen),
			CreatedBy: middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func ReopenDate(svc CalendarService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ReopenDate(r.Context(), chi.URLParam(r, "dateKey")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"reopened": true})
	}
}

func ValidateReservationDates(svc CalendarService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateReservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.PickupDate == "" && req.ReturnDate == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pickupDate or returnDate is required"))
			return
		}
		result, err := svc.ValidateReservationDates(r.Context(), req.PickupDate, req.ReturnDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
