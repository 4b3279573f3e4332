package calendar

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/db"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

// OpenReservationLister supplies the reservations used to find events on a day.
type OpenReservationLister interface {
	ListOpen(ctx context.Context) ([]models.Reservation, error)
}

type ServiceParams struct {
	Repo         Repository
	Reservations OpenReservationLister
	Clock        clock.Clock
	Publisher    events.Publisher
	Logger       *logger.Logger
}

type CloseDateInput struct {
	Date      string
	Reason    string
	CreatedBy string
}

// Service is the closed-dates admin surface.
type Service struct {
	repo         Repository
	reservations OpenReservationLister
	clock        clock.Clock
	publisher    events.Publisher
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("closed date repository required")
	}
	if params.Reservations == nil {
		return nil, errors.New("reservation lister required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Clock == nil {
		params.Clock = clock.NewSystem(nil)
	}
	if params.Publisher == nil {
		params.Publisher = events.Nop{}
	}
	return &Service{
		repo:         params.Repo,
		reservations: params.Reservations,
		clock:        params.Clock,
		publisher:    params.Publisher,
		logg:         params.Logger,
	}, nil
}

func (s *Service) ListClosedDates(ctx context.Context) ([]models.ClosedDate, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list closed dates")
	}
	return rows, nil
}

// ClosedSet loads the current blackout set.
func (s *Service) ClosedSet(ctx context.Context) (ClosedSet, error) {
	rows, err := s.ListClosedDates(ctx)
	if err != nil {
		return nil, err
	}
	set := make(ClosedSet, len(rows))
	for _, row := range rows {
		if key := Normalize(row.DateKey); key != InvalidDate {
			set[key] = struct{}{}
		}
	}
	return set, nil
}

func (s *Service) IsDateClosed(ctx context.Context, value any) (bool, error) {
	key := Normalize(value)
	if key == InvalidDate {
		return false, pkgerrors.New(pkgerrors.CodeValidation, ReasonInvalidDate)
	}
	_, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case db.IsNotFound(err):
		return false, nil
	default:
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup closed date")
	}
}

// EventsOn returns the events open reservations have scheduled on value.
func (s *Service) EventsOn(ctx context.Context, value any) ([]ScheduledEvent, error) {
	open, err := s.reservations.ListOpen(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list open reservations")
	}
	return EventsOn(value, open), nil
}

// CloseDate blacks out a day after checking it is not past and carries no
// scheduled pickups, returns or event days.
func (s *Service) CloseDate(ctx context.Context, input CloseDateInput) (*models.ClosedDate, error) {
	key := Normalize(input.Date)
	ctx = s.logg.WithField(ctx, "date_key", string(key))

	scheduled, err := s.EventsOn(ctx, key)
	if err != nil {
		return nil, err
	}
	check := ValidateClosure(input.Date, scheduled, Today(s.clock))
	if !check.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, check.Reason).
			WithDetails(map[string]any{"date": input.Date, "events": scheduled})
	}

	row := &models.ClosedDate{
		DateKey:   string(key),
		Reason:    optionalString(input.Reason),
		CreatedBy: optionalString(input.CreatedBy),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "date already closed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create closed date")
	}

	s.logg.Info(ctx, "closed date added")
	s.publish(ctx)
	return row, nil
}

func (s *Service) ReopenDate(ctx context.Context, value any) error {
	key := Normalize(value)
	if key == InvalidDate {
		return pkgerrors.New(pkgerrors.CodeValidation, ReasonInvalidDate)
	}
	removed, err := s.repo.Delete(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete closed date")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "closed date not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "date_key", string(key)), "closed date removed")
	s.publish(ctx)
	return nil
}

// ValidateReservationDates checks a proposed pickup/return pair against the
// current blackout set.
func (s *Service) ValidateReservationDates(ctx context.Context, pickup, ret any) (ReservationDateValidation, error) {
	set, err := s.ClosedSet(ctx)
	if err != nil {
		return ReservationDateValidation{}, err
	}
	return ValidateReservationDates(pickup, ret, set), nil
}

// PruneBefore deletes closed dates earlier than cutoff.
func (s *Service) PruneBefore(ctx context.Context, cutoff DateKey) (int64, error) {
	if !cutoff.Valid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, ReasonInvalidDate)
	}
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prune closed dates")
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context) {
	evt := events.New(events.TypeCalendarChanged, "calendar", s.clock.Now())
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logg.Warn(ctx, "publish calendar change failed: "+err.Error())
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
