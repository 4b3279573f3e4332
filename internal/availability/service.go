package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/internal/inventory"
	"github.com/angelmondragon/lendinglib-backend/internal/reservations"
	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/db"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	"github.com/angelmondragon/lendinglib-backend/pkg/metrics"
	"github.com/angelmondragon/lendinglib-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const eventSource = "availability"

type txRunner interface {
	WithReadTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB           txRunner
	Reservations reservations.Repository
	Items        inventory.Repository
	Clock        clock.Clock
	Publisher    events.Publisher
	Metrics      *metrics.ReconcileMetrics
	Logger       *logger.Logger
	Options      Options
}

// Service loads snapshots, runs the pure reconciler and persists its plan.
type Service struct {
	db           txRunner
	reservations reservations.Repository
	items        inventory.Repository
	clock        clock.Clock
	publisher    events.Publisher
	metrics      *metrics.ReconcileMetrics
	logg         *logger.Logger
	opts         Options
}

// Snapshot is a consistent read of open reservations and active items.
type Snapshot struct {
	Reservations []models.Reservation
	Items        []models.Item
	LoadedAt     time.Time
}

// Result summarises one persisted pass. Err aggregates write failures; it is
// informational and never returned by ReconcileAll.
type Result struct {
	Checked    int       `json:"checked"`
	Flagged    int       `json:"flagged"`
	Resolved   int       `json:"resolved"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Written    int       `json:"written"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Err        error     `json:"-"`
}

// CheckResult is an on-demand detection for one reservation.
type CheckResult struct {
	ReservationID uuid.UUID                   `json:"reservationId"`
	Checkable     bool                        `json:"checkable"`
	Status        enums.AvailabilityStatus    `json:"status"`
	Conflicts     types.AvailabilityConflicts `json:"conflicts"`
	CheckedAt     time.Time                   `json:"checkedAt"`
}

type AvailabilityQuery struct {
	ItemID               uuid.UUID
	PickupDate           string
	ReturnDate           string
	ExcludeReservationID uuid.UUID
}

type AvailabilityResult struct {
	ItemID     uuid.UUID        `json:"itemId"`
	ItemName   string           `json:"itemName"`
	PickupDate calendar.DateKey `json:"pickupDate"`
	ReturnDate calendar.DateKey `json:"returnDate"`
	Total      int              `json:"total"`
	Reserved   int              `json:"reserved"`
	Available  int              `json:"available"`
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db required")
	}
	if params.Reservations == nil {
		return nil, errors.New("reservation repository required")
	}
	if params.Items == nil {
		return nil, errors.New("item repository required")
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
		db:           params.DB,
		reservations: params.Reservations,
		items:        params.Items,
		clock:        params.Clock,
		publisher:    params.Publisher,
		metrics:      params.Metrics,
		logg:         params.Logger,
		opts:         params.Options,
	}, nil
}

// LoadSnapshot reads open reservations and active items in one read
// transaction so a pass never audits against a moving inventory.
func (s *Service) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.db.WithReadTx(ctx, func(tx *gorm.DB) error {
		open, err := s.reservations.WithTx(tx).ListOpen(ctx)
		if err != nil {
			return fmt.Errorf("list open reservations: %w", err)
		}
		items, err := s.items.WithTx(tx).ListActive(ctx)
		if err != nil {
			return fmt.Errorf("list active items: %w", err)
		}
		snap.Reservations = open
		snap.Items = items
		return nil
	})
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load availability snapshot")
	}
	snap.LoadedAt = s.clock.Now()
	return snap, nil
}

// ReconcileAll runs one full pass. Only a failed snapshot read is returned
// as an error; individual write failures are logged and counted.
func (s *Service) ReconcileAll(ctx context.Context) (Result, error) {
	started := s.clock.Now()
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		s.logg.Error(ctx, "reconcile snapshot load failed", err)
		return Result{StartedAt: started, FinishedAt: s.clock.Now()}, err
	}

	plan := ReconcileAll(snap.Reservations, snap.Items, started, s.opts)
	for _, id := range plan.Malformed {
		mctx := s.logg.WithFields(ctx, map[string]any{
			"reservation_id": id.String(),
			"kind":           enums.AvailabilityFailureMalformedInput.String(),
		})
		s.logg.Warn(mctx, "reservation skipped: missing dates or lines")
	}

	result := Result{
		Checked:   plan.Checked,
		Flagged:   plan.Flagged,
		Resolved:  plan.Resolved,
		Unchanged: plan.Unchanged,
		Skipped:   plan.Skipped,
		StartedAt: started,
	}

	written := make([]string, 0, len(plan.Updates))
	for _, upd := range plan.Updates {
		uctx := s.logg.WithReservationID(ctx, upd.ReservationID.String())
		if err := s.reservations.UpdateAvailability(uctx, upd.ReservationID, upd.Update); err != nil {
			result.Failed++
			result.Err = multierr.Append(result.Err, fmt.Errorf("reservation %s: %w", upd.ReservationID, err))
			s.logg.Error(
				s.logg.WithField(uctx, "kind", enums.AvailabilityFailurePersistenceFailure.String()),
				"availability status write failed",
				err,
			)
			continue
		}
		result.Written++
		written = append(written, upd.ReservationID.String())
		s.logg.Debug(s.logg.WithField(uctx, "transition", string(upd.Transition)), "availability status written")
	}
	result.FinishedAt = s.clock.Now()

	if result.Written > 0 {
		evt := events.New(events.TypeSnapshotChanged, eventSource, result.FinishedAt, written...)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logg.Warn(ctx, "publish snapshot change failed: "+err.Error())
		}
	}

	s.observe(result)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"checked":   result.Checked,
		"flagged":   result.Flagged,
		"resolved":  result.Resolved,
		"unchanged": result.Unchanged,
		"skipped":   result.Skipped,
		"written":   result.Written,
		"failed":    result.Failed,
	}), "availability reconcile completed")

	return result, nil
}

func (s *Service) observe(result Result) {
	s.metrics.ObserveDuration(result.FinishedAt.Sub(result.StartedAt))
	s.metrics.Add(metrics.OutcomeFlagged, result.Flagged)
	s.metrics.Add(metrics.OutcomeResolved, result.Resolved)
	s.metrics.Add(metrics.OutcomeUnchanged, result.Unchanged)
	s.metrics.Add(metrics.OutcomeSkipped, result.Skipped)
	s.metrics.Add(metrics.OutcomeFailed, result.Failed)
	s.metrics.SetFlagged(result.Flagged)
}

// CheckReservation runs the detector for one reservation without writing.
func (s *Service) CheckReservation(ctx context.Context, id uuid.UUID) (*CheckResult, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	target, err := s.findTarget(ctx, snap, id)
	if err != nil {
		return nil, err
	}

	out := &CheckResult{
		ReservationID: id,
		CheckedAt:     snap.LoadedAt,
		Conflicts:     types.AvailabilityConflicts{},
	}
	if !target.Status.IsOpen() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not open")
	}
	if !Checkable(*target) {
		out.Status = enums.AvailabilityStatusUnknown
		return out, nil
	}

	out.Checkable = true
	conflicts := DetectConflicts(*target, snap.Reservations, snap.Items)
	if len(conflicts) > 0 {
		out.Status = enums.AvailabilityStatusConflict
		out.Conflicts = conflicts
	} else {
		out.Status = enums.AvailabilityStatusOK
	}
	return out, nil
}

func (s *Service) findTarget(ctx context.Context, snap Snapshot, id uuid.UUID) (*models.Reservation, error) {
	for i := range snap.Reservations {
		if snap.Reservations[i].ID == id {
			return &snap.Reservations[i], nil
		}
	}
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservation")
	}
	return res, nil
}

// Availability reports how many units of an item remain free over a range.
func (s *Service) Availability(ctx context.Context, q AvailabilityQuery) (*AvailabilityResult, error) {
	window := Window{
		Pickup: calendar.Normalize(q.PickupDate),
		Return: calendar.Normalize(q.ReturnDate),
	}
	if window.Pickup == calendar.InvalidDate || window.Return == calendar.InvalidDate {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickupDate and returnDate must be valid dates")
	}
	if window.Return.Before(window.Pickup) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "returnDate must not be before pickupDate")
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	detector := NewDetector(snap.Reservations, snap.Items)
	item, ok := detector.Inventory().Lookup(q.ItemID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}

	return &AvailabilityResult{
		ItemID:     item.ID,
		ItemName:   item.Name,
		PickupDate: window.Pickup,
		ReturnDate: window.Return,
		Total:      item.Quantity,
		Reserved:   detector.Reserved(item.ID, window, q.ExcludeReservationID),
		Available:  detector.Available(item, window, q.ExcludeReservationID),
	}, nil
}

// CloseReservation takes an open reservation out of accounting and
// reconciles so the capacity it held can resolve other conflicts.
func (s *Service) CloseReservation(ctx context.Context, id uuid.UUID, status enums.ReservationStatus) (Result, error) {
	if !status.IsTerminal() {
		return Result{}, pkgerrors.Newf(pkgerrors.CodeValidation, "status %q does not close a reservation", status)
	}
	ctx = s.logg.WithReservationID(ctx, id.String())

	closed, err := s.reservations.CloseOpen(ctx, id, status, s.clock.Now())
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close reservation")
	}
	if !closed {
		if _, err := s.reservations.FindByID(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservation")
		}
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not open")
	}

	s.logg.Info(s.logg.WithField(ctx, "status", status.String()), "reservation closed")
	evt := events.New(events.TypeReservationClosed, eventSource, s.clock.Now(), id.String())
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logg.Warn(ctx, "publish reservation closed failed: "+err.Error())
	}

	return s.ReconcileAll(ctx)
}
