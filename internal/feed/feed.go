package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	"github.com/google/uuid"
)

// FlaggedLister reads reservations currently carrying a conflict flag.
type FlaggedLister interface {
	ListFlagged(ctx context.Context) ([]models.Reservation, error)
}

// Reconciler triggers a full availability pass.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (availability.Result, error)
}

type Params struct {
	Reservations     FlaggedLister
	Reconciler       Reconciler
	Preferences      PreferenceStore
	Clock            clock.Clock
	Logger           *logger.Logger
	UrgentWindowDays int
}

// Feed serves the conflict list. It only reads reconciler output.
type Feed struct {
	reservations FlaggedLister
	reconciler   Reconciler
	prefs        PreferenceStore
	clock        clock.Clock
	logg         *logger.Logger
	urgentDays   int

	mu     sync.RWMutex
	cached *View
}

func New(params Params) (*Feed, error) {
	if params.Reservations == nil {
		return nil, errors.New("reservation lister required")
	}
	if params.Reconciler == nil {
		return nil, errors.New("reconciler required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Preferences == nil {
		params.Preferences = NewMemoryPreferences()
	}
	if params.Clock == nil {
		params.Clock = clock.NewSystem(nil)
	}
	if params.UrgentWindowDays <= 0 {
		params.UrgentWindowDays = DefaultUrgentWindowDays
	}
	return &Feed{
		reservations: params.Reservations,
		reconciler:   params.Reconciler,
		prefs:        params.Preferences,
		clock:        params.Clock,
		logg:         params.Logger,
		urgentDays:   params.UrgentWindowDays,
	}, nil
}

// Recompute rebuilds the cached projection from the store.
func (f *Feed) Recompute(ctx context.Context) (View, error) {
	rows, err := f.reservations.ListFlagged(ctx)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load flagged reservations")
	}
	view := Project(rows, calendar.Today(f.clock), f.urgentDays)

	f.mu.Lock()
	f.cached = &view
	f.mu.Unlock()
	return view, nil
}

func (f *Feed) current(ctx context.Context) (View, error) {
	f.mu.RLock()
	cached := f.cached
	f.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	return f.Recompute(ctx)
}

// View returns the feed for viewer, minus entries they dismissed at the
// same detection time.
func (f *Feed) View(ctx context.Context, viewer Viewer) (View, error) {
	if !CanView(viewer.Role) {
		return View{}, pkgerrors.New(pkgerrors.CodeForbidden, "conflict feed requires staff access")
	}
	view, err := f.current(ctx)
	if err != nil {
		return View{}, err
	}
	if viewer.UserID == "" {
		return view, nil
	}

	dismissed, err := f.prefs.Dismissed(ctx, viewer.UserID)
	if err != nil {
		f.logg.Warn(f.logg.WithUserID(ctx, viewer.UserID), "feed preferences unavailable: "+err.Error())
		return view, nil
	}
	return filterDismissed(view, dismissed), nil
}

func filterDismissed(view View, dismissed map[uuid.UUID]time.Time) View {
	if len(dismissed) == 0 {
		return view
	}
	visible := make([]Entry, 0, len(view.Entries))
	for _, entry := range view.Entries {
		at, ok := dismissed[entry.ReservationID]
		if ok && sameDetection(entry, at) {
			view.Dismissed++
			continue
		}
		visible = append(visible, entry)
	}
	view.Entries = visible
	view.Stats = summarize(visible)
	return view
}

func sameDetection(entry Entry, at time.Time) bool {
	if entry.DetectedAt == nil {
		return at.IsZero()
	}
	return entry.DetectedAt.Equal(at)
}

// Refresh runs a reconcile pass, then rebuilds the projection.
func (f *Feed) Refresh(ctx context.Context, viewer Viewer) (View, availability.Result, error) {
	if !CanView(viewer.Role) {
		return View{}, availability.Result{}, pkgerrors.New(pkgerrors.CodeForbidden, "conflict feed requires staff access")
	}
	result, err := f.reconciler.ReconcileAll(ctx)
	if err != nil {
		return View{}, result, err
	}
	if _, err := f.Recompute(ctx); err != nil {
		return View{}, result, err
	}
	view, err := f.View(ctx, viewer)
	return view, result, err
}

// Dismiss hides a flagged reservation for viewer until it is flagged again.
func (f *Feed) Dismiss(ctx context.Context, viewer Viewer, reservationID uuid.UUID) error {
	if !CanView(viewer.Role) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "conflict feed requires staff access")
	}
	if viewer.UserID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	view, err := f.current(ctx)
	if err != nil {
		return err
	}
	for _, entry := range view.Entries {
		if entry.ReservationID != reservationID {
			continue
		}
		var at time.Time
		if entry.DetectedAt != nil {
			at = *entry.DetectedAt
		}
		if err := f.prefs.Dismiss(ctx, viewer.UserID, reservationID, at); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store dismissal")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "reservation is not flagged")
}

// Run recomputes the projection on every relevant event until ctx is done
// or the subscription closes.
func (f *Feed) Run(ctx context.Context, sub events.Subscriber) error {
	if sub == nil {
		return errors.New("subscriber required")
	}
	ch, cancel, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := f.Recompute(ctx); err != nil {
		f.logg.Error(ctx, "initial feed projection failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			if evt.Type != events.TypeSnapshotChanged && evt.Type != events.TypeReservationClosed {
				continue
			}
			ectx := f.logg.WithFields(ctx, map[string]any{
				"event_id":   evt.ID.String(),
				"event_type": string(evt.Type),
			})
			view, err := f.Recompute(ectx)
			if err != nil {
				f.logg.Error(ectx, "feed recompute failed", err)
				continue
			}
			f.logg.Debug(f.logg.WithField(ectx, "flagged", view.Stats.TotalFlagged), "feed recomputed")
		}
	}
}
