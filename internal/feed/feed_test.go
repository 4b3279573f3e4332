package feed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	"github.com/google/uuid"
)

type stubLister struct {
	mu    sync.Mutex
	rows  []models.Reservation
	calls int
	err   error
}

func (s *stubLister) ListFlagged(context.Context) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]models.Reservation(nil), s.rows...), s.err
}

func (s *stubLister) set(rows ...models.Reservation) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

func (s *stubLister) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubReconciler struct {
	onRun func()
	err   error
	runs  int
}

func (s *stubReconciler) ReconcileAll(context.Context) (availability.Result, error) {
	s.runs++
	if s.onRun != nil {
		s.onRun()
	}
	return availability.Result{Checked: 1}, s.err
}

var staff = Viewer{UserID: "staff-1", Role: enums.MemberRoleStaff}

func newTestFeed(t *testing.T, lister *stubLister, rec *stubReconciler) *Feed {
	t.Helper()
	f, err := New(Params{
		Reservations: lister,
		Reconciler:   rec,
		Clock:        clock.NewFixed(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	return f
}

func TestFeedViewRequiresPrivilegedRole(t *testing.T) {
	f := newTestFeed(t, &stubLister{}, &stubReconciler{})
	_, err := f.View(context.Background(), Viewer{UserID: "v", Role: enums.MemberRoleVolunteer})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.Dismiss(context.Background(), Viewer{UserID: "c", Role: enums.MemberRoleClient}, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden dismiss, got %v", err)
	}
}

func TestFeedCachesProjection(t *testing.T) {
	lister := &stubLister{}
	lister.set(flagged("2024-06-02", time.Now(), 1))
	f := newTestFeed(t, lister, &stubReconciler{})

	for i := 0; i < 3; i++ {
		view, err := f.View(context.Background(), staff)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		if view.Stats.TotalFlagged != 1 {
			t.Fatalf("expected one flagged, got %d", view.Stats.TotalFlagged)
		}
	}
	if lister.callCount() != 1 {
		t.Fatalf("expected one store read, got %d", lister.callCount())
	}
}

func TestFeedLoadFailure(t *testing.T) {
	f := newTestFeed(t, &stubLister{err: errors.New("db down")}, &stubReconciler{})
	_, err := f.View(context.Background(), staff)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestFeedRefreshRunsReconcilerThenReprojects(t *testing.T) {
	lister := &stubLister{}
	res := flagged("2024-06-02", time.Now(), 2)
	lister.set(res)
	rec := &stubReconciler{}
	f := newTestFeed(t, lister, rec)

	if _, err := f.View(context.Background(), staff); err != nil {
		t.Fatalf("view: %v", err)
	}
	rec.onRun = func() { lister.set() }

	view, result, err := f.Refresh(context.Background(), staff)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rec.runs != 1 || result.Checked != 1 {
		t.Fatalf("expected reconciler to run once, got %d", rec.runs)
	}
	if view.Stats.TotalFlagged != 0 {
		t.Fatalf("expected refreshed empty view, got %+v", view.Stats)
	}
}

func TestFeedRefreshPropagatesReconcileError(t *testing.T) {
	rec := &stubReconciler{err: pkgerrors.New(pkgerrors.CodeDependency, "snapshot failed")}
	f := newTestFeed(t, &stubLister{}, rec)
	if _, _, err := f.Refresh(context.Background(), staff); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestFeedDismissHidesUntilReflagged(t *testing.T) {
	ctx := context.Background()
	lister := &stubLister{}
	first := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	res := flagged("2024-06-02", first, 1)
	other := flagged("2024-06-03", first, 1)
	lister.set(res, other)
	f := newTestFeed(t, lister, &stubReconciler{})

	if err := f.Dismiss(ctx, staff, res.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	view, err := f.View(ctx, staff)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Entries) != 1 || view.Entries[0].ReservationID != other.ID || view.Dismissed != 1 {
		t.Fatalf("expected dismissed entry hidden, got %+v", view)
	}
	if view.Stats.TotalFlagged != 1 {
		t.Fatalf("expected stats over visible entries, got %+v", view.Stats)
	}

	admin := Viewer{UserID: "admin-1", Role: enums.MemberRoleAdmin}
	if view, _ := f.View(ctx, admin); len(view.Entries) != 2 {
		t.Fatalf("dismissals are per user, got %d entries", len(view.Entries))
	}

	reflagged := res
	later := first.Add(48 * time.Hour)
	reflagged.ConflictDetectedAt = &later
	lister.set(reflagged, other)
	if _, err := f.Recompute(ctx); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	view, _ = f.View(ctx, staff)
	if len(view.Entries) != 2 {
		t.Fatalf("expected re-flagged reservation to reappear, got %+v", view.Entries)
	}

	if err := f.Dismiss(ctx, staff, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unflagged reservation, got %v", err)
	}
}

func TestFeedRunRecomputesOnSnapshotChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lister := &stubLister{}
	f := newTestFeed(t, lister, &stubReconciler{})
	bus := events.NewLocalBus(4)

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, bus) }()

	waitFor(t, func() bool { return lister.callCount() >= 1 })

	lister.set(flagged("2024-06-02", time.Now(), 1))
	// Calendar changes do not touch availability state.
	waitFor(t, func() bool {
		_ = bus.Publish(ctx, events.New(events.TypeCalendarChanged, "test", time.Now()))
		_ = bus.Publish(ctx, events.New(events.TypeSnapshotChanged, "test", time.Now()))
		view, err := f.View(ctx, staff)
		return err == nil && view.Stats.TotalFlagged == 1
	})

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
