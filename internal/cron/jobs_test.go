package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeReconciler struct {
	result availability.Result
	err    error
	calls  int
}

func (f *fakeReconciler) ReconcileAll(context.Context) (availability.Result, error) {
	f.calls++
	return f.result, f.err
}

func TestAvailabilityReconcileJob(t *testing.T) {
	rec := &fakeReconciler{result: availability.Result{Checked: 4, Flagged: 1, Written: 1}}
	job, err := NewAvailabilityReconcileJob(AvailabilityReconcileJobParams{Logger: testLogger(), Reconciler: rec})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "availability-reconcile" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.calls != 1 {
		t.Fatalf("expected one pass, got %d", rec.calls)
	}
}

func TestAvailabilityReconcileJobReportsFailures(t *testing.T) {
	rec := &fakeReconciler{result: availability.Result{Written: 2, Failed: 1, Err: errors.New("reservation x: connection reset")}}
	job, _ := NewAvailabilityReconcileJob(AvailabilityReconcileJobParams{Logger: testLogger(), Reconciler: rec})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected failed writes to fail the job")
	}

	rec = &fakeReconciler{err: errors.New("snapshot")}
	job, _ = NewAvailabilityReconcileJob(AvailabilityReconcileJobParams{Logger: testLogger(), Reconciler: rec})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected snapshot error")
	}
}

type fakePruner struct {
	cutoff calendar.DateKey
	err    error
}

func (f *fakePruner) PruneBefore(_ context.Context, cutoff calendar.DateKey) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestClosedDateRetentionJobCutoff(t *testing.T) {
	pruner := &fakePruner{}
	jobIface, err := NewClosedDateRetentionJob(ClosedDateRetentionJobParams{Logger: testLogger(), Pruner: pruner, Retention: 30})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*closedDateRetentionJob)
	job.now = func() time.Time { return time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.cutoff != "2024-02-14" {
		t.Fatalf("expected cutoff 2024-02-14, got %s", pruner.cutoff)
	}

	pruner.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestClosedDateRetentionJobDefaults(t *testing.T) {
	jobIface, err := NewClosedDateRetentionJob(ClosedDateRetentionJobParams{Logger: testLogger(), Pruner: &fakePruner{}})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job := jobIface.(*closedDateRetentionJob); job.retention != closedDateRetentionDays {
		t.Fatalf("expected default retention, got %d", job.retention)
	}
	if _, err := NewClosedDateRetentionJob(ClosedDateRetentionJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error without pruner")
	}
}
