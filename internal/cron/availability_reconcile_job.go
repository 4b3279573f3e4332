package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

type availabilityReconciler interface {
	ReconcileAll(ctx context.Context) (availability.Result, error)
}

type AvailabilityReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler availabilityReconciler
}

// NewAvailabilityReconcileJob builds the job that re-audits every open
// reservation against current stock.
func NewAvailabilityReconcileJob(params AvailabilityReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("availability reconciler required")
	}
	return &availabilityReconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
	}, nil
}

type availabilityReconcileJob struct {
	logg       *logger.Logger
	reconciler availabilityReconciler
}

func (j *availabilityReconcileJob) Name() string { return "availability-reconcile" }

// Run reports failed status writes as a job failure so they show up in the
// cron metrics; the pass itself has already written everything it could.
func (j *availabilityReconcileJob) Run(ctx context.Context) error {
	result, err := j.reconciler.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("availability reconcile: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":  result.Checked,
		"flagged":  result.Flagged,
		"resolved": result.Resolved,
		"written":  result.Written,
		"failed":   result.Failed,
	})
	if result.Failed > 0 {
		return fmt.Errorf("availability reconcile: %d status writes failed: %w", result.Failed, result.Err)
	}
	j.logg.Info(logCtx, "availability reconcile job complete")
	return nil
}
