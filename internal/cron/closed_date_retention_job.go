package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

const closedDateRetentionDays = 365

type ClosedDateRetentionJobParams struct {
	Logger    *logger.Logger
	Pruner    closedDatePruner
	Retention int
	Location  *time.Location
}

type closedDatePruner interface {
	PruneBefore(ctx context.Context, cutoff calendar.DateKey) (int64, error)
}

// NewClosedDateRetentionJob builds the job that drops closed dates that fell
// out of the retention window.
func NewClosedDateRetentionJob(params ClosedDateRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pruner == nil {
		return nil, fmt.Errorf("closed date pruner required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = closedDateRetentionDays
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	return &closedDateRetentionJob{
		logg:      params.Logger,
		pruner:    params.Pruner,
		retention: retention,
		now:       func() time.Time { return time.Now().In(loc) },
	}, nil
}

type closedDateRetentionJob struct {
	logg      *logger.Logger
	pruner    closedDatePruner
	retention int
	now       func() time.Time
}

func (j *closedDateRetentionJob) Name() string { return "closed-date-retention" }

func (j *closedDateRetentionJob) Run(ctx context.Context) error {
	cutoff := calendar.Normalize(j.now()).AddDays(-j.retention)
	deleted, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("closed date retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff.String(),
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "closed date retention cleanup complete")
	return nil
}
