package schedule

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

type updateRunner interface {
	RunUpdate(ctx context.Context) (*tracker.RunSummary, error)
}

// UpdateJobParams configure the price update job.
type UpdateJobParams struct {
	Logger  *logger.Logger
	Tracker updateRunner
}

// NewUpdateJob builds the job that refreshes every tracked product.
func NewUpdateJob(params UpdateJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tracker == nil {
		return nil, fmt.Errorf("tracker service required")
	}
	return &updateJob{logg: params.Logger, tracker: params.Tracker}, nil
}

type updateJob struct {
	logg    *logger.Logger
	tracker updateRunner
}

func (j *updateJob) Name() string { return "price-update" }

// Run executes one update. A run already in flight, started through the
// API for example, is a skip rather than a failure.
func (j *updateJob) Run(ctx context.Context) error {
	summary, err := j.tracker.RunUpdate(ctx)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			j.logg.Info(ctx, "an update run is already in progress; skipping")
			return nil
		}
		return fmt.Errorf("update run: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"total":    summary.Total,
		"tracking": summary.Tracking,
		"failed":   summary.Failed,
		"risers":   len(summary.Risers),
		"fallers":  len(summary.Fallers),
	})
	j.logg.Info(logCtx, "price update cycle complete")
	return nil
}
