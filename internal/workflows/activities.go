package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
)

// FrameRequest names one frame of a precompute run.
type FrameRequest struct {
	RunID    string
	Day      int
	Gradient string
	Map      string
	Width    float64
	Height   float64
}

// FrameSummary is what ComputeFrame reports back to the workflow. The frame
// itself goes to the cache and NATS, not into workflow history.
type FrameSummary struct {
	Day   int
	Total int
	Towns int
}

// FrameActivities holds the activity implementations for the precompute workflow.
type FrameActivities struct {
	Heatmaps *usecases.HeatmapService
}

// RunDays returns how many days a stored run has.
func (a *FrameActivities) RunDays(ctx context.Context, runID string) (int, error) {
	run, err := a.Heatmaps.Run(ctx, runID)
	if err != nil {
		return 0, activityError(fmt.Errorf("get run %s: %w", runID, err))
	}
	return run.Days, nil
}

// ComputeFrame renders one day. HeatmapService caches and publishes it.
func (a *FrameActivities) ComputeFrame(ctx context.Context, req FrameRequest) (FrameSummary, error) {
	frame, err := a.Heatmaps.Frame(ctx, usecases.FrameQuery{
		RunID:    req.RunID,
		Day:      req.Day,
		Gradient: req.Gradient,
		Map:      req.Map,
		Width:    req.Width,
		Height:   req.Height,
	})
	if err != nil {
		return FrameSummary{}, activityError(fmt.Errorf("frame %s/%d: %w", req.RunID, req.Day, err))
	}
	activity.GetLogger(ctx).Debug("frame computed", "run", req.RunID, "day", req.Day, "total", frame.Total)
	return FrameSummary{Day: frame.Day, Total: frame.Total, Towns: len(frame.Towns)}, nil
}

// activityError stops retries for errors another attempt cannot fix.
func activityError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidGradient),
		errors.Is(err, domain.ErrInvalidGeometry),
		errors.Is(err, domain.ErrOutOfBounds):
		return temporal.NewNonRetryableApplicationError(err.Error(), "invalid_input", err)
	}
	return err
}
