package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/epiviz/internal/core/catalog"
)

// framesInFlight bounds how many ComputeFrame activities run at once.
const framesInFlight = 8

// PrecomputeInput is the input for the precompute workflow.
type PrecomputeInput struct {
	RunID    string
	Gradient string
	Map      string
	Width    float64
	Height   float64
}

// PrecomputeResult reports how many frames were rendered.
type PrecomputeResult struct {
	Days     int
	Frames   int
	Failed   []int
	Infected int // sum over days of total_infected
}

// PrecomputeFramesWorkflow renders every day of a run so the first viewer
// of an animation hits a warm cache. Days that still fail after retries are
// reported, not fatal.
func PrecomputeFramesWorkflow(ctx workflow.Context, input PrecomputeInput) (PrecomputeResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting precompute workflow", "run", input.RunID, "gradient", input.Gradient)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var res PrecomputeResult
	if err := workflow.ExecuteActivity(ctx, "RunDays", input.RunID).Get(ctx, &res.Days); err != nil {
		return res, err
	}

	for start := 0; start < res.Days; start += framesInFlight {
		end := start + framesInFlight
		if end > res.Days {
			end = res.Days
		}

		futures := make([]workflow.Future, 0, end-start)
		for day := start; day < end; day++ {
			futures = append(futures, workflow.ExecuteActivity(ctx, "ComputeFrame", FrameRequest{
				RunID:    input.RunID,
				Day:      day,
				Gradient: input.Gradient,
				Map:      input.Map,
				Width:    input.Width,
				Height:   input.Height,
			}))
		}

		for i, f := range futures {
			var sum FrameSummary
			if err := f.Get(ctx, &sum); err != nil {
				logger.Warn("frame failed", "day", start+i, "error", err)
				res.Failed = append(res.Failed, start+i)
				continue
			}
			res.Frames++
			res.Infected += sum.Total
		}
	}

	logger.Info("Precompute finished", "frames", res.Frames, "failed", len(res.Failed))
	return res, nil
}

// WorkflowID is stable per run and gradient, so a redelivered ingest event
// does not start a second precompute.
func WorkflowID(runID, gradient string) string {
	return fmt.Sprintf("precompute-%s-%s", runID, catalog.Slug(gradient))
}

// StartPrecompute starts PrecomputeFramesWorkflow for input on taskQueue.
// A workflow already running for the same run and gradient is left alone.
func StartPrecompute(ctx context.Context, c client.Client, taskQueue string, input PrecomputeInput) (string, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       WorkflowID(input.RunID, input.Gradient),
		TaskQueue:                taskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
		WorkflowExecutionTimeout: time.Hour,
	}, PrecomputeFramesWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("start precompute %s: %w", input.RunID, err)
	}
	return run.GetRunID(), nil
}
