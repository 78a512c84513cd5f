package workflows_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/epiviz/internal/core/catalog"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
	"github.com/samirrijal/epiviz/internal/workflows"
)

type fakeRuns struct{ days int }

func (f *fakeRuns) CreateRun(ctx context.Context, run *domain.Run) (string, error) { return "r1", nil }
func (f *fakeRuns) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if id != "r1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Run{ID: "r1", Name: "Outbreak", Days: f.days, Towns: 1}, nil
}
func (f *fakeRuns) ListRuns(ctx context.Context) ([]domain.Run, error) { return nil, nil }
func (f *fakeRuns) DeleteRun(ctx context.Context, id string) error     { return nil }

type fakeTowns struct{}

func (fakeTowns) UpsertBatch(ctx context.Context, towns []domain.Town) error { return nil }
func (fakeTowns) ListByRun(ctx context.Context, runID string) ([]domain.Town, error) {
	return []domain.Town{{ID: 1, RunID: runID, Name: "Leuven", Size: 100, Location: domain.GeoPoint{Lat: 50.88, Lon: 4.7}}}, nil
}

// fakeCounts infects day*10 people, failing on the days listed in broken.
type fakeCounts struct {
	broken map[int]bool
}

func (f *fakeCounts) InsertBatch(ctx context.Context, counts []domain.DayCount) error { return nil }
func (f *fakeCounts) CountsForDay(ctx context.Context, runID string, day int) (map[int]int, error) {
	if f.broken[day] {
		return nil, errors.New("connection reset")
	}
	return map[int]int{1: day * 10}, nil
}
func (f *fakeCounts) Peaks(ctx context.Context, runID string) ([]domain.TownPeak, error) {
	return []domain.TownPeak{{TownID: 1, Day: 9, Infected: 90}}, nil
}

type countingPublisher struct {
	mu     sync.Mutex
	frames int
}

func (p *countingPublisher) PublishFrame(ctx context.Context, frame *domain.HeatFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	return nil
}
func (p *countingPublisher) PublishRunIngested(ctx context.Context, run *domain.Run) error {
	return nil
}

func newActivities(days int, broken map[int]bool, pub *countingPublisher) *workflows.FrameActivities {
	maps, _ := catalog.DefaultMaps()
	return &workflows.FrameActivities{
		Heatmaps: usecases.NewHeatmapService(
			&fakeRuns{days: days}, fakeTowns{}, &fakeCounts{broken: broken},
			catalog.MustDefaultGradients(), maps, nil, pub,
			usecases.HeatmapDefaults{Gradient: "Heat map"},
		),
	}
}

func TestPrecomputeFramesWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	pub := &countingPublisher{}
	env.RegisterActivity(newActivities(10, nil, pub))

	env.ExecuteWorkflow(workflows.PrecomputeFramesWorkflow, workflows.PrecomputeInput{RunID: "r1", Gradient: "Heat map"})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res workflows.PrecomputeResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Days != 10 || res.Frames != 10 || len(res.Failed) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	// 0 + 10 + ... + 90
	if res.Infected != 450 {
		t.Errorf("expected 450 infected in total, got %d", res.Infected)
	}
	if pub.frames != 10 {
		t.Errorf("expected 10 published frames, got %d", pub.frames)
	}
}

func TestPrecomputeFramesWorkflow_FailedDaysReported(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterActivity(newActivities(4, map[int]bool{2: true}, &countingPublisher{}))

	env.ExecuteWorkflow(workflows.PrecomputeFramesWorkflow, workflows.PrecomputeInput{RunID: "r1", Gradient: "Heat map"})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("failed frames must not fail the workflow: %v", err)
	}
	var res workflows.PrecomputeResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Frames != 3 || len(res.Failed) != 1 || res.Failed[0] != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPrecomputeFramesWorkflow_UnknownRun(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterActivity(newActivities(4, nil, &countingPublisher{}))

	env.ExecuteWorkflow(workflows.PrecomputeFramesWorkflow, workflows.PrecomputeInput{RunID: "missing", Gradient: "Heat map"})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Error("expected an error for an unknown run")
	}
}

func TestWorkflowID(t *testing.T) {
	if got := workflows.WorkflowID("r1", "Super heat map"); got != "precompute-r1-super-heat-map" {
		t.Errorf("unexpected workflow id %q", got)
	}
}

func TestFrameActivities_ComputeFrame(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(newActivities(3, nil, &countingPublisher{}))

	val, err := env.ExecuteActivity("ComputeFrame", workflows.FrameRequest{RunID: "r1", Day: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum workflows.FrameSummary
	if err := val.Get(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Day != 2 || sum.Total != 20 || sum.Towns != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}

	if _, err := env.ExecuteActivity("ComputeFrame", workflows.FrameRequest{RunID: "r1", Day: 5}); err == nil {
		t.Error("expected an error for a day past the end of the run")
	}
}
