package ports

import (
	"context"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// RunRepository persists simulation runs and their per-day infection counts.
type RunRepository interface {
	// CreateRun stores a run and returns its generated ID.
	CreateRun(ctx context.Context, run *domain.Run) (string, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]domain.Run, error)
	// DeleteRun removes a run together with its towns and counts.
	DeleteRun(ctx context.Context, id string) error
}

// TownRepository persists the towns tracked by a run.
type TownRepository interface {
	UpsertBatch(ctx context.Context, towns []domain.Town) error
	ListByRun(ctx context.Context, runID string) ([]domain.Town, error)
}

// DayCountRepository persists daily infected counts.
type DayCountRepository interface {
	InsertBatch(ctx context.Context, counts []domain.DayCount) error
	// CountsForDay returns townID -> infected for one day. Towns without
	// infections may be absent.
	CountsForDay(ctx context.Context, runID string, day int) (map[int]int, error)
	// Peaks returns, per town, the day with the most infections.
	Peaks(ctx context.Context, runID string) ([]domain.TownPeak, error)
}
