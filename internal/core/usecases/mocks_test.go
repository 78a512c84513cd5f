package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// --- Mock RunRepository ---

type mockRunRepo struct {
	createFn func(ctx context.Context, run *domain.Run) (string, error)
	getFn    func(ctx context.Context, id string) (*domain.Run, error)
	listFn   func(ctx context.Context) ([]domain.Run, error)
	deleted  []string
}

func (m *mockRunRepo) CreateRun(ctx context.Context, run *domain.Run) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, run)
	}
	return "run-1", nil
}

func (m *mockRunRepo) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunRepo) ListRuns(ctx context.Context) ([]domain.Run, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRunRepo) DeleteRun(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// --- Mock TownRepository ---

type mockTownRepo struct {
	upsertFn func(ctx context.Context, towns []domain.Town) error
	listFn   func(ctx context.Context, runID string) ([]domain.Town, error)
}

func (m *mockTownRepo) UpsertBatch(ctx context.Context, towns []domain.Town) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, towns)
	}
	return nil
}

func (m *mockTownRepo) ListByRun(ctx context.Context, runID string) ([]domain.Town, error) {
	if m.listFn != nil {
		return m.listFn(ctx, runID)
	}
	return nil, nil
}

// --- Mock DayCountRepository ---

type mockCountRepo struct {
	insertFn func(ctx context.Context, counts []domain.DayCount) error
	dayFn    func(ctx context.Context, runID string, day int) (map[int]int, error)
	peaksFn  func(ctx context.Context, runID string) ([]domain.TownPeak, error)
}

func (m *mockCountRepo) InsertBatch(ctx context.Context, counts []domain.DayCount) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, counts)
	}
	return nil
}

func (m *mockCountRepo) CountsForDay(ctx context.Context, runID string, day int) (map[int]int, error) {
	if m.dayFn != nil {
		return m.dayFn(ctx, runID, day)
	}
	return nil, nil
}

func (m *mockCountRepo) Peaks(ctx context.Context, runID string) ([]domain.TownPeak, error) {
	if m.peaksFn != nil {
		return m.peaksFn(ctx, runID)
	}
	return nil, nil
}

// --- Mock CacheService (in-memory) ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	frames []*domain.HeatFrame
	runs   []*domain.Run
	err    error
}

func (p *mockPublisher) PublishFrame(ctx context.Context, frame *domain.HeatFrame) error {
	p.frames = append(p.frames, frame)
	return p.err
}

func (p *mockPublisher) PublishRunIngested(ctx context.Context, run *domain.Run) error {
	p.runs = append(p.runs, run)
	return p.err
}
