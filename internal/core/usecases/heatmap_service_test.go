package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/epiviz/internal/core/catalog"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
)

type heatmapFixture struct {
	runs      *mockRunRepo
	towns     *mockTownRepo
	counts    *mockCountRepo
	cache     *memCache
	publisher *mockPublisher
	dayCalls  int
}

func newHeatmapFixture() *heatmapFixture {
	f := &heatmapFixture{cache: newMemCache(), publisher: &mockPublisher{}}
	f.runs = &mockRunRepo{
		getFn: func(ctx context.Context, id string) (*domain.Run, error) {
			if id != "r1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Run{ID: "r1", Name: "Outbreak", Days: 3, Towns: 2}, nil
		},
		listFn: func(ctx context.Context) ([]domain.Run, error) {
			return []domain.Run{{ID: "r1", Name: "Outbreak", Days: 3, Towns: 2}}, nil
		},
	}
	f.towns = &mockTownRepo{
		listFn: func(ctx context.Context, runID string) ([]domain.Town, error) {
			return []domain.Town{
				{ID: 1, RunID: runID, Name: "Aalst", Size: 100, Location: domain.GeoPoint{Lat: 3, Lon: 6}},
				{ID: 2, RunID: runID, Name: "Brugge", Size: 200, Location: domain.GeoPoint{Lat: 5, Lon: 10}},
			}, nil
		},
	}
	f.counts = &mockCountRepo{
		dayFn: func(ctx context.Context, runID string, day int) (map[int]int, error) {
			f.dayCalls++
			return map[int]int{1: 50, 2: 50}, nil
		},
		peaksFn: func(ctx context.Context, runID string) ([]domain.TownPeak, error) {
			return []domain.TownPeak{
				{TownID: 1, Day: 1, Infected: 50},
				{TownID: 2, Day: 2, Infected: 100},
			}, nil
		},
	}
	return f
}

func (f *heatmapFixture) service(t *testing.T) *usecases.HeatmapService {
	t.Helper()
	return usecases.NewHeatmapService(
		f.runs, f.towns, f.counts,
		catalog.MustDefaultGradients(), testMaps(t),
		f.cache, f.publisher,
		usecases.HeatmapDefaults{Gradient: "Monochrome", Margin: 1, CacheTTL: 60},
	)
}

func TestHeatmapService_Frame_AutoScale(t *testing.T) {
	f := newHeatmapFixture()
	svc := f.service(t)

	frame, err := svc.Frame(context.Background(), usecases.FrameQuery{RunID: "r1", Day: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both towns peak at half their population, so the gradient is halved.
	if frame.Scale != 0.5 {
		t.Errorf("expected scale 0.5, got %v", frame.Scale)
	}
	if frame.Gradient != "Monochrome" || frame.Total != 100 {
		t.Errorf("unexpected frame header %+v", frame)
	}
	if got := frame.Towns[0]; got.Fraction != 0.5 || got.Hex != "#ffffff" {
		t.Errorf("town 1: expected 0.5 -> #ffffff, got %v -> %s", got.Fraction, got.Hex)
	}
	if got := frame.Towns[1]; got.Fraction != 0.25 || got.Hex != "#808080" {
		t.Errorf("town 2: expected 0.25 -> #808080, got %v -> %s", got.Fraction, got.Hex)
	}
	if frame.Crop != nil {
		t.Error("expected no crop without a map")
	}
	if len(f.publisher.frames) != 1 {
		t.Errorf("expected 1 published frame, got %d", len(f.publisher.frames))
	}
}

func TestHeatmapService_Frame_ExplicitScale(t *testing.T) {
	svc := newHeatmapFixture().service(t)

	frame, err := svc.Frame(context.Background(), usecases.FrameQuery{RunID: "r1", Day: 1, Gradient: "monochrome", Scale: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Scale != 2 {
		t.Errorf("expected scale 2, got %v", frame.Scale)
	}
	if got := frame.Towns[0].Hex; got != "#404040" {
		t.Errorf("expected #404040, got %s", got)
	}
}

func TestHeatmapService_Frame_Cached(t *testing.T) {
	f := newHeatmapFixture()
	svc := f.service(t)
	q := usecases.FrameQuery{RunID: "r1", Day: 2}

	if _, err := svc.Frame(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frame, err := svc.Frame(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dayCalls != 1 {
		t.Errorf("expected counts loaded once, got %d", f.dayCalls)
	}
	if len(f.publisher.frames) != 1 {
		t.Errorf("expected cached frames not to be republished, got %d", len(f.publisher.frames))
	}
	if frame.Towns[0].Colour.String() != "rgb(255,255,255)" {
		t.Errorf("expected colour to survive the cache, got %s", frame.Towns[0].Colour)
	}
}

func TestHeatmapService_Frame_WithMap(t *testing.T) {
	svc := newHeatmapFixture().service(t)

	frame, err := svc.Frame(context.Background(), usecases.FrameQuery{
		RunID: "r1", Day: 0, Map: "Grid", Width: 200, Height: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Crop == nil || frame.Map != "Grid" {
		t.Fatalf("expected a crop on Grid, got %+v", frame)
	}
	want := domain.GeoBox{MinLat: 3, MaxLat: 5, MinLon: 6, MaxLon: 10}
	if frame.Crop.Box != want {
		t.Errorf("expected box %v, got %v", want, frame.Crop.Box)
	}
	a, b := frame.Towns[0], frame.Towns[1]
	if a.X == nil || a.Y == nil || b.X == nil || b.Y == nil {
		t.Fatalf("expected projected positions, got %+v %+v", a, b)
	}
	if *a.X != 0 || *a.Y != 100 || !a.Visible {
		t.Errorf("town 1: expected (0,100) visible, got (%v,%v) %v", *a.X, *a.Y, a.Visible)
	}
	if *b.X != 200 || *b.Y != 0 || !b.Visible {
		t.Errorf("town 2: expected (200,0) visible, got (%v,%v) %v", *b.X, *b.Y, b.Visible)
	}
}

func TestHeatmapService_Frame_Errors(t *testing.T) {
	svc := newHeatmapFixture().service(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    usecases.FrameQuery
		want error
	}{
		{"unknown run", usecases.FrameQuery{RunID: "nope"}, domain.ErrNotFound},
		{"day past end", usecases.FrameQuery{RunID: "r1", Day: 3}, domain.ErrNotFound},
		{"negative day", usecases.FrameQuery{RunID: "r1", Day: -1}, domain.ErrNotFound},
		{"unknown gradient", usecases.FrameQuery{RunID: "r1", Gradient: "sepia"}, domain.ErrNotFound},
		{"negative scale", usecases.FrameQuery{RunID: "r1", Scale: -1}, domain.ErrInvalidGradient},
		{"unknown map", usecases.FrameQuery{RunID: "r1", Map: "Mars", Width: 10, Height: 10}, domain.ErrNotFound},
		{"bad viewport", usecases.FrameQuery{RunID: "r1", Map: "Grid"}, domain.ErrInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Frame(ctx, tt.q); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHeatmapService_Frame_PublishFailureIgnored(t *testing.T) {
	f := newHeatmapFixture()
	f.publisher.err = errors.New("nats down")

	if _, err := f.service(t).Frame(context.Background(), usecases.FrameQuery{RunID: "r1", Day: 0}); err != nil {
		t.Fatalf("expected publish failure to be ignored, got %v", err)
	}
}

func TestHeatmapService_Towns(t *testing.T) {
	svc := newHeatmapFixture().service(t)

	towns, err := svc.Towns(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(towns) != 2 {
		t.Fatalf("expected 2 towns, got %d", len(towns))
	}
	if towns[1].Peak == nil || towns[1].Peak.Day != 2 || towns[1].Peak.Infected != 100 {
		t.Errorf("unexpected peak %+v", towns[1].Peak)
	}

	if _, err := svc.Towns(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHeatmapService_RunFocus_SingleTown(t *testing.T) {
	f := newHeatmapFixture()
	f.towns.listFn = func(ctx context.Context, runID string) ([]domain.Town, error) {
		return []domain.Town{{ID: 1, Size: 10, Location: domain.GeoPoint{Lat: 50, Lon: 4}}}, nil
	}

	box, err := f.service(t).RunFocus(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(box.LatSpan() > 0) || !(box.LonSpan() > 0) {
		t.Errorf("expected a padded box, got %v", box)
	}
	if !box.ContainsPoint(domain.GeoPoint{Lat: 50, Lon: 4}) {
		t.Errorf("expected box %v to contain the town", box)
	}
}

func TestHeatmapService_Runs(t *testing.T) {
	svc := newHeatmapFixture().service(t)

	runs, err := svc.Runs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r1" {
		t.Errorf("unexpected runs %+v", runs)
	}
}
