package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/epiviz/internal/core/catalog"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
)

// testMaps holds a 2:1 map whose bounds make the arithmetic easy to follow.
func testMaps(t *testing.T) *catalog.MapRegistry {
	t.Helper()
	reg, err := catalog.NewMapRegistry(domain.MapDefinition{
		Name:       "Grid",
		ImageRatio: 2,
		Bounds:     domain.GeoBox{MinLat: 0, MaxLat: 8, MinLon: 0, MaxLon: 16},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestMapService_ListAndGet(t *testing.T) {
	reg, err := catalog.DefaultMaps()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc := usecases.NewMapService(reg, nil, 0, 0)

	if got := len(svc.List()); got != 2 {
		t.Fatalf("expected 2 maps, got %d", got)
	}
	m, err := svc.Get("belgium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "Belgium" {
		t.Errorf("expected Belgium, got %s", m.Name)
	}
	if svc.DefaultMargin() != domain.DefaultMargin {
		t.Errorf("expected default margin %v, got %v", domain.DefaultMargin, svc.DefaultMargin())
	}
}

func TestMapService_Fit(t *testing.T) {
	svc := usecases.NewMapService(testMaps(t), nil, 0, 0)

	size, err := svc.Fit("Grid", 400, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size.Width != 400 || size.Height != 200 {
		t.Errorf("expected 400x200, got %vx%v", size.Width, size.Height)
	}

	if _, err := svc.Fit("Mars", 1, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMapService_Crop(t *testing.T) {
	cache := newMemCache()
	svc := usecases.NewMapService(testMaps(t), cache, 60, 1)

	q := usecases.CropQuery{
		Width:  200,
		Height: 100,
		Focus:  domain.GeoBox{MinLat: 3, MaxLat: 5, MinLon: 6, MaxLon: 10},
	}
	view, err := svc.Crop(context.Background(), "grid", q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The focus box is a quarter of the map on both axes, margin 1.
	if view.Width != 800 || view.Height != 400 {
		t.Errorf("expected 800x400, got %vx%v", view.Width, view.Height)
	}
	if view.Left != 300 || view.Top != 150 {
		t.Errorf("expected offset (300,150), got (%v,%v)", view.Left, view.Top)
	}
	if view.Map != "Grid" || view.Margin != 1 || !view.Contained {
		t.Errorf("unexpected view %+v", view)
	}
	if view.WidthKm <= 0 || view.HeightKm <= 0 {
		t.Errorf("expected a positive extent, got %vx%v km", view.WidthKm, view.HeightKm)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}

	again, err := svc.Crop(context.Background(), "grid", q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Width != view.Width || again.Left != view.Left || cache.sets != 1 {
		t.Errorf("expected cached result, got %+v (sets=%d)", again, cache.sets)
	}
}

func TestMapService_Crop_Strict(t *testing.T) {
	svc := usecases.NewMapService(testMaps(t), nil, 0, 0)
	outside := domain.GeoBox{MinLat: 8, MaxLat: 12, MinLon: 1, MaxLon: 2}

	view, err := svc.Crop(context.Background(), "Grid", usecases.CropQuery{Width: 100, Height: 100, Focus: outside})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Contained {
		t.Error("expected Contained=false")
	}

	_, err = svc.Crop(context.Background(), "Grid", usecases.CropQuery{Width: 100, Height: 100, Focus: outside, Strict: true})
	if !errors.Is(err, domain.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestMapService_Crop_InvalidGeometry(t *testing.T) {
	svc := usecases.NewMapService(testMaps(t), nil, 0, 0)
	focus := domain.GeoBox{MinLat: 4, MaxLat: 6, MinLon: 8, MaxLon: 12}

	for name, q := range map[string]usecases.CropQuery{
		"zero width":      {Width: 0, Height: 100, Focus: focus},
		"negative margin": {Width: 100, Height: 100, Focus: focus, Margin: -1},
		"flat focus":      {Width: 100, Height: 100, Focus: domain.GeoBox{MinLat: 5, MaxLat: 5, MinLon: 8, MaxLon: 12}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Crop(context.Background(), "Grid", q); !errors.Is(err, domain.ErrInvalidGeometry) {
				t.Errorf("expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestMapService_FocusAround(t *testing.T) {
	svc := usecases.NewMapService(testMaps(t), nil, 0, 0)

	box, err := svc.FocusAround(0, 10, 111.32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(box.MinLat+1) > 1e-9 || math.Abs(box.MaxLon-11) > 1e-9 {
		t.Errorf("unexpected box %v", box)
	}

	if _, err := svc.FocusAround(0, 0, 0); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry for zero radius, got %v", err)
	}
	if _, err := svc.FocusAround(91, 0, 10); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry for bad latitude, got %v", err)
	}
}
