//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/epiviz/internal/adapters/http"
	"github.com/samirrijal/epiviz/internal/adapters/postgres"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
	"github.com/samirrijal/epiviz/internal/pkg/config"
)

// setupTestDB connects to the database named by EPIVIZ_DATABASE_* settings.
// The schema from migrations/ must already be applied.
func setupTestDB(t *testing.T) (*postgres.DB, *config.Config) {
	t.Helper()
	cfg, err := config.Load("epiviz-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	t.Cleanup(db.Close)
	return db, cfg
}

func setupIntegrationApp(t *testing.T, db *postgres.DB, cfg *config.Config) (*fiber.App, *usecases.IngestService) {
	t.Helper()
	gradients, err := cfg.GradientRegistry()
	if err != nil {
		t.Fatalf("gradients: %v", err)
	}
	maps, err := cfg.MapRegistry()
	if err != nil {
		t.Fatalf("maps: %v", err)
	}

	runs := postgres.NewRunRepo(db)
	towns := postgres.NewTownRepo(db)
	counts := postgres.NewDayCountRepo(db)

	deps := &handler.Dependencies{
		Gradients: usecases.NewGradientService(gradients),
		Maps:      usecases.NewMapService(maps, nil, 0, cfg.Render.DefaultMargin),
		Heatmaps: usecases.NewHeatmapService(runs, towns, counts, gradients, maps, nil, nil,
			usecases.HeatmapDefaults{Gradient: cfg.Render.DefaultGradient, Margin: cfg.Render.DefaultMargin}),
		DB: db,
	}
	return setupApp(deps), usecases.NewIngestService(runs, towns, counts, nil)
}

func TestIntegration_IngestThenFrame(t *testing.T) {
	db, cfg := setupTestDB(t)
	app, ingest := setupIntegrationApp(t, db, cfg)

	run, err := ingest.Ingest(context.Background(), &usecases.RunFile{
		Name: fmt.Sprintf("integration-%d", time.Now().UnixNano()),
		Towns: []usecases.RunFileTown{
			{ID: 1, Name: "Antwerpen", Size: 1000, Lat: 51.22, Lon: 4.40},
			{ID: 2, Name: "Gent", Size: 500, Lat: 51.05, Lon: 3.72},
		},
		Days: []map[string]int{
			{"1": 10},
			{"1": 100, "2": 50},
			{"1": 40, "2": 250},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if run.Days != 3 || run.Towns != 2 {
		t.Fatalf("unexpected run %+v", run)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/runs/"+run.ID, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("get run: expected 200, got %d", resp.StatusCode)
	}

	url := fmt.Sprintf("/v1/runs/%s/days/2/frame?gradient=monochrome&map=belgium&width=400&height=300", run.ID)
	resp, err = app.Test(httptest.NewRequest("GET", url, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("frame: expected 200, got %d", resp.StatusCode)
	}
	var frame domain.HeatFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		t.Fatal(err)
	}
	if frame.Total != 290 || len(frame.Towns) != 2 {
		t.Errorf("unexpected frame total=%d towns=%d", frame.Total, len(frame.Towns))
	}
	// Gent peaks on this day at half its population, which sets the scale.
	if frame.Scale != 0.5 {
		t.Errorf("expected scale 0.5, got %v", frame.Scale)
	}
	for _, tc := range frame.Towns {
		if tc.Name == "Gent" && tc.Hex != "#ffffff" {
			t.Errorf("expected Gent at the top of the gradient, got %s", tc.Hex)
		}
	}
}

func TestIntegration_ReadyWithDatabase(t *testing.T) {
	db, cfg := setupTestDB(t)
	app, _ := setupIntegrationApp(t, db, cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestIntegration_DeleteRunCascades(t *testing.T) {
	db, cfg := setupTestDB(t)
	_, ingest := setupIntegrationApp(t, db, cfg)
	ctx := context.Background()

	run, err := ingest.Ingest(ctx, &usecases.RunFile{
		Name:  fmt.Sprintf("integration-delete-%d", time.Now().UnixNano()),
		Towns: []usecases.RunFileTown{{ID: 1, Name: "Mechelen", Size: 300, Lat: 51.03, Lon: 4.48}},
		Days:  []map[string]int{{"1": 7}},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	runs := postgres.NewRunRepo(db)
	if err := runs.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := runs.GetRun(ctx, run.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected run to be gone, got %v", err)
	}
	towns, err := postgres.NewTownRepo(db).ListByRun(ctx, run.ID)
	if err != nil || len(towns) != 0 {
		t.Errorf("expected towns to cascade, got %v %v", towns, err)
	}
	counts, err := postgres.NewDayCountRepo(db).CountsForDay(ctx, run.ID, 0)
	if err != nil || len(counts) != 0 {
		t.Errorf("expected counts to cascade, got %v %v", counts, err)
	}
	if err := runs.DeleteRun(ctx, run.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
