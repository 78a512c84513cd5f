package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
)

const sampleRunFile = `{
	"name": "Outbreak",
	"description": "two towns",
	"towns": [
		{"id": 1, "name": "Aalst", "size": 100, "lat": 50.94, "lon": 4.04},
		{"id": 2, "name": "Brugge", "size": 200, "lat": 51.21, "lon": 3.22}
	],
	"days": [
		{"1": 1, "2": 0},
		{"1": 5, "2": 2}
	]
}`

func TestDecodeRunFile(t *testing.T) {
	f, err := usecases.DecodeRunFile(strings.NewReader(sampleRunFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name != "Outbreak" || len(f.Towns) != 2 || len(f.Days) != 2 {
		t.Errorf("unexpected file %+v", f)
	}
}

func TestRunFile_Validate(t *testing.T) {
	base := func() *usecases.RunFile {
		return &usecases.RunFile{
			Name:  "x",
			Towns: []usecases.RunFileTown{{ID: 1, Size: 10, Lat: 1, Lon: 1}},
			Days:  []map[string]int{{"1": 3}},
		}
	}
	tests := map[string]func(f *usecases.RunFile){
		"no name":        func(f *usecases.RunFile) { f.Name = " " },
		"no towns":       func(f *usecases.RunFile) { f.Towns = nil },
		"duplicate town": func(f *usecases.RunFile) { f.Towns = append(f.Towns, f.Towns[0]) },
		"negative size":  func(f *usecases.RunFile) { f.Towns[0].Size = -1 },
		"bad latitude":   func(f *usecases.RunFile) { f.Towns[0].Lat = 95 },
		"bad town key":   func(f *usecases.RunFile) { f.Days[0] = map[string]int{"one": 1} },
		"unknown town":   func(f *usecases.RunFile) { f.Days[0] = map[string]int{"7": 1} },
		"negative count": func(f *usecases.RunFile) { f.Days[0]["1"] = -2 },
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("expected base file to be valid, got %v", err)
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := base()
			mutate(f)
			if err := f.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIngestService_Ingest(t *testing.T) {
	var storedTowns []domain.Town
	var storedCounts []domain.DayCount
	runs := &mockRunRepo{createFn: func(ctx context.Context, run *domain.Run) (string, error) {
		if run.Days != 2 || run.Towns != 2 {
			t.Errorf("unexpected run %+v", run)
		}
		return "run-42", nil
	}}
	towns := &mockTownRepo{upsertFn: func(ctx context.Context, ts []domain.Town) error {
		storedTowns = ts
		return nil
	}}
	counts := &mockCountRepo{insertFn: func(ctx context.Context, cs []domain.DayCount) error {
		storedCounts = cs
		return nil
	}}
	pub := &mockPublisher{}

	f, err := usecases.DecodeRunFile(strings.NewReader(sampleRunFile))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	run, err := usecases.NewIngestService(runs, towns, counts, pub).Ingest(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID != "run-42" {
		t.Errorf("expected run-42, got %s", run.ID)
	}
	if len(storedTowns) != 2 || storedTowns[1].RunID != "run-42" || storedTowns[1].Location.Lat != 51.21 {
		t.Errorf("unexpected towns %+v", storedTowns)
	}
	// The zero count of town 2 on day 0 is dropped.
	if len(storedCounts) != 3 {
		t.Errorf("expected 3 counts, got %d", len(storedCounts))
	}
	if len(pub.runs) != 1 || pub.runs[0].ID != "run-42" {
		t.Errorf("expected run-ingested event, got %+v", pub.runs)
	}
}

func TestIngestService_Ingest_StoreError(t *testing.T) {
	boom := errors.New("disk full")
	tests := []struct {
		name   string
		towns  *mockTownRepo
		counts *mockCountRepo
	}{
		{"towns", &mockTownRepo{upsertFn: func(ctx context.Context, ts []domain.Town) error { return boom }}, &mockCountRepo{}},
		{"counts", &mockTownRepo{}, &mockCountRepo{insertFn: func(ctx context.Context, cs []domain.DayCount) error { return boom }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &mockRunRepo{}
			pub := &mockPublisher{}

			f, _ := usecases.DecodeRunFile(strings.NewReader(sampleRunFile))
			_, err := usecases.NewIngestService(runs, tt.towns, tt.counts, pub).Ingest(context.Background(), f)
			if !errors.Is(err, boom) {
				t.Errorf("expected wrapped store error, got %v", err)
			}
			if len(runs.deleted) != 1 || runs.deleted[0] != "run-1" {
				t.Errorf("expected the partial run to be deleted, got %v", runs.deleted)
			}
			if len(pub.runs) != 0 {
				t.Error("expected no event after a failed ingest")
			}
		})
	}
}

func TestIngestService_Ingest_CreateErrorDeletesNothing(t *testing.T) {
	runs := &mockRunRepo{createFn: func(ctx context.Context, run *domain.Run) (string, error) {
		return "", errors.New("connection refused")
	}}
	f, _ := usecases.DecodeRunFile(strings.NewReader(sampleRunFile))
	if _, err := usecases.NewIngestService(runs, &mockTownRepo{}, &mockCountRepo{}, nil).Ingest(context.Background(), f); err == nil {
		t.Fatal("expected error")
	}
	if len(runs.deleted) != 0 {
		t.Errorf("expected no delete, got %v", runs.deleted)
	}
}
