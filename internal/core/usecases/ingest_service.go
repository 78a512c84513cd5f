package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/ports"
	"github.com/samirrijal/epiviz/internal/pkg/metrics"
	"github.com/samirrijal/epiviz/internal/pkg/telemetry"
)

// RunFile is the simulator's visualiser output: the towns of a run and, per
// day, the infected count of every town keyed by town ID.
type RunFile struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Towns       []RunFileTown    `json:"towns"`
	Days        []map[string]int `json:"days"`
}

// RunFileTown is one town entry of a RunFile.
type RunFileTown struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Size int     `json:"size"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// DecodeRunFile reads and validates a run file.
func DecodeRunFile(r io.Reader) (*RunFile, error) {
	var f RunFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode run file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks town IDs are unique, positions are real coordinates and
// every day only references known towns with non-negative counts.
func (f *RunFile) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("run file: name is required")
	}
	if len(f.Towns) == 0 {
		return fmt.Errorf("run file %q: no towns", f.Name)
	}
	known := make(map[int]bool, len(f.Towns))
	for _, t := range f.Towns {
		if known[t.ID] {
			return fmt.Errorf("run file %q: duplicate town id %d", f.Name, t.ID)
		}
		known[t.ID] = true
		if t.Size < 0 {
			return fmt.Errorf("run file %q: town %d has negative size %d", f.Name, t.ID, t.Size)
		}
		if !(t.Lat >= -90 && t.Lat <= 90) || !(t.Lon >= -180 && t.Lon <= 180) {
			return fmt.Errorf("%w: run file %q: town %d at (%v, %v)", domain.ErrInvalidGeometry, f.Name, t.ID, t.Lat, t.Lon)
		}
	}
	for day, counts := range f.Days {
		for key, n := range counts {
			id, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("run file %q: day %d: town key %q is not an id", f.Name, day, key)
			}
			if !known[id] {
				return fmt.Errorf("run file %q: day %d: unknown town %d", f.Name, day, id)
			}
			if n < 0 {
				return fmt.Errorf("run file %q: day %d: town %d has %d infected", f.Name, day, id, n)
			}
		}
	}
	return nil
}

// discardTimeout bounds the cleanup of a partially stored run.
const discardTimeout = 10 * time.Second

// IngestService stores run files.
type IngestService struct {
	runs      ports.RunRepository
	towns     ports.TownRepository
	counts    ports.DayCountRepository
	publisher ports.EventPublisher
}

// NewIngestService creates a new IngestService. publisher may be nil.
func NewIngestService(
	runs ports.RunRepository,
	towns ports.TownRepository,
	counts ports.DayCountRepository,
	publisher ports.EventPublisher,
) *IngestService {
	return &IngestService{runs: runs, towns: towns, counts: counts, publisher: publisher}
}

// Ingest stores a validated run file and announces the new run. Zero counts
// are not stored.
func (s *IngestService) Ingest(ctx context.Context, f *RunFile) (*domain.Run, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanIngestRun)
	defer span.End()

	if err := f.Validate(); err != nil {
		return nil, err
	}

	run := &domain.Run{
		Name:        f.Name,
		Description: f.Description,
		Days:        len(f.Days),
		Towns:       len(f.Towns),
	}
	id, err := s.runs.CreateRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = id
	span.SetAttributes(attribute.String(telemetry.AttrRunID, id))

	towns := make([]domain.Town, len(f.Towns))
	for i, t := range f.Towns {
		towns[i] = domain.Town{
			ID:       t.ID,
			RunID:    id,
			Name:     t.Name,
			Size:     t.Size,
			Location: domain.GeoPoint{Lat: t.Lat, Lon: t.Lon},
		}
	}
	if err := s.towns.UpsertBatch(ctx, towns); err != nil {
		s.discard(ctx, id)
		return nil, fmt.Errorf("store towns: %w", err)
	}

	var counts []domain.DayCount
	for day, byTown := range f.Days {
		for key, n := range byTown {
			if n == 0 {
				continue
			}
			townID, _ := strconv.Atoi(key) // checked by Validate
			counts = append(counts, domain.DayCount{RunID: id, Day: day, TownID: townID, Infected: n})
		}
	}
	if err := s.counts.InsertBatch(ctx, counts); err != nil {
		s.discard(ctx, id)
		return nil, fmt.Errorf("store day counts: %w", err)
	}

	metrics.RunsIngested.Inc()
	metrics.DayCountsIngested.Add(float64(len(counts)))
	slog.InfoContext(ctx, "run ingested", "run", id, "name", run.Name, "towns", run.Towns, "days", run.Days, "counts", len(counts))

	if s.publisher != nil {
		if err := s.publisher.PublishRunIngested(ctx, run); err != nil {
			metrics.EventsPublishErrors.WithLabelValues("run_ingested").Inc()
			slog.WarnContext(ctx, "publish run ingested", "run", id, "error", err)
		}
	}
	return run, nil
}

// discard removes a run whose towns or counts could not be stored, so a
// failed ingest leaves nothing behind. It still runs when ctx is cancelled.
func (s *IngestService) discard(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := s.runs.DeleteRun(ctx, id); err != nil {
		slog.ErrorContext(ctx, "discard partial run", "run", id, "error", err)
	}
}
