package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/epiviz/internal/core/catalog"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/ports"
	"github.com/samirrijal/epiviz/internal/pkg/metrics"
	"github.com/samirrijal/epiviz/internal/pkg/telemetry"
)

// minFocusSpan pads a run's bounding box along an axis where every town
// shares the same coordinate, in degrees.
const minFocusSpan = 0.05

// FrameQuery selects one day of a run and how to draw it.
type FrameQuery struct {
	RunID string
	Day   int
	// Gradient defaults to the service gradient when empty.
	Gradient string
	// Scale multiplies the gradient breakpoints. 0 scales the gradient so
	// its last breakpoint sits on the run's peak infected fraction.
	Scale float64
	// Map, when set, projects every town into a Width x Height viewport.
	Map    string
	Width  float64
	Height float64
	Margin float64
	// Focus defaults to the bounding box of the run's towns.
	Focus *domain.GeoBox
}

func (q FrameQuery) cacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame:%s:%d:%s:%g", q.RunID, q.Day, catalog.Slug(q.Gradient), q.Scale)
	if q.Map != "" {
		fmt.Fprintf(&b, ":%s:%gx%g:%g", catalog.Slug(q.Map), q.Width, q.Height, q.Margin)
		if q.Focus != nil {
			fmt.Fprintf(&b, ":%g:%g:%g:%g", q.Focus.MinLat, q.Focus.MaxLat, q.Focus.MinLon, q.Focus.MaxLon)
		}
	}
	return b.String()
}

// TownSummary is a town with the day it peaked.
type TownSummary struct {
	domain.Town
	Peak *domain.TownPeak `json:"peak,omitempty"`
}

// HeatmapDefaults are applied to queries that leave a field out.
type HeatmapDefaults struct {
	Gradient string
	Margin   float64
	// CacheTTL is in seconds; 0 disables frame caching.
	CacheTTL int
}

// HeatmapService colours the towns of stored simulation runs.
type HeatmapService struct {
	runs      ports.RunRepository
	towns     ports.TownRepository
	counts    ports.DayCountRepository
	gradients *catalog.GradientRegistry
	maps      *catalog.MapRegistry
	cache     ports.CacheService
	publisher ports.EventPublisher
	defaults  HeatmapDefaults
}

// NewHeatmapService creates a new HeatmapService. cache and publisher may be nil.
func NewHeatmapService(
	runs ports.RunRepository,
	towns ports.TownRepository,
	counts ports.DayCountRepository,
	gradients *catalog.GradientRegistry,
	maps *catalog.MapRegistry,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	defaults HeatmapDefaults,
) *HeatmapService {
	if !(defaults.Margin > 0) {
		defaults.Margin = domain.DefaultMargin
	}
	return &HeatmapService{
		runs:      runs,
		towns:     towns,
		counts:    counts,
		gradients: gradients,
		maps:      maps,
		cache:     cache,
		publisher: publisher,
		defaults:  defaults,
	}
}

// Runs lists stored runs, newest first.
func (s *HeatmapService) Runs(ctx context.Context) ([]domain.Run, error) {
	return s.runs.ListRuns(ctx)
}

// Run returns one run.
func (s *HeatmapService) Run(ctx context.Context, id string) (*domain.Run, error) {
	return s.runs.GetRun(ctx, id)
}

// Towns returns the towns of a run with the day each one peaked.
func (s *HeatmapService) Towns(ctx context.Context, runID string) ([]TownSummary, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	towns, err := s.towns.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list towns: %w", err)
	}
	peaks, err := s.counts.Peaks(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("peaks: %w", err)
	}
	byTown := make(map[int]domain.TownPeak, len(peaks))
	for _, p := range peaks {
		byTown[p.TownID] = p
	}

	out := make([]TownSummary, len(towns))
	for i, t := range towns {
		out[i] = TownSummary{Town: t}
		if p, ok := byTown[t.ID]; ok {
			p := p
			out[i].Peak = &p
		}
	}
	return out, nil
}

// RunFocus returns the bounding box of a run's towns.
func (s *HeatmapService) RunFocus(ctx context.Context, runID string) (domain.GeoBox, error) {
	if _, err := s.runs.GetRun(ctx, runID); err != nil {
		return domain.GeoBox{}, err
	}
	towns, err := s.towns.ListByRun(ctx, runID)
	if err != nil {
		return domain.GeoBox{}, fmt.Errorf("list towns: %w", err)
	}
	return townsFocus(towns)
}

// Frame colours every town of a run for one day. Computed frames are cached
// and published; failures of either are logged only.
func (s *HeatmapService) Frame(ctx context.Context, q FrameQuery) (*domain.HeatFrame, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFrame)
	defer span.End()

	if q.Gradient == "" {
		q.Gradient = s.defaults.Gradient
	}
	if q.Map != "" && q.Margin == 0 {
		q.Margin = s.defaults.Margin
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrRunID, q.RunID),
		attribute.Int(telemetry.AttrDay, q.Day),
		attribute.String(telemetry.AttrGradient, q.Gradient),
		attribute.String(telemetry.AttrMap, q.Map),
	)

	if math.IsNaN(q.Scale) || math.IsInf(q.Scale, 0) || q.Scale < 0 {
		return nil, fmt.Errorf("%w: scale must be positive, got %v", domain.ErrInvalidGradient, q.Scale)
	}
	ng, err := s.gradients.Lookup(q.Gradient)
	if err != nil {
		return nil, err
	}

	run, err := s.runs.GetRun(ctx, q.RunID)
	if err != nil {
		return nil, err
	}
	if q.Day < 0 || q.Day >= run.Days {
		return nil, fmt.Errorf("day %d of run %s (has %d days): %w", q.Day, run.ID, run.Days, domain.ErrNotFound)
	}

	key := q.cacheKey()
	if frame, ok := s.cachedFrame(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		return frame, nil
	}

	start := time.Now()
	frame, err := s.computeFrame(ctx, q, ng)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.FramesComputed.WithLabelValues(ng.Slug).Inc()
	metrics.FrameDuration.Observe(time.Since(start).Seconds())

	if s.cache != nil && s.defaults.CacheTTL > 0 {
		if data, err := json.Marshal(frame); err == nil {
			if err := s.cache.Set(ctx, key, data, s.defaults.CacheTTL); err != nil {
				slog.WarnContext(ctx, "cache frame", "run", q.RunID, "day", q.Day, "error", err)
			}
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishFrame(ctx, frame); err != nil {
			metrics.EventsPublishErrors.WithLabelValues("frame").Inc()
			slog.WarnContext(ctx, "publish frame", "run", q.RunID, "day", q.Day, "error", err)
		}
	}
	return frame, nil
}

func (s *HeatmapService) cachedFrame(ctx context.Context, key string) (*domain.HeatFrame, bool) {
	if s.cache == nil || s.defaults.CacheTTL <= 0 {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err == nil {
		var frame domain.HeatFrame
		if err := json.Unmarshal(data, &frame); err == nil {
			metrics.CacheLookup("frame", true)
			return &frame, true
		}
	}
	metrics.CacheLookup("frame", false)
	return nil, false
}

func (s *HeatmapService) computeFrame(ctx context.Context, q FrameQuery, ng catalog.NamedGradient) (*domain.HeatFrame, error) {
	towns, err := s.towns.ListByRun(ctx, q.RunID)
	if err != nil {
		return nil, fmt.Errorf("list towns: %w", err)
	}
	counts, err := s.counts.CountsForDay(ctx, q.RunID, q.Day)
	if err != nil {
		return nil, fmt.Errorf("counts for day %d: %w", q.Day, err)
	}

	scale := q.Scale
	if scale == 0 {
		if scale, err = s.autoScale(ctx, q.RunID, towns, ng.Gradient); err != nil {
			return nil, err
		}
	}
	g, err := scaleGradient(ng.Gradient, scale)
	if err != nil {
		return nil, err
	}

	frame := &domain.HeatFrame{
		RunID:    q.RunID,
		Day:      q.Day,
		Gradient: ng.Name,
		Scale:    scale,
		Towns:    make([]domain.TownColour, len(towns)),
	}
	for i, t := range towns {
		infected := counts[t.ID]
		f := fraction(infected, t.Size)
		c := g.Resolve(f)
		frame.Towns[i] = domain.TownColour{
			TownID:   t.ID,
			Name:     t.Name,
			Infected: infected,
			Size:     t.Size,
			Fraction: f,
			Colour:   c,
			Hex:      c.Hex(),
			Location: t.Location,
		}
		frame.Total += infected
	}

	if q.Map == "" {
		return frame, nil
	}

	m, err := s.maps.Get(q.Map)
	if err != nil {
		return nil, err
	}
	focus := q.Focus
	if focus == nil {
		box, err := townsFocus(towns)
		if err != nil {
			return nil, err
		}
		focus = &box
	}
	crop, err := m.ComputeCrop(q.Width, q.Height, *focus, q.Margin)
	if err != nil {
		return nil, err
	}
	metrics.CropsComputed.WithLabelValues(catalog.Slug(m.Name)).Inc()

	frame.Map = m.Name
	frame.Crop = &crop
	for i := range frame.Towns {
		tc := &frame.Towns[i]
		x, y := crop.Project(tc.Location)
		tc.X, tc.Y = &x, &y
		tc.Visible = crop.Visible(tc.Location)
	}
	return frame, nil
}

// autoScale stretches g so its last breakpoint sits on the highest infected
// fraction any town reaches during the run.
func (s *HeatmapService) autoScale(ctx context.Context, runID string, towns []domain.Town, g domain.Gradient) (float64, error) {
	peaks, err := s.counts.Peaks(ctx, runID)
	if err != nil {
		return 0, fmt.Errorf("peaks: %w", err)
	}
	sizes := make(map[int]int, len(towns))
	for _, t := range towns {
		sizes[t.ID] = t.Size
	}
	var peak float64
	for _, p := range peaks {
		if f := fraction(p.Infected, sizes[p.TownID]); f > peak {
			peak = f
		}
	}
	if peak == 0 || !(g.Max() > 0) {
		return 1, nil
	}
	return peak / g.Max(), nil
}

func fraction(infected, size int) float64 {
	if size <= 0 {
		return 0
	}
	return float64(infected) / float64(size)
}

func townsFocus(towns []domain.Town) (domain.GeoBox, error) {
	points := make([]domain.GeoPoint, len(towns))
	for i, t := range towns {
		points[i] = t.Location
	}
	box, err := domain.BoundingBox(points)
	if err != nil {
		return domain.GeoBox{}, err
	}
	var padLat, padLon float64
	if box.LatSpan() == 0 {
		padLat = minFocusSpan / 2
	}
	if box.LonSpan() == 0 {
		padLon = minFocusSpan / 2
	}
	return box.Expand(padLat, padLon), nil
}
