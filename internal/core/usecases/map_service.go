package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/epiviz/internal/core/catalog"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/ports"
	"github.com/samirrijal/epiviz/internal/pkg/geospatial"
	"github.com/samirrijal/epiviz/internal/pkg/metrics"
	"github.com/samirrijal/epiviz/internal/pkg/telemetry"
)

// CropQuery asks for a viewport onto a map centred on Focus.
type CropQuery struct {
	Width  float64
	Height float64
	Focus  domain.GeoBox
	// Margin defaults to the service margin when 0.
	Margin float64
	// Strict rejects focus boxes that reach past the map bounds.
	Strict bool
}

// CropView is a crop plus the ground distance the viewport covers.
type CropView struct {
	Map string `json:"map"`
	domain.CropResult
	Margin   float64 `json:"margin"`
	WidthKm  float64 `json:"width_km"`
	HeightKm float64 `json:"height_km"`
}

// MapService exposes the map registry and the crop computation.
type MapService struct {
	maps     *catalog.MapRegistry
	cache    ports.CacheService
	cacheTTL int
	margin   float64
}

// NewMapService creates a new MapService. cache may be nil; cacheTTL is in
// seconds and 0 disables caching.
func NewMapService(maps *catalog.MapRegistry, cache ports.CacheService, cacheTTL int, defaultMargin float64) *MapService {
	if !(defaultMargin > 0) {
		defaultMargin = domain.DefaultMargin
	}
	return &MapService{maps: maps, cache: cache, cacheTTL: cacheTTL, margin: defaultMargin}
}

// List returns every map in registration order.
func (s *MapService) List() []domain.MapDefinition {
	return s.maps.All()
}

// Get returns one map by name or slug.
func (s *MapService) Get(name string) (*domain.MapDefinition, error) {
	m, err := s.maps.Get(name)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Fit returns the size of the map image fitted into a width x height box.
func (s *MapService) Fit(name string, width, height float64) (*domain.Size, error) {
	m, err := s.maps.Get(name)
	if err != nil {
		return nil, err
	}
	size, err := m.FitTo(width, height)
	if err != nil {
		return nil, err
	}
	return &size, nil
}

// Crop computes the viewport that shows q.Focus on the named map.
func (s *MapService) Crop(ctx context.Context, name string, q CropQuery) (*CropView, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCrop)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrMap, name))

	m, err := s.maps.Get(name)
	if err != nil {
		return nil, err
	}
	if q.Margin == 0 {
		q.Margin = s.margin
	}

	cacheKey := fmt.Sprintf("crop:%s:%gx%g:%g:%g:%g:%g:%g:%t",
		catalog.Slug(m.Name), q.Width, q.Height,
		q.Focus.MinLat, q.Focus.MaxLat, q.Focus.MinLon, q.Focus.MaxLon, q.Margin, q.Strict)
	if s.cache != nil && s.cacheTTL > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var view CropView
			if err := json.Unmarshal(data, &view); err == nil {
				metrics.CacheLookup("crop", true)
				span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
				return &view, nil
			}
		}
		metrics.CacheLookup("crop", false)
	}

	view, err := s.crop(m, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(view); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
				slog.WarnContext(ctx, "cache crop", "map", m.Name, "error", err)
			}
		}
	}
	return view, nil
}

func (s *MapService) crop(m domain.MapDefinition, q CropQuery) (*CropView, error) {
	if q.Strict {
		if err := m.CheckBounds(q.Focus); err != nil {
			return nil, err
		}
	}
	res, err := m.ComputeCrop(q.Width, q.Height, q.Focus, q.Margin)
	if err != nil {
		return nil, err
	}
	metrics.CropsComputed.WithLabelValues(catalog.Slug(m.Name)).Inc()

	w, h := geospatial.ExtentKm(res.Box.MinLat, res.Box.MaxLat, res.Box.MinLon, res.Box.MaxLon)
	return &CropView{
		Map:        m.Name,
		CropResult: res,
		Margin:     q.Margin,
		WidthKm:    w,
		HeightKm:   h,
	}, nil
}

// FocusAround returns a focus box reaching radiusKm from a point.
func (s *MapService) FocusAround(lat, lon, radiusKm float64) (domain.GeoBox, error) {
	if !(radiusKm > 0) || math.IsInf(radiusKm, 0) {
		return domain.GeoBox{}, fmt.Errorf("%w: radius must be positive, got %v", domain.ErrInvalidGeometry, radiusKm)
	}
	if !(lat >= -90 && lat <= 90) || !(lon >= -180 && lon <= 180) {
		return domain.GeoBox{}, fmt.Errorf("%w: point (%v, %v) is not a valid coordinate", domain.ErrInvalidGeometry, lat, lon)
	}
	minLat, maxLat, minLon, maxLon := geospatial.BoundingBox(lat, lon, radiusKm)
	return domain.GeoBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}, nil
}

// DefaultMargin is the margin applied when a query leaves it out.
func (s *MapService) DefaultMargin() float64 { return s.margin }
