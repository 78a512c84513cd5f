package domain

import (
	"fmt"
	"math"
)

// DefaultMargin leaves 20% of context around a focus box.
const DefaultMargin = 1.2

// MapDefinition describes an equirectangular map image: its aspect ratio and
// the geographic box it covers exactly.
type MapDefinition struct {
	Name       string  `json:"name"`
	ImageRef   string  `json:"image_ref"`
	ImageRatio float64 `json:"image_ratio"` // width / height of the source image
	Bounds     GeoBox  `json:"bounds"`
	Zoomable   bool    `json:"zoomable"`
}

// Size is a width and height in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CropResult tells a caller how to scale and position the full map image so
// the viewport shows Box.
type CropResult struct {
	// Width and Height are the scaled size of the whole map image.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Box is the region visible in the viewport; it encloses the focus box.
	Box GeoBox `json:"box"`
	// Left and Top locate the viewport's top-left corner on the scaled image.
	Left float64 `json:"left"`
	Top  float64 `json:"top"`

	PxPerLat float64 `json:"px_per_lat"`
	PxPerLon float64 `json:"px_per_lon"`
	// Contained is false when the focus box reaches past the map bounds.
	Contained bool `json:"contained"`
}

// NewMapDefinition validates and builds a map definition.
func NewMapDefinition(name, imageRef string, imageRatio float64, bounds GeoBox, zoomable bool) (MapDefinition, error) {
	m := MapDefinition{
		Name:       name,
		ImageRef:   imageRef,
		ImageRatio: imageRatio,
		Bounds:     bounds,
		Zoomable:   zoomable,
	}
	if err := m.Validate(); err != nil {
		return MapDefinition{}, err
	}
	return m, nil
}

// Validate checks the image ratio and that the bounds have a positive extent.
func (m MapDefinition) Validate() error {
	if !(m.ImageRatio > 0) || math.IsInf(m.ImageRatio, 0) {
		return fmt.Errorf("%w: map %q image ratio must be positive, got %v", ErrInvalidGeometry, m.Name, m.ImageRatio)
	}
	if err := m.Bounds.Validate(); err != nil {
		return fmt.Errorf("map %q bounds: %w", m.Name, err)
	}
	if m.Bounds.LatSpan() == 0 || m.Bounds.LonSpan() == 0 {
		return fmt.Errorf("%w: map %q bounds %v have zero extent", ErrInvalidGeometry, m.Name, m.Bounds)
	}
	return nil
}

// ContainsBox reports whether the map bounds enclose box on all four edges.
func (m MapDefinition) ContainsBox(box GeoBox) bool {
	return m.Bounds.Contains(box)
}

// CheckBounds returns ErrOutOfBounds when focus is not inside the map.
func (m MapDefinition) CheckBounds(focus GeoBox) error {
	if !m.ContainsBox(focus) {
		return fmt.Errorf("%w: %v not inside %q %v", ErrOutOfBounds, focus, m.Name, m.Bounds)
	}
	return nil
}

// FitTo returns the largest size with the image's aspect ratio that fits in
// a width x height viewport.
func (m MapDefinition) FitTo(width, height float64) (Size, error) {
	if err := validateViewport(width, height); err != nil {
		return Size{}, err
	}
	if err := m.Validate(); err != nil {
		return Size{}, err
	}
	viewport := width / height
	switch {
	case m.ImageRatio > viewport:
		return Size{Width: width, Height: width / m.ImageRatio}, nil
	case m.ImageRatio < viewport:
		return Size{Width: height * m.ImageRatio, Height: height}, nil
	}
	return Size{Width: width, Height: height}, nil
}

// ComputeCrop finds the scale and offset that centre focus in a width x
// height viewport, with margin times the focus extent visible along the
// binding axis. The image is never distorted: the other axis shows extra
// context instead.
func (m MapDefinition) ComputeCrop(width, height float64, focus GeoBox, margin float64) (CropResult, error) {
	if err := validateViewport(width, height); err != nil {
		return CropResult{}, err
	}
	if !(margin > 0) || math.IsInf(margin, 0) {
		return CropResult{}, fmt.Errorf("%w: margin must be positive, got %v", ErrInvalidGeometry, margin)
	}
	if err := m.Validate(); err != nil {
		return CropResult{}, err
	}
	if err := focus.Validate(); err != nil {
		return CropResult{}, fmt.Errorf("focus box: %w", err)
	}

	fullLat := m.Bounds.LatSpan()
	fullLon := m.Bounds.LonSpan()
	dLat := focus.LatSpan()
	dLon := focus.LonSpan()
	if dLat <= 0 || dLon <= 0 {
		return CropResult{}, fmt.Errorf("%w: focus box %v has zero extent", ErrInvalidGeometry, focus)
	}

	// Share of the full map the margined focus box takes along each axis.
	viewLat := dLat * margin / fullLat
	viewLon := dLon * margin / fullLon
	// Aspect ratio of the focus box drawn at the map's native scale.
	viewBoxRatio := fullLat / fullLon * m.ImageRatio * dLon / dLat

	var out CropResult
	if viewBoxRatio > width/height {
		out.Width = width / viewLon
		out.Height = out.Width / m.ImageRatio
	} else {
		out.Height = height / viewLat
		out.Width = out.Height * m.ImageRatio
	}

	out.PxPerLat = out.Height / fullLat
	out.PxPerLon = out.Width / fullLon

	marginLon := (width/out.PxPerLon - dLon) / 2
	marginLat := (height/out.PxPerLat - dLat) / 2
	out.Box = focus.Expand(marginLat, marginLon)

	// Pixel rows grow downward while latitude grows upward.
	out.Left = (out.Box.MinLon - m.Bounds.MinLon) * out.PxPerLon
	out.Top = (m.Bounds.MaxLat - out.Box.MaxLat) * out.PxPerLat
	out.Contained = m.ContainsBox(focus)
	return out, nil
}

// Project maps p to viewport pixel coordinates.
func (c CropResult) Project(p GeoPoint) (x, y float64) {
	return (p.Lon - c.Box.MinLon) * c.PxPerLon, (c.Box.MaxLat - p.Lat) * c.PxPerLat
}

// Visible reports whether p falls inside the viewport.
func (c CropResult) Visible(p GeoPoint) bool {
	return c.Box.ContainsPoint(p)
}

func validateViewport(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: viewport must be positive, got %vx%v", ErrInvalidGeometry, width, height)
	}
	return nil
}
