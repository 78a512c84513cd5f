package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoBox is a rectangular latitude/longitude region in degrees.
type GeoBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Validate reports ErrInvalidGeometry for non-finite or inverted boxes.
// Degenerate (zero-extent) boxes are valid here; callers that divide by the
// extent check it themselves.
func (b GeoBox) Validate() error {
	for _, v := range [...]float64{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: box %v has a non-finite edge", ErrInvalidGeometry, b)
		}
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("%w: min_lat %v > max_lat %v", ErrInvalidGeometry, b.MinLat, b.MaxLat)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("%w: min_lon %v > max_lon %v", ErrInvalidGeometry, b.MinLon, b.MaxLon)
	}
	return nil
}

// LatSpan is the extent in degrees of latitude.
func (b GeoBox) LatSpan() float64 { return b.MaxLat - b.MinLat }

// LonSpan is the extent in degrees of longitude.
func (b GeoBox) LonSpan() float64 { return b.MaxLon - b.MinLon }

// Contains reports whether other lies entirely within b, edges included.
func (b GeoBox) Contains(other GeoBox) bool {
	return b.MinLat <= other.MinLat &&
		b.MaxLat >= other.MaxLat &&
		b.MinLon <= other.MinLon &&
		b.MaxLon >= other.MaxLon
}

// ContainsPoint reports whether p lies within b, edges included.
func (b GeoBox) ContainsPoint(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Expand grows the box by dLat on the top and bottom and dLon on both sides.
func (b GeoBox) Expand(dLat, dLon float64) GeoBox {
	return GeoBox{
		MinLat: b.MinLat - dLat,
		MaxLat: b.MaxLat + dLat,
		MinLon: b.MinLon - dLon,
		MaxLon: b.MaxLon + dLon,
	}
}

// Center returns the midpoint of the box.
func (b GeoBox) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

func (b GeoBox) String() string {
	return fmt.Sprintf("lat[%g,%g] lon[%g,%g]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

// BoundingBox returns the smallest box holding every point.
func BoundingBox(points []GeoPoint) (GeoBox, error) {
	if len(points) == 0 {
		return GeoBox{}, fmt.Errorf("%w: bounding box of no points", ErrInvalidGeometry)
	}
	box := GeoBox{MinLat: points[0].Lat, MaxLat: points[0].Lat, MinLon: points[0].Lon, MaxLon: points[0].Lon}
	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
	}
	return box, box.Validate()
}
