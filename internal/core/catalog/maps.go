package catalog

import (
	"github.com/samirrijal/epiviz/internal/core/domain"
)

// MapRegistry is a read-only set of map definitions keyed by name.
type MapRegistry struct {
	reg registry[domain.MapDefinition]
}

// NewMapRegistry validates every definition and builds a registry.
func NewMapRegistry(maps ...domain.MapDefinition) (*MapRegistry, error) {
	r := &MapRegistry{reg: newRegistry[domain.MapDefinition]("map")}
	for _, m := range maps {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if err := r.reg.add(m.Name, m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Get looks a map up by name or slug.
func (r *MapRegistry) Get(name string) (domain.MapDefinition, error) {
	return r.reg.get(name)
}

// Names lists map names in registration order.
func (r *MapRegistry) Names() []string {
	return r.reg.list()
}

// All lists every map in registration order.
func (r *MapRegistry) All() []domain.MapDefinition {
	out := make([]domain.MapDefinition, 0, len(r.reg.names))
	for _, n := range r.reg.names {
		out = append(out, r.reg.items[Slug(n)])
	}
	return out
}

// PresetMaps is the built-in map table. Images must use an equirectangular
// projection; the bounds hold exactly the area shown in the image.
var PresetMaps = []domain.MapDefinition{
	{
		Name:       "Belgium",
		ImageRef:   "resource/belgium.svg",
		ImageRatio: ratio(1135.92, 987.997),
		Bounds:     domain.GeoBox{MinLat: 49.2, MaxLat: 51.77, MinLon: 2.19, MaxLon: 6.87},
	},
	{
		// image credit: Wikipedia
		Name:       "Earth",
		ImageRef:   "https://upload.wikimedia.org/wikipedia/commons/8/83/Equirectangular_projection_SW.jpg",
		ImageRatio: ratio(2058, 1036),
		Bounds:     domain.GeoBox{MinLat: -92, MaxLat: 92, MinLon: -181, MaxLon: 181},
	},
}

// ratio divides in float64 rather than as an exact constant expression.
func ratio(width, height float64) float64 { return width / height }

// DefaultMaps builds a registry holding the presets followed by extra.
func DefaultMaps(extra ...domain.MapDefinition) (*MapRegistry, error) {
	all := append(append([]domain.MapDefinition(nil), PresetMaps...), extra...)
	return NewMapRegistry(all...)
}
