package catalog

import (
	"fmt"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// NamedGradient pairs a gradient with its display name.
type NamedGradient struct {
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Gradient domain.Gradient `json:"-"`
}

// GradientRegistry is a read-only set of named gradients.
type GradientRegistry struct {
	reg registry[domain.Gradient]
}

// NewGradientRegistry builds a registry. Names must be unique by slug.
func NewGradientRegistry(entries ...NamedGradient) (*GradientRegistry, error) {
	r := &GradientRegistry{reg: newRegistry[domain.Gradient]("gradient")}
	for _, e := range entries {
		if err := r.reg.add(e.Name, e.Gradient); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Get looks a gradient up by name or slug.
func (r *GradientRegistry) Get(name string) (domain.Gradient, error) {
	return r.reg.get(name)
}

// Lookup is Get returning the registered display name and slug as well.
func (r *GradientRegistry) Lookup(name string) (NamedGradient, error) {
	n, g, err := r.reg.lookup(name)
	if err != nil {
		return NamedGradient{}, err
	}
	return NamedGradient{Name: n, Slug: Slug(n), Gradient: g}, nil
}

// Names lists gradient names in registration order.
func (r *GradientRegistry) Names() []string {
	return r.reg.list()
}

// All lists every gradient in registration order.
func (r *GradientRegistry) All() []NamedGradient {
	out := make([]NamedGradient, 0, len(r.reg.names))
	for _, n := range r.reg.names {
		out = append(out, NamedGradient{Name: n, Slug: Slug(n), Gradient: r.reg.items[Slug(n)]})
	}
	return out
}

// GradientSpec describes a gradient as evenly spaced colours.
type GradientSpec struct {
	Name    string
	Colours []domain.Colour
	Span    float64
}

// Build turns the spec into a named gradient.
func (s GradientSpec) Build() (NamedGradient, error) {
	span := s.Span
	if span == 0 {
		span = 1
	}
	g, err := domain.EvenGradient(s.Colours, span)
	if err != nil {
		return NamedGradient{}, fmt.Errorf("gradient %q: %w", s.Name, err)
	}
	return NamedGradient{Name: s.Name, Slug: Slug(s.Name), Gradient: g}, nil
}

// ParseGradientSpec builds a spec from colour strings in any form
// domain.ParseColour accepts.
func ParseGradientSpec(name string, colours []string, span float64) (GradientSpec, error) {
	spec := GradientSpec{Name: name, Span: span, Colours: make([]domain.Colour, 0, len(colours))}
	for _, c := range colours {
		col, err := domain.ParseColour(c)
		if err != nil {
			return GradientSpec{}, fmt.Errorf("gradient %q: %w", name, err)
		}
		spec.Colours = append(spec.Colours, col)
	}
	return spec, nil
}

func rgb(r, g, b float64) domain.Colour { return domain.NewColour(r, g, b) }

// PresetGradients is the built-in gradient table. All presets span [0,1].
var PresetGradients = []GradientSpec{
	{Name: "Monochrome", Span: 1, Colours: []domain.Colour{
		rgb(0, 0, 0), rgb(255, 255, 255),
	}},
	// black -> red -> yellow -> white
	{Name: "Heat map", Span: 1, Colours: []domain.Colour{
		rgb(0, 0, 0), rgb(255, 0, 0), rgb(255, 255, 0), rgb(255, 255, 255),
	}},
	// cyan -> blue -> black -> red -> yellow -> white
	{Name: "Super heat map", Span: 1, Colours: []domain.Colour{
		rgb(0, 255, 255), rgb(0, 0, 255), rgb(0, 0, 0), rgb(255, 0, 0), rgb(255, 255, 0), rgb(255, 255, 255),
	}},
	// dark blue -> deep purple -> red -> yellow -> white
	{Name: "Ultra heat map", Span: 1, Colours: []domain.Colour{
		rgb(0, 0, 80), rgb(128, 0, 128), rgb(255, 0, 0), rgb(255, 230, 0), rgb(255, 255, 255),
	}},
	// red -> yellow -> green -> cyan -> blue -> purple
	{Name: "Rainbow", Span: 1, Colours: []domain.Colour{
		rgb(255, 0, 0), rgb(255, 255, 0), rgb(0, 255, 0), rgb(0, 255, 255), rgb(0, 0, 255), rgb(255, 0, 255),
	}},
	{Name: "Flu++", Span: 1, Colours: []domain.Colour{
		rgb(60, 0, 40), rgb(255, 0, 128), rgb(210, 210, 60), rgb(0, 255, 128), rgb(255, 255, 255),
	}},
}

// DefaultGradients builds a registry holding the presets followed by extra.
func DefaultGradients(extra ...GradientSpec) (*GradientRegistry, error) {
	specs := append(append([]GradientSpec(nil), PresetGradients...), extra...)
	entries := make([]NamedGradient, 0, len(specs))
	for _, s := range specs {
		ng, err := s.Build()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ng)
	}
	return NewGradientRegistry(entries...)
}

// MustDefaultGradients is DefaultGradients without extras; the preset table is
// known to be valid.
func MustDefaultGradients() *GradientRegistry {
	r, err := DefaultGradients()
	if err != nil {
		panic("preset gradients: " + err.Error())
	}
	return r
}
