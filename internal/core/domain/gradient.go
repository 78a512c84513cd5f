package domain

import (
	"fmt"
	"math"
	"sort"
)

// Breakpoint anchors a colour at a value along a gradient.
type Breakpoint struct {
	Value  float64 `json:"value"`
	Colour Colour  `json:"colour"`
}

// Gradient maps scalars to colours by piecewise-linear interpolation between
// breakpoints. A Gradient is immutable; the zero value is not usable, build
// one with NewGradient or EvenGradient.
type Gradient struct {
	stops []Breakpoint
}

// NewGradient validates and copies the given breakpoints. At least two are
// required and values must be finite and non-decreasing.
func NewGradient(stops ...Breakpoint) (Gradient, error) {
	if len(stops) < 2 {
		return Gradient{}, fmt.Errorf("%w: need at least 2 breakpoints, got %d", ErrInvalidGradient, len(stops))
	}
	for i, s := range stops {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return Gradient{}, fmt.Errorf("%w: breakpoint %d has non-finite value %v", ErrInvalidGradient, i, s.Value)
		}
		if i > 0 && s.Value < stops[i-1].Value {
			return Gradient{}, fmt.Errorf("%w: breakpoint %d value %v is below previous %v",
				ErrInvalidGradient, i, s.Value, stops[i-1].Value)
		}
	}
	owned := make([]Breakpoint, len(stops))
	copy(owned, stops)
	return Gradient{stops: owned}, nil
}

// EvenGradient spreads colours evenly over [0, span]: breakpoint i sits at
// span*i/(n-1).
func EvenGradient(colours []Colour, span float64) (Gradient, error) {
	n := len(colours)
	if n < 2 {
		return Gradient{}, fmt.Errorf("%w: need at least 2 colours, got %d", ErrInvalidGradient, n)
	}
	stops := make([]Breakpoint, n)
	for i, c := range colours {
		stops[i] = Breakpoint{Value: span * float64(i) / float64(n-1), Colour: c}
	}
	return NewGradient(stops...)
}

// Resolve returns the colour at value. Values outside the breakpoint range
// clamp to the first or last colour; NaN resolves to the first colour.
func (g Gradient) Resolve(value float64) Colour {
	first, last := g.stops[0], g.stops[len(g.stops)-1]
	if math.IsNaN(value) || value <= first.Value {
		return first.Colour
	}
	if value >= last.Value {
		return last.Colour
	}

	// first.Value < value < last.Value, so 0 < i < len(stops).
	i := sort.Search(len(g.stops), func(i int) bool { return g.stops[i].Value >= value })
	upper := g.stops[i]
	if value == upper.Value {
		return upper.Colour
	}
	lower := g.stops[i-1]
	p := (upper.Value - value) / (upper.Value - lower.Value)
	return lower.Colour.Mix(upper.Colour, p)
}

// Scale returns a new gradient with every breakpoint value multiplied by
// factor. factor must be positive and finite.
func (g Gradient) Scale(factor float64) (Gradient, error) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return Gradient{}, fmt.Errorf("%w: scale factor must be positive and finite, got %v", ErrInvalidGradient, factor)
	}
	stops := make([]Breakpoint, len(g.stops))
	for i, s := range g.stops {
		stops[i] = Breakpoint{Value: s.Value * factor, Colour: s.Colour}
	}
	return NewGradient(stops...)
}

// Stops returns a copy of the breakpoints.
func (g Gradient) Stops() []Breakpoint {
	out := make([]Breakpoint, len(g.stops))
	copy(out, g.stops)
	return out
}

// Min is the first breakpoint value.
func (g Gradient) Min() float64 { return g.stops[0].Value }

// Max is the last breakpoint value.
func (g Gradient) Max() float64 { return g.stops[len(g.stops)-1].Value }

// Sample returns n colours taken at evenly spaced values from Min to Max.
func (g Gradient) Sample(n int) []Colour {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []Colour{g.Resolve(g.Min())}
	}
	out := make([]Colour, n)
	lo, hi := g.Min(), g.Max()
	for i := range out {
		out[i] = g.Resolve(lo + (hi-lo)*float64(i)/float64(n-1))
	}
	return out
}
