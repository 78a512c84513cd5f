package domain

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Colour is an immutable RGB colour. Channels are kept as floats in [0,255]
// so mixing stays exact; rounding only happens when the colour is displayed.
type Colour struct {
	r, g, b float64
}

// NewColour builds a colour, clamping every channel to [0,255].
func NewColour(r, g, b float64) Colour {
	return Colour{r: clamp(r, 0, 255), g: clamp(g, 0, 255), b: clamp(b, 0, 255)}
}

// R returns the red channel.
func (c Colour) R() float64 { return c.r }

// G returns the green channel.
func (c Colour) G() float64 { return c.g }

// B returns the blue channel.
func (c Colour) B() float64 { return c.b }

// Mix returns p parts of c and (1-p) parts of other. p is clamped to [0,1].
func (c Colour) Mix(other Colour, p float64) Colour {
	p = clamp(p, 0, 1)
	return Colour{
		r: c.r*p + other.r*(1-p),
		g: c.g*p + other.g*(1-p),
		b: c.b*p + other.b*(1-p),
	}
}

// String formats the colour as a CSS rgb() value, rounding half up.
func (c Colour) String() string {
	r, g, b := c.rounded()
	return "rgb(" + strconv.Itoa(int(r)) + "," + strconv.Itoa(int(g)) + "," + strconv.Itoa(int(b)) + ")"
}

// Hex formats the colour as #rrggbb using the same rounding as String.
func (c Colour) Hex() string {
	r, g, b := c.rounded()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex()
}

// RGBA implements image/color.Color.
func (c Colour) RGBA() (r, g, b, a uint32) {
	rr, gg, bb := c.rounded()
	return color.RGBA{R: rr, G: gg, B: bb, A: 0xff}.RGBA()
}

// MarshalText lets colours appear as rgb() strings in JSON.
func (c Colour) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts anything ParseColour does.
func (c *Colour) UnmarshalText(text []byte) error {
	parsed, err := ParseColour(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Colour) rounded() (uint8, uint8, uint8) {
	return roundChannel(c.r), roundChannel(c.g), roundChannel(c.b)
}

// roundChannel rounds half up. Channels are never negative, so Floor(v+0.5)
// agrees with round-half-up over the whole range.
func roundChannel(v float64) uint8 {
	return uint8(math.Floor(clamp(v, 0, 255) + 0.5))
}

// ParseColour reads "#rgb", "#rrggbb", "rgb(r,g,b)" or a CSS colour name.
func ParseColour(s string) (Colour, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "#"):
		cf, err := colorful.Hex(lower)
		if err != nil {
			return Colour{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return NewColour(cf.R*255, cf.G*255, cf.B*255), nil

	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(lower, ")"):
		parts := strings.Split(lower[len("rgb("):len(lower)-1], ",")
		if len(parts) != 3 {
			return Colour{}, fmt.Errorf("parse colour %q: want 3 channels, got %d", s, len(parts))
		}
		var ch [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Colour{}, fmt.Errorf("parse colour %q: %w", s, err)
			}
			ch[i] = v
		}
		return NewColour(ch[0], ch[1], ch[2]), nil
	}

	if named, ok := colornames.Map[lower]; ok {
		return NewColour(float64(named.R), float64(named.G), float64(named.B)), nil
	}
	return Colour{}, fmt.Errorf("parse colour %q: unknown format", s)
}

// MustParseColour is ParseColour for literals known to be valid.
func MustParseColour(s string) Colour {
	c, err := ParseColour(s)
	if err != nil {
		panic("MustParseColour: " + err.Error())
	}
	return c
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v > hi:
		return hi
	case v < lo:
		return lo
	}
	return v
}
