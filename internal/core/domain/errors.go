package domain

import "errors"

// Error kinds returned by the colour and projection engines. Callers match
// them with errors.Is; the wrapping message carries the detail.
var (
	// ErrInvalidGradient is returned for gradients with fewer than two
	// breakpoints or breakpoint values out of order.
	ErrInvalidGradient = errors.New("invalid gradient")

	// ErrInvalidGeometry is returned for empty or inverted boxes, non-positive
	// viewports, margins or image ratios.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrOutOfBounds is returned when strict cropping is requested and the
	// focus box is not inside the map bounds.
	ErrOutOfBounds = errors.New("focus box out of map bounds")

	// ErrNotFound is returned for unknown registry names and missing records.
	ErrNotFound = errors.New("not found")
)
