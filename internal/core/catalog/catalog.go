// Package catalog holds the read-only registries of named gradients and map
// definitions. Registries are built once at startup and handed to the
// services that need them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// Slug turns a display name into its URL form: "Heat map" -> "heat-map".
func Slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// registry is an insertion-ordered name -> value table keyed by slug.
type registry[T any] struct {
	kind  string
	names []string
	items map[string]T
}

func newRegistry[T any](kind string) registry[T] {
	return registry[T]{kind: kind, items: make(map[string]T)}
}

func (r *registry[T]) add(name string, v T) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name must not be empty", r.kind)
	}
	key := Slug(name)
	if _, exists := r.items[key]; exists {
		return fmt.Errorf("duplicate %s %q", r.kind, name)
	}
	r.names = append(r.names, name)
	r.items[key] = v
	return nil
}

func (r *registry[T]) get(name string) (T, error) {
	_, v, err := r.lookup(name)
	return v, err
}

// lookup also returns the display name the entry was registered under.
func (r *registry[T]) lookup(name string) (string, T, error) {
	key := Slug(name)
	v, ok := r.items[key]
	if !ok {
		var zero T
		return "", zero, fmt.Errorf("%s %q: %w", r.kind, name, domain.ErrNotFound)
	}
	for _, n := range r.names {
		if Slug(n) == key {
			return n, v, nil
		}
	}
	return name, v, nil
}

func (r *registry[T]) list() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
