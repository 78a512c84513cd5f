package http

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// nameParam returns a path parameter with %-escapes decoded, so both
// "/gradients/Heat%20map" and "/gradients/heat-map" work.
func nameParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// queryFloat parses an optional finite float query parameter.
func queryFloat(c *fiber.Ctx, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number, got %q", key, raw)
	}
	return v, nil
}

// requireFloat parses a mandatory finite float query parameter.
func requireFloat(c *fiber.Ctx, key string) (float64, error) {
	if c.Query(key) == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return queryFloat(c, key, 0)
}

// queryBox reads min_lat, max_lat, min_lon and max_lon. ok is false when
// none of them is present.
func queryBox(c *fiber.Ctx) (box domain.GeoBox, ok bool, err error) {
	keys := [...]string{"min_lat", "max_lat", "min_lon", "max_lon"}
	present := 0
	for _, k := range keys {
		if c.Query(k) != "" {
			present++
		}
	}
	if present == 0 {
		return domain.GeoBox{}, false, nil
	}
	if present != len(keys) {
		return domain.GeoBox{}, false, fmt.Errorf("min_lat, max_lat, min_lon and max_lon must be given together")
	}
	var v [4]float64
	for i, k := range keys {
		if v[i], err = requireFloat(c, k); err != nil {
			return domain.GeoBox{}, false, err
		}
	}
	return domain.GeoBox{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]}, true, nil
}
