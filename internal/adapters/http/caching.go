package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule maps a path prefix to the Cache-Control value served for it.
// Rules are matched in order; exact marks a rule that must match the whole path.
type cacheRule struct {
	prefix string
	exact  bool
	value  string
}

var cacheRules = []cacheRule{
	{prefix: "/v1/health", exact: true, value: "public, max-age=10"},
	{prefix: "/v1/ready", exact: true, value: "public, max-age=10"},
	{prefix: "/metrics", exact: true, value: "no-cache"},
	// registries are fixed for the lifetime of the process
	{prefix: "/v1/gradients", value: "public, max-age=3600"},
	{prefix: "/v1/colourmaps", value: "public, max-age=3600"},
	{prefix: "/v1/maps", value: "public, max-age=3600"},
	{prefix: "/v1/runs", exact: true, value: "public, max-age=30"},
	{prefix: "/v1/runs/", value: "public, max-age=600"},
	{prefix: "/v1/", value: "public, max-age=300"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if r.exact && path == r.prefix || !r.exact && strings.HasPrefix(path, r.prefix) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware fills in Cache-Control on GET responses whose handler
// did not set one. Error responses are never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}
		if v := cacheControlFor(c.Path()); v != "" {
			c.Set(fiber.HeaderCacheControl, v)
		}
		return err
	}
}
