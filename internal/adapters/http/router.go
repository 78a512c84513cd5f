package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/epiviz/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// colourmapsSunset is when the /v1/colourmaps alias goes away.
var colourmapsSunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// apiVersion is echoed in X-API-Version on every response.
const apiVersion = "1.0.0"

// rateLimit is per client IP per minute. Playing back a run fetches one
// frame per day.
const rateLimit = 600

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	useMiddleware(app)
	app.Get("/metrics", metrics.Handler())

	// probes answer without the request timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1
	v1 := app.Group("/v1")
	v1.Get("/gradients", ListGradientsHandler(deps))
	v1.Get("/gradients/:name", GetGradientHandler(deps))
	v1.Get("/gradients/:name/resolve", ResolveColourHandler(deps))
	v1.Get("/gradients/:name/legend", LegendHandler(deps))

	// Legacy names from before gradients could be scaled
	v1.Get("/colourmaps", ListGradientsHandler(deps))
	v1.Get("/colourmaps/:name", GetGradientHandler(deps))

	v1.Get("/maps", ListMapsHandler(deps))
	v1.Get("/maps/:name", GetMapHandler(deps))
	v1.Get("/maps/:name/fit", FitMapHandler(deps))
	v1.Get("/maps/:name/crop", withTimeout(CropMapHandler(deps)))

	v1.Get("/runs", withTimeout(ListRunsHandler(deps)))
	v1.Get("/runs/:id", withTimeout(GetRunHandler(deps)))
	v1.Get("/runs/:id/towns", withTimeout(RunTownsHandler(deps)))
	v1.Get("/runs/:id/focus", withTimeout(RunFocusHandler(deps)))
	v1.Get("/runs/:id/days/:day/frame", withTimeout(FrameHandler(deps)))

	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	SetupDocs(app)

	// WebSocket frame relay, only when NATS is available
	if deps.NATS == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

// withTimeout bounds handlers that reach the database or cache.
func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

func useMiddleware(app *fiber.App) {
	app.Use(metrics.Middleware())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())
	app.Use(limiter.New(limiter.Config{
		Max:          rateLimit,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))
	app.Use(securityHeaders)
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/v1/colourmaps", SunsetDate: colourmapsSunset, Alternative: "/v1/gradients"},
		{Path: "/v1/colourmaps/:name", SunsetDate: colourmapsSunset, Alternative: "/v1/gradients/:name"},
	}))
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set(fiber.HeaderReferrerPolicy, "strict-origin-when-cross-origin")
	c.Set("X-API-Version", apiVersion)
	return c.Next()
}
