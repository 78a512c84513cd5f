package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

// Version is reported by the liveness probe. It is overridden at link time.
var Version = "dev"

type healthBody struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	Gradients int    `json:"gradients"`
	Maps      int    `json:"maps"`
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler reports liveness along with the size of both registries.
func HealthHandler(deps *Dependencies) fiber.Handler {
	started := time.Now()
	return func(c *fiber.Ctx) error {
		return c.JSON(healthBody{
			Status:    "healthy",
			Uptime:    time.Since(started).Round(time.Second).String(),
			Version:   Version,
			Gradients: len(deps.Gradients.List()),
			Maps:      len(deps.Maps.List()),
		})
	}
}

// ReadyHandler probes the backing services. The database is required; NATS
// and the frame cache only degrade the report.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		res := readiness{Status: "ready", Checks: map[string]string{
			"database": probe(ctx, deps.DB),
			"cache":    probe(ctx, deps.Cache),
			"nats":     "not configured",
		}}
		if deps.NATS != nil {
			res.Checks["nats"] = "disconnected"
			if deps.NATS.IsConnected() {
				res.Checks["nats"] = "ok"
			}
		}

		if res.Checks["database"] != "ok" {
			res.Status = "not ready"
			return c.Status(fiber.StatusServiceUnavailable).JSON(res)
		}
		return c.JSON(res)
	}
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
