package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/epiviz/internal/core/usecases"
)

// Pinger is a backing service the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Gradients *usecases.GradientService
	Maps      *usecases.MapService
	Heatmaps  *usecases.HeatmapService
	NATS      *nats.Conn
	DB        Pinger
	Cache     Pinger
}
