package ports

import (
	"context"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// EventPublisher publishes visualisation events to a message broker.
type EventPublisher interface {
	PublishFrame(ctx context.Context, frame *domain.HeatFrame) error
	PublishRunIngested(ctx context.Context, run *domain.Run) error
}

// EventSubscriber subscribes to visualisation events from a message broker.
type EventSubscriber interface {
	SubscribeRunIngested(ctx context.Context, handler func(ctx context.Context, run *domain.Run) error) error
	SubscribeFrames(ctx context.Context, runID string, handler func(ctx context.Context, frame *domain.HeatFrame) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}
