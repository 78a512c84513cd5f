package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewSubscriber opens its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRunIngested delivers every announced run to handler through a
// durable consumer. Failed runs are redelivered up to three times.
func (s *Subscriber) SubscribeRunIngested(ctx context.Context, handler func(ctx context.Context, run *domain.Run) error) error {
	sub, err := s.js.Subscribe(RunIngestedWildcard, func(msg *nats.Msg) {
		var run domain.Run
		if err := json.Unmarshal(msg.Data, &run); err != nil {
			slog.Warn("drop malformed run event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &run); err != nil {
			slog.Warn("run event handler failed", "run", run.ID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("frame-precompute"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.track(sub)
	return nil
}

// SubscribeFrames delivers the frames of one run until ctx is done. The
// stream keeps the latest frame of each day, so days computed before the
// call are replayed first.
func (s *Subscriber) SubscribeFrames(ctx context.Context, runID string, handler func(ctx context.Context, frame *domain.HeatFrame) error) error {
	if !validToken(runID) {
		return fmt.Errorf("run id %q cannot be used in a subject", runID)
	}
	sub, err := s.js.Subscribe(RunFramesSubject(runID), func(msg *nats.Msg) {
		var frame domain.HeatFrame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			slog.Warn("drop malformed frame", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, &frame); err != nil {
			slog.Warn("frame handler failed", "run", frame.RunID, "day", frame.Day, "error", err)
		}
	},
		nats.OrderedConsumer(),
		nats.DeliverAll(),
	)
	if err != nil {
		return err
	}
	s.track(sub)

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (s *Subscriber) track(sub *nats.Subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()
	_ = s.conn.Drain()
}
