package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/epiviz/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Streams returns the JetStream streams epiviz publishes to.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:              "VIZ_FRAMES",
			Subjects:          []string{FramesWildcard},
			Retention:         nats.LimitsPolicy,
			MaxAge:            1 * time.Hour,
			MaxMsgsPerSubject: 1,
			Storage:           nats.FileStorage,
		},
		{
			Name:      "VIZ_RUNS",
			Subjects:  []string{"viz.run.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, cfg := range Streams() {
		cfg := cfg
		if _, err := js.AddStream(&cfg); err != nil {
			// stream exists already: update it
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishFrame publishes a computed frame on viz.frame.<run>.<day>.
func (p *Publisher) PublishFrame(ctx context.Context, frame *domain.HeatFrame) error {
	if !validToken(frame.RunID) {
		return fmt.Errorf("run id %q cannot be used in a subject", frame.RunID)
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(FrameSubject(frame.RunID, frame.Day), data, nats.Context(ctx))
	return err
}

// PublishRunIngested announces a stored run on viz.run.<run>.ingested.
func (p *Publisher) PublishRunIngested(ctx context.Context, run *domain.Run) error {
	if !validToken(run.ID) {
		return fmt.Errorf("run id %q cannot be used in a subject", run.ID)
	}
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RunIngestedSubject(run.ID), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
