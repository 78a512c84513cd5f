package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/epiviz/internal/adapters/nats"
	"github.com/samirrijal/epiviz/internal/adapters/postgres"
	"github.com/samirrijal/epiviz/internal/adapters/valkey"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/ports"
	"github.com/samirrijal/epiviz/internal/core/usecases"
	"github.com/samirrijal/epiviz/internal/pkg/config"
	"github.com/samirrijal/epiviz/internal/pkg/logging"
	"github.com/samirrijal/epiviz/internal/pkg/telemetry"
	"github.com/samirrijal/epiviz/internal/workflows"
)

func main() {
	cfg, err := config.Load("epiviz-renderer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	gradients, err := cfg.GradientRegistry()
	if err != nil {
		log.Fatalf("gradients: %v", err)
	}
	maps, err := cfg.MapRegistry()
	if err != nil {
		log.Fatalf("maps: %v", err)
	}

	// Precomputing is pointless without somewhere to put the frames.
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, frames will only be published", "error", err)
	} else {
		defer c.Close()
		cache = c
	}
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	heatmaps := usecases.NewHeatmapService(
		postgres.NewRunRepo(db), postgres.NewTownRepo(db), postgres.NewDayCountRepo(db),
		gradients, maps, cache, publisher,
		usecases.HeatmapDefaults{
			Gradient: cfg.Render.DefaultGradient,
			Margin:   cfg.Render.DefaultMargin,
			CacheTTL: cfg.Render.CacheTTL,
		},
	)

	// Connect to Temporal
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PrecomputeFramesWorkflow)
	w.RegisterActivity(&workflows.FrameActivities{Heatmaps: heatmaps})

	if cfg.Render.Precompute {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats subscriber: %v", err)
		}
		defer sub.Close()

		err = sub.SubscribeRunIngested(ctx, func(ctx context.Context, run *domain.Run) error {
			id, err := workflows.StartPrecompute(ctx, tc, cfg.Temporal.TaskQueue, workflows.PrecomputeInput{
				RunID:    run.ID,
				Gradient: cfg.Render.DefaultGradient,
			})
			if err != nil {
				return err
			}
			slog.Info("precompute started", "run", run.ID, "days", run.Days, "workflow_run", id)
			return nil
		})
		if err != nil {
			log.Fatalf("subscribe run events: %v", err)
		}
		slog.Info("listening for ingested runs", "subject", natsadapter.RunIngestedWildcard)
	}

	slog.Info("renderer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	<-ctx.Done()
	slog.Info("shutdown signal received, stopping worker")
	w.Stop()
}
