package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/epiviz/internal/adapters/nats"
	"github.com/samirrijal/epiviz/internal/adapters/postgres"
	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/ports"
	"github.com/samirrijal/epiviz/internal/core/usecases"
	"github.com/samirrijal/epiviz/internal/pkg/config"
	"github.com/samirrijal/epiviz/internal/pkg/logging"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "give up after this long")
	noPublish := flag.Bool("no-publish", false, "do not announce the run on NATS")
	follow := flag.Bool("follow", false, "after each run, wait until a frame of every day has been rendered")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: ingestor [flags] <run.json>...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("epiviz-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	if !*noPublish {
		if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			slog.Warn("nats unavailable, runs will not be announced", "error", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	var frames ports.EventSubscriber
	if *follow {
		if publisher == nil {
			log.Fatal("-follow needs the run to be announced on NATS")
		}
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer sub.Close()
		frames = sub
	}

	svc := usecases.NewIngestService(
		postgres.NewRunRepo(db), postgres.NewTownRepo(db), postgres.NewDayCountRepo(db), publisher,
	)

	failed := 0
	for _, path := range flag.Args() {
		run, err := ingestFile(ctx, svc, path)
		if err == nil && frames != nil {
			err = followFrames(ctx, frames, run)
		}
		if err != nil {
			slog.Error("ingest failed", "file", path, "error", err)
			failed++
		}
	}
	if failed > 0 {
		slog.Error("ingestion finished with errors", "failed", failed, "files", flag.NArg())
		os.Exit(1)
	}
	slog.Info("ingestion complete", "files", flag.NArg())
}

func ingestFile(ctx context.Context, svc *usecases.IngestService, path string) (*domain.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rf, err := usecases.DecodeRunFile(f)
	if err != nil {
		return nil, err
	}
	run, err := svc.Ingest(ctx, rf)
	if err != nil {
		return nil, err
	}
	// Printed on stdout so scripts can capture the generated ID.
	fmt.Println(run.ID)
	return run, nil
}

// followFrames blocks until the renderer has published a frame for every
// day of run.
func followFrames(ctx context.Context, frames ports.EventSubscriber, run *domain.Run) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	days := make(chan int, run.Days)
	err := frames.SubscribeFrames(ctx, run.ID, func(_ context.Context, f *domain.HeatFrame) error {
		slog.Info("frame rendered", "run", f.RunID, "day", f.Day, "infected", f.Total, "gradient", f.Gradient)
		select {
		case days <- f.Day:
		case <-ctx.Done():
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("follow frames: %w", err)
	}

	seen := make(map[int]bool, run.Days)
	for len(seen) < run.Days {
		select {
		case <-ctx.Done():
			return fmt.Errorf("follow frames: %d of %d days rendered: %w", len(seen), run.Days, ctx.Err())
		case d := <-days:
			seen[d] = true
		}
	}
	return nil
}
