package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/epiviz/internal/adapters/http"
	natsadapter "github.com/samirrijal/epiviz/internal/adapters/nats"
	"github.com/samirrijal/epiviz/internal/adapters/postgres"
	"github.com/samirrijal/epiviz/internal/adapters/valkey"
	"github.com/samirrijal/epiviz/internal/core/ports"
	"github.com/samirrijal/epiviz/internal/core/usecases"
	"github.com/samirrijal/epiviz/internal/pkg/config"
	"github.com/samirrijal/epiviz/internal/pkg/logging"
	"github.com/samirrijal/epiviz/internal/pkg/metrics"
	"github.com/samirrijal/epiviz/internal/pkg/telemetry"
)

const poolMetricsInterval = 15 * time.Second

func main() {
	cfg, err := config.Load("epiviz-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolMetrics(ctx, db)

	gradients, err := cfg.GradientRegistry()
	if err != nil {
		log.Fatalf("gradients: %v", err)
	}
	maps, err := cfg.MapRegistry()
	if err != nil {
		log.Fatalf("maps: %v", err)
	}

	deps := &http.Dependencies{DB: db}

	// Cache and broker are optional. Interfaces stay nil when unavailable.
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer c.Close()
		cache = c
		deps.Cache = c
	}

	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, frames will not be published", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	// Raw NATS connection for the WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	runRepo := postgres.NewRunRepo(db)
	townRepo := postgres.NewTownRepo(db)
	countRepo := postgres.NewDayCountRepo(db)

	deps.Gradients = usecases.NewGradientService(gradients)
	deps.Maps = usecases.NewMapService(maps, cache, cfg.Render.CacheTTL, cfg.Render.DefaultMargin)
	deps.Heatmaps = usecases.NewHeatmapService(
		runRepo, townRepo, countRepo, gradients, maps, cache, publisher,
		usecases.HeatmapDefaults{
			Gradient: cfg.Render.DefaultGradient,
			Margin:   cfg.Render.DefaultMargin,
			CacheTTL: cfg.Render.CacheTTL,
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // GraphQL queries only
		AppName:      "epiviz API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "Link, ETag, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr,
			"gradients", len(gradients.Names()), "maps", len(maps.Names()))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(poolMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		}
	}
}
