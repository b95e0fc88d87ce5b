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
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/adapters/eventbus"
	"github.com/samirrijal/mapview/internal/adapters/http"
	natsadapter "github.com/samirrijal/mapview/internal/adapters/nats"
	"github.com/samirrijal/mapview/internal/adapters/nominatim"
	"github.com/samirrijal/mapview/internal/adapters/osrm"
	"github.com/samirrijal/mapview/internal/adapters/valkey"
	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/layers"
	"github.com/samirrijal/mapview/internal/core/mapsurface"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/core/usecases"
	"github.com/samirrijal/mapview/internal/pkg/config"
	"github.com/samirrijal/mapview/internal/pkg/logging"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mapview-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	baseLog := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = shutdown(sctx)
			}()
		}
	}

	// Rate limiter storage
	var limiterStore *valkey.Storage
	if cfg.Valkey.Enabled {
		limiterStore, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, rate limiting per instance", "error", err)
			limiterStore = nil
		} else {
			defer limiterStore.Close()
		}
	}

	// Session events: NATS when enabled, in-process otherwise
	var (
		publisher  ports.EventPublisher
		subscriber ports.EventSubscriber
		natsConn   *nats.Conn
	)
	if cfg.NATS.Enabled {
		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, using in-process events", "error", err)
		}
	}
	if natsConn != nil {
		pub := natsadapter.NewPublisher(natsConn, logging.Component(baseLog, "nats"))
		defer pub.Close()
		publisher = pub
		subscriber = natsadapter.NewSubscriber(natsConn)
	} else {
		bus := eventbus.New()
		publisher, subscriber = bus, bus
	}

	// External services
	geocoder := nominatim.NewClient(nominatim.Config{
		BaseURL:   cfg.Nominatim.BaseURL,
		UserAgent: cfg.Nominatim.UserAgent,
		Timeout:   time.Duration(cfg.Nominatim.Timeout) * time.Second,
	}, logging.Component(baseLog, "nominatim"))
	router := osrm.NewClient(osrm.Config{
		BaseURL: cfg.OSRM.BaseURL,
		Profile: cfg.OSRM.Profile,
		Timeout: time.Duration(cfg.OSRM.Timeout) * time.Second,
	}, logging.Component(baseLog, "osrm"))

	// Use cases
	sessions := usecases.NewSessionService(geocoder, router, widget.NewFactory(cfg.Map.MaxZoom), publisher,
		usecases.SessionDefaults{
			Surface: mapsurface.Options{
				Center: domain.Coordinate{Lat: cfg.Map.CenterLat, Lon: cfg.Map.CenterLon},
				Zoom:   cfg.Map.Zoom,
				Tile: domain.TileLayer{
					URLTemplate: cfg.Map.TileURL,
					Attribution: cfg.Map.Attribution,
					MaxZoom:     cfg.Map.MaxZoom,
				},
				AnchorLabel: cfg.Map.AnchorLabel,
				ResizeDelay: cfg.Map.ResizeDelay(),
			},
			Style: layers.Style{
				RouteColor:  cfg.Map.RouteColor,
				RouteWeight: cfg.Map.RouteWeight,
				FitPadding:  cfg.Map.FitPadding,
				SingleZoom:  cfg.Map.SingleZoom,
			},
			Language:         cfg.I18n.DefaultLanguage,
			Width:            cfg.Map.Width,
			Height:           cfg.Map.Height,
			OriginLabel:      "Origen: ",
			DestinationLabel: "Destino: ",
		}, logging.Component(baseLog, "sessions"))

	deps := &http.Dependencies{
		Sessions: sessions,
		Events:   subscriber,
		NATS:     natsConn,
		Limiter:  limiterStore,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024, // session bodies are two short strings
		AppName:      "MapView API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Cancel every in-flight resolution and destroy the maps.
	sessions.Close()

	slog.Info("server stopped")
}
