// Package web serves the companion's control API, websocket streams and
// metrics.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-companion/pkg/adapter"
	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/hub"
)

// Engine is the slice of *engine.Engine the server drives.
type Engine interface {
	adapter.Sink
	ResetMood() error
	Latest() (engine.Snapshot, bool)
	Stats() engine.Stats
	Session() string
	Personality() affect.Personality
}

// Config configures the server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the HTTP and websocket front end.
type Server struct {
	app       *fiber.App
	cfg       Config
	engine    Engine
	paramsHub *hub.Hub
	producers *producers
	log       *slog.Logger
}

// NewServer wires routes onto a new fiber app. paramsHub streams snapshots
// and haptic cues; the caller runs it.
func NewServer(cfg Config, eng Engine, paramsHub *hub.Hub) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		engine:    eng,
		paramsHub: paramsHub,
		producers: newProducers(),
		log:       cfg.Logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Companion",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())

	// CORS for local development
	app.Use(cors.New())

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// API routes
	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/mood", s.handleMood)
	api.Get("/stats", s.handleStats)
	api.Get("/producers", s.handleProducers)
	api.Post("/signals/:kind", s.handleSignal)
	api.Post("/mood/reset", s.handleResetMood)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	s.registerParamsRoutes(app)
	s.registerSignalRoutes(app)

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
