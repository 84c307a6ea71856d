// Package web exposes the HTTP status surface of the tracker.
package web

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dedup"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/observability"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/scheduler"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/subscriber"
)

// Config holds server configuration.
type Config struct {
	Port int
}

// Server serves health, status and metrics endpoints.
type Server struct {
	app   *fiber.App
	log   logger.Logger
	port  int
	sched *scheduler.Scheduler
	store subscriber.Store
	cache *dedup.Cache
}

// NewServer creates the HTTP status server.
func NewServer(cfg Config, sched *scheduler.Scheduler, store subscriber.Store, cache *dedup.Cache, log logger.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error("HTTP error", logger.F("error", err), logger.F("code", code))

			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())

	server := &Server{
		app:   app,
		log:   log.With(logger.F("component", "web-server")),
		port:  cfg.Port,
		sched: sched,
		store: store,
		cache: cache,
	}

	app.Get("/health", server.handleHealth)
	app.Get("/status", server.handleStatus)
	app.Get("/metrics", adaptor.HTTPHandler(observability.Handler()))

	return server
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	subscribers, err := s.store.Count(c.Context())
	if err != nil {
		s.log.Warn("subscriber count unavailable", logger.F("error", err))
		subscribers = -1
	}

	return c.JSON(fiber.Map{
		"state":       s.sched.State(),
		"last_cycle":  s.sched.LastCycle(),
		"cache_size":  s.cache.Size(),
		"subscribers": subscribers,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("starting web server", logger.F("port", s.port))
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	return s.app.ShutdownWithContext(ctx)
}
