// Package api provides the HTTP API for querying the engram memory engine.
package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/engine"
)

// Server is the API server for querying the engram system.
type Server struct {
	config Config
	engine *engine.Engine
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The engine is injected to allow
// sharing with other surfaces (e.g., the MCP server).
func NewServer(config Config, eng *engine.Engine, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		engine: eng,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/memory/stats", s.handleStats)
	app.Post("/memory/retrieve", s.handleRetrieve)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
