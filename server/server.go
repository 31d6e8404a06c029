// Package server exposes speaker attribution over HTTP: POST /v1/attribute
// runs the engine, /healthz reports backend availability, /version reports
// build metadata. Built on Gin with request-id, logging, and recovery
// middleware.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/speakerkit/attribution"
	"github.com/kbukum/speakerkit/logger"
)

// Server serves the attribution API.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	attributor Attributor
	backends   []Backend
	log        *logger.Logger
}

// Attributor runs one attribution request. Satisfied by
// *attribution.Engine.
type Attributor interface {
	Attribute(ctx context.Context, req attribution.Request) *attribution.Result
}

// Backend is a named availability probe, reported by /healthz.
type Backend interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// New creates a Server around the given attributor. Backends are optional
// health probes for the configured providers.
func New(cfg Config, attributor Attributor, backends []Backend, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:     gin.New(),
		attributor: attributor,
		backends:   backends,
		log:        log.WithComponent("server"),
	}
	s.engine.Use(recovery(s.log))
	s.engine.Use(requestID())
	s.engine.Use(requestLogger(s.log))
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and custom mounting.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start binds the port and begins serving. It returns once the listener
// is bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields("error", err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", s.httpServer.Addr))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}
