package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/parleyhq/parley/internal/hub"
	"github.com/parleyhq/parley/pkg/logger"
)

type Server struct {
	hub        *hub.Hub
	wsHandler  http.Handler
	log        *logger.Logger
	httpServer *http.Server
}

func New(addr, allowedOrigin string, h *hub.Hub, wsHandler http.Handler, log *logger.Logger) *Server {
	s := &Server{
		hub:       h,
		wsHandler: wsHandler,
		log:       log,
	}

	router := s.setupRoutes(allowedOrigin)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: it would kill long-lived websocket connections
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Server shutting down gracefully...", "addr", s.httpServer.Addr)
	return s.httpServer.Shutdown(ctx)
}
