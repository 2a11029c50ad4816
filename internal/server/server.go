package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/internal/jobs"
)

// Server exposes the crawl job API and the websocket progress stream.
type Server struct {
	config *common.Config
	logger arbor.ILogger
	jobs   *jobs.Manager
	ws     *WebSocketHandler
	server *http.Server
}

// New creates the HTTP server wired to the job manager and event stream.
func New(config *common.Config, manager *jobs.Manager, events interfaces.EventService, logger arbor.ILogger) (*Server, error) {
	s := &Server{
		config: config,
		logger: logger,
		jobs:   manager,
		ws:     NewWebSocketHandler(events, logger),
	}
	if err := s.ws.SubscribeEvents(); err != nil {
		return nil, fmt.Errorf("failed to subscribe websocket handler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.setupRoutes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	s.ws.CloseAll()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
