package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/handlers"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	handler    *handlers.Handler
	middleware *middleware.Middleware
	log        *logger.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, handler *handlers.Handler, log *logger.Logger) *Server {
	mw := middleware.New(log)
	mw.SetAPIKeys(cfg.Security.APIKeys)

	return &Server{
		cfg:        cfg.Server,
		handler:    handler,
		middleware: mw,
		log:        log,
	}
}

// Routes returns the routed handler wrapped in the middleware chain
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Webhooks, authenticated by signature
	mux.HandleFunc("POST /webhook/github", s.handler.GitHubWebhook)
	mux.HandleFunc("POST /{$}", s.handler.GitHubWebhook)

	mux.HandleFunc("GET /{$}", s.handler.HealthCheck)
	mux.HandleFunc("GET /health", s.handler.HealthCheck)

	// Admin API, authenticated by API key
	mux.HandleFunc("GET /registry", s.handler.ListMappings)
	mux.HandleFunc("POST /registry", s.handler.RegisterMapping)
	mux.HandleFunc("GET /registry/{repo_id}", s.handler.GetMapping)
	mux.HandleFunc("GET /whatsapp/groups", s.handler.GetGroups)

	handler := s.middleware.Recovery(mux)
	handler = s.middleware.APIKeyAuth(handler)
	handler = s.middleware.Security(handler)
	handler = s.middleware.Logging(handler)
	handler = s.middleware.RequestID(handler)

	return handler
}

// Start binds the listen address and serves in the background. Errors
// after a successful bind are sent to errChan.
func (s *Server) Start(errChan chan<- error) error {
	listener, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Infof("HTTP server listening on %s", listener.Addr())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server shutdown complete")
	return nil
}
