// Package server assembles the HTTP API: routes, middleware chain, and
// server lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/server/handler"
	"github.com/raffleworks/raffled/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Per-client rate limit. Zero RateLimit disables the middleware.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	Quotes  *handler.QuoteHandler
	Seasons *handler.SeasonHandler
}

// Server is the headless HTTP API server for the raffle backend.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the middleware chain applied. limiter may be nil to disable rate
// limiting.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Backend status.
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Quote endpoints.
	mux.HandleFunc("GET /api/quote/buy", handlers.Quotes.BuyQuote)
	mux.HandleFunc("GET /api/quote/sell", handlers.Quotes.SellQuote)

	// Season and distribution endpoints.
	mux.HandleFunc("GET /api/seasons", handlers.Seasons.ListSeasons)
	mux.HandleFunc("GET /api/seasons/{id}", handlers.Seasons.GetSeason)
	mux.HandleFunc("GET /api/seasons/{id}/manifest", handlers.Seasons.GetManifest)
	mux.HandleFunc("GET /api/seasons/{id}/proof/{account}", handlers.Seasons.GetProof)

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	// Apply rate limiting outermost so rejected requests stay cheap.
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
