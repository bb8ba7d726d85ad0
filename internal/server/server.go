// Package server assembles the HTTP and WebSocket API for the trading
// engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sentitrade/internal/domain"
	"sentitrade/internal/server/handler"
	"sentitrade/internal/server/middleware"
	"sentitrade/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Trades    *handler.TradesHandler
	Portfolio *handler.PortfolioHandler
	Process   *handler.ProcessHandler
}

// Server is the engine's API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered and the middleware chain
// applied (CORS outermost, then rate limiting and request logging, auth
// innermost). limiter may be nil to disable rate limiting.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health stays reachable without credentials.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	authed := middleware.Auth(cfg.APIKey)
	mux.Handle("GET /api/trades", authed(http.HandlerFunc(handlers.Trades.ListTrades)))
	mux.Handle("GET /api/portfolio", authed(http.HandlerFunc(handlers.Portfolio.GetPortfolio)))
	mux.Handle("POST /api/process-analysis", authed(http.HandlerFunc(handlers.Process.ProcessAnalysis)))

	if wsHub != nil {
		mux.Handle("GET /ws", authed(http.HandlerFunc(wsHub.HandleWS)))
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	if limiter != nil {
		h = middleware.RateLimit(limiter, 60, time.Minute)(h)
	}
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start listens for requests. It blocks until the server errors or is shut
// down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
