package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goldium-labs/goldium/service/balance"
	"github.com/goldium-labs/goldium/service/config"
	"github.com/goldium-labs/goldium/service/metrics"
	"github.com/goldium-labs/goldium/service/tracker"
	"github.com/goldium-labs/goldium/service/wallet"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the goldium service.
type Server struct {
	addr         string
	cfg          *config.Config
	tracker      *tracker.Tracker
	resolver     *balance.Resolver
	manager      *wallet.Manager
	ssePublisher *SSEPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The ssePublisher is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, trk *tracker.Tracker, resolver *balance.Resolver, manager *wallet.Manager, ssePublisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		cfg:          cfg,
		tracker:      trk,
		resolver:     resolver,
		manager:      manager,
		ssePublisher: ssePublisher,
		metrics:      m,
		logger:       logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// RPC passthrough proxy
	mux.Handle("POST /api/v1/rpc", s.instrument("rpc_proxy",
		handleRPCProxy(s.cfg.SolanaRPCURLs, s.cfg.ProxyUpstreamTimeout, s.metrics, s.logger)))

	// Transaction tracking routes
	mux.Handle("POST /api/v1/wallets/{address}/transactions", s.instrument("track_transaction",
		handleTrackTransaction(s.tracker, s.logger)))
	mux.Handle("GET /api/v1/wallets/{address}/transactions", s.instrument("list_transactions",
		handleListTransactions(s.tracker, s.logger)))
	mux.Handle("PATCH /api/v1/wallets/{address}/transactions/{signature}", s.instrument("update_transaction_status",
		handleUpdateTransactionStatus(s.tracker, s.logger)))

	// Balance route
	mux.Handle("GET /api/v1/wallets/{address}/balance", s.instrument("get_balance",
		handleGetBalance(s.resolver, s.manager, s.logger)))

	// SSE streaming endpoints (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/transactions/{address}", handleStreamTransactions(s.ssePublisher, s.metrics, s.logger))
		mux.Handle("GET /api/v1/stream/transactions", handleStreamTransactions(s.ssePublisher, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.Handle("GET /health", handleHealth(s.tracker, s.ssePublisher != nil, s.metrics != nil))

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// instrument wraps a handler with HTTP metrics collection when metrics are configured.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	// Then shutdown HTTP server
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
