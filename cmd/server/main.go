package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldium-labs/goldium/service/balance"
	"github.com/goldium-labs/goldium/service/config"
	"github.com/goldium-labs/goldium/service/metrics"
	natspkg "github.com/goldium-labs/goldium/service/nats"
	"github.com/goldium-labs/goldium/service/server"
	"github.com/goldium-labs/goldium/service/solana"
	"github.com/goldium-labs/goldium/service/storage/postgres"
	"github.com/goldium-labs/goldium/service/tracker"
	"github.com/goldium-labs/goldium/service/wallet"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Verify database connection
	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize durable KV store
	store := postgres.NewStore(dbPool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure storage schema", "error", err)
		os.Exit(1)
	}

	// Initialize metrics
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Initialize Solana RPC client against the primary upstream.
	// The HTTP proxy endpoint iterates all configured upstreams itself.
	// Note: For premium RPC endpoints, include API key in the URL
	primaryRPC := cfg.SolanaRPCURLs[0]
	solanaClient, err := solana.NewClient(solana.NewRPCClient(primaryRPC), cfg.GoldMintAddress, primaryRPC, m, logger)
	if err != nil {
		logger.Error("failed to initialize solana client", "error", err)
		os.Exit(1)
	}
	logger.Info("initialized solana RPC client", "url", primaryRPC)

	// Initialize transaction tracker keyed to the self-contained wallet
	policy := tracker.ConfirmAtFinality
	if cfg.ConfirmPolicy == "submit" {
		policy = tracker.ConfirmAtSubmit
	}
	trk := tracker.New(store, cfg.GoldMintAddress, logger,
		tracker.WithHistoryLimit(cfg.HistoryLimit),
		tracker.WithConfirmPolicy(policy),
	)
	trk.SetActiveWallet(ctx, cfg.SelfWalletAddress)

	// Initialize wallet state and balance resolution
	holder := wallet.NewHolder(logger)
	manager := wallet.NewManager(holder, nil, logger)
	selfWallet := wallet.NewSelfContained(cfg.SelfWalletAddress, solanaClient, logger)
	resolver := balance.New(holder, selfWallet, manager, logger,
		balance.WithInterval(cfg.BalanceRefreshInterval),
		balance.WithMetrics(m),
	)
	go resolver.Run(ctx)

	// Initialize NATS publisher and bridge tracker events onto the stream
	publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
	if err != nil {
		logger.Error("failed to initialize NATS publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	trk.Subscribe(func(ev tracker.Event) {
		switch ev.Kind {
		case tracker.EventTracked:
			m.RecordTransactionTracked(string(ev.Record.Type), string(ev.Record.Token))
		case tracker.EventStatusChanged:
			m.RecordTransactionStatus(string(ev.Record.Status))
		}
		if err := publisher.PublishTransaction(ctx, natspkg.FromTrackerEvent(ev)); err != nil {
			logger.Error("failed to publish transaction event",
				"signature", ev.Record.Signature,
				"error", err,
			)
		}
	})

	// Initialize SSE publisher for streaming endpoints
	ssePublisher, err := server.NewSSEPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to initialize SSE publisher", "error", err)
		os.Exit(1)
	}

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cfg, trk, resolver, manager, ssePublisher, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"solana_rpc_upstreams", len(cfg.SolanaRPCURLs),
		"nats_url", cfg.NATSURL,
		"self_wallet", cfg.SelfWalletAddress,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
