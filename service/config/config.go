package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Solana configuration. RPCURLs is the ordered upstream list the
	// passthrough proxy tries; the first entry is also used for direct
	// balance lookups.
	SolanaRPCURLs []string

	// GOLD token configuration
	GoldMintAddress string

	// Self-contained wallet configuration
	SelfWalletAddress string

	// Tracker configuration
	HistoryLimit  int
	ConfirmPolicy string // "finality" or "submit"

	// Balance resolver configuration
	BalanceRefreshInterval time.Duration

	// Proxy configuration
	ProxyUpstreamTimeout time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Solana configuration
	rpcURLs := os.Getenv("SOLANA_RPC_URLS")
	if rpcURLs == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URLS is required"))
	} else {
		for _, u := range strings.Split(rpcURLs, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				cfg.SolanaRPCURLs = append(cfg.SolanaRPCURLs, u)
			}
		}
		if len(cfg.SolanaRPCURLs) == 0 {
			errs = append(errs, fmt.Errorf("SOLANA_RPC_URLS must contain at least one URL"))
		}
	}

	// GOLD token configuration
	cfg.GoldMintAddress = os.Getenv("GOLD_MINT_ADDRESS")
	if cfg.GoldMintAddress == "" {
		errs = append(errs, fmt.Errorf("GOLD_MINT_ADDRESS is required"))
	}

	// Self-contained wallet configuration
	cfg.SelfWalletAddress = os.Getenv("SELF_WALLET_ADDRESS")
	if cfg.SelfWalletAddress == "" {
		errs = append(errs, fmt.Errorf("SELF_WALLET_ADDRESS is required"))
	}

	// Tracker configuration
	historyLimit, err := parseInt("HISTORY_LIMIT", "50")
	if err != nil {
		errs = append(errs, err)
	} else if historyLimit <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive"))
	} else {
		cfg.HistoryLimit = historyLimit
	}

	cfg.ConfirmPolicy = getEnvOrDefault("CONFIRM_POLICY", "finality")
	if cfg.ConfirmPolicy != "finality" && cfg.ConfirmPolicy != "submit" {
		errs = append(errs, fmt.Errorf("CONFIRM_POLICY must be %q or %q, got %q", "finality", "submit", cfg.ConfirmPolicy))
	}

	// Balance resolver configuration
	refreshInterval, err := parseDuration("BALANCE_REFRESH_INTERVAL", "10s")
	if err != nil {
		errs = append(errs, err)
	} else if refreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("BALANCE_REFRESH_INTERVAL must be at least 1 second"))
	} else {
		cfg.BalanceRefreshInterval = refreshInterval
	}

	// Proxy configuration
	proxyTimeout, err := parseDuration("PROXY_UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ProxyUpstreamTimeout = proxyTimeout
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if len(c.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SolanaRPCURLs is required"))
	}

	if c.GoldMintAddress == "" {
		errs = append(errs, fmt.Errorf("GoldMintAddress is required"))
	}

	if c.SelfWalletAddress == "" {
		errs = append(errs, fmt.Errorf("SelfWalletAddress is required"))
	}

	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be positive"))
	}

	if c.ConfirmPolicy != "finality" && c.ConfirmPolicy != "submit" {
		errs = append(errs, fmt.Errorf("ConfirmPolicy must be finality or submit"))
	}

	if c.BalanceRefreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("BalanceRefreshInterval must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key, defaultValue string) (int, error) {
	value := getEnvOrDefault(key, defaultValue)
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return n, nil
}
