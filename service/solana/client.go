package solana

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/goldium-labs/goldium/service/metrics"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real
// Solana nodes.
type RPCClient interface {
	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetTokenAccountBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenAccountBalanceResult, error)
}

const lamportsPerSOL = 1_000_000_000

// Client provides balance lookups against Solana.
// It wraps the RPC client with domain-specific operations.
type Client struct {
	rpc      RPCClient
	goldMint solana.PublicKey
	decimals int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
}

// NewClient creates a new Solana client for the given GOLD mint.
// The endpoint parameter is used for metrics labeling. If metrics is nil,
// no metrics will be recorded.
func NewClient(rpcClient RPCClient, goldMint string, endpoint string, m *metrics.Metrics, logger *slog.Logger) (*Client, error) {
	mint, err := solana.PublicKeyFromBase58(goldMint)
	if err != nil {
		return nil, fmt.Errorf("invalid GOLD mint address %q: %w", goldMint, err)
	}
	return &Client{
		rpc:      rpcClient,
		goldMint: mint,
		decimals: 6, // GOLD is a 6-decimal SPL token
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}, nil
}

// GetNativeBalance fetches the SOL balance for address, in whole SOL.
func (c *Client) GetNativeBalance(ctx context.Context, address string) (float64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", address, err)
	}

	start := time.Now()
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	c.recordCall("GetBalance", err, time.Since(start))
	if err != nil {
		c.logger.DebugContext(ctx, "GetBalance failed", "address", address, "error", err)
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}

	return float64(result.Value) / lamportsPerSOL, nil
}

// GetTokenBalance fetches the GOLD balance for address, in whole tokens.
// A wallet with no associated token account holds zero GOLD.
func (c *Client) GetTokenBalance(ctx context.Context, address string) (float64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", address, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(pubkey, c.goldMint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive associated token address: %w", err)
	}

	start := time.Now()
	result, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	c.recordCall("GetTokenAccountBalance", err, time.Since(start))
	if err != nil {
		if isAccountNotFound(err) {
			return 0, nil
		}
		c.logger.DebugContext(ctx, "GetTokenAccountBalance failed", "address", address, "error", err)
		return 0, fmt.Errorf("failed to get GOLD balance: %w", err)
	}
	if result.Value == nil {
		return 0, nil
	}

	raw, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount %q: %w", result.Value.Amount, err)
	}

	divisor := 1.0
	for i := 0; i < c.decimals; i++ {
		divisor *= 10
	}
	return float64(raw) / divisor, nil
}

func (c *Client) recordCall(method string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, duration.Seconds())
}

// isAccountNotFound matches the RPC error returned when the associated
// token account has never been created.
func isAccountNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "could not find account")
}
