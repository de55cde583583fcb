package wallet

import (
	"context"
	"log/slog"
)

// BalanceFetcher fetches on-chain balances for an address. Implemented by
// the solana client; mocked in tests.
type BalanceFetcher interface {
	GetNativeBalance(ctx context.Context, address string) (float64, error)
	GetTokenBalance(ctx context.Context, address string) (float64, error)
}

// SelfContained is the fallback in-app wallet: a fixed address whose
// balances are fetched directly, not through a user-held extension. It is
// always available regardless of external wallet state.
type SelfContained struct {
	address string
	fetcher BalanceFetcher
	logger  *slog.Logger
}

// NewSelfContained creates the self-contained wallet for address.
func NewSelfContained(address string, fetcher BalanceFetcher, logger *slog.Logger) *SelfContained {
	return &SelfContained{address: address, fetcher: fetcher, logger: logger}
}

// Address returns the self-contained wallet's address.
func (w *SelfContained) Address() string {
	return w.address
}

// NativeBalance fetches the wallet's SOL balance.
func (w *SelfContained) NativeBalance(ctx context.Context) (float64, error) {
	return w.fetcher.GetNativeBalance(ctx, w.address)
}

// TokenBalance fetches the wallet's GOLD balance.
func (w *SelfContained) TokenBalance(ctx context.Context) (float64, error) {
	return w.fetcher.GetTokenBalance(ctx, w.address)
}
