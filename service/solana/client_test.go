package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGoldMint = "APkBg8kzMBpVKxvgrw67vkd5KuGWqSu2GVb19eK4pump"
	testAddress  = "7L9Z3kN2QxGp9mF3R4tL1wE6uYnPsX7zVcBdHgMq2Aj8"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	lamports     uint64
	balanceErr   error
	tokenAmount  string
	tokenDecimal uint8
	tokenErr     error
}

func (m *mockRPCClient) GetBalance(
	ctx context.Context,
	account solana.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetBalanceResult, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &rpc.GetBalanceResult{Value: m.lamports}, nil
}

func (m *mockRPCClient) GetTokenAccountBalance(
	ctx context.Context,
	account solana.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetTokenAccountBalanceResult, error) {
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{
			Amount:   m.tokenAmount,
			Decimals: m.tokenDecimal,
		},
	}, nil
}

func newTestClient(t *testing.T, mock *mockRPCClient) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(mock, testGoldMint, "test", nil, logger)
	require.NoError(t, err)
	return client
}

func TestGetNativeBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("converts lamports to whole SOL", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{lamports: 2_500_000_000})

		balance, err := client.GetNativeBalance(ctx, testAddress)
		require.NoError(t, err)
		assert.Equal(t, 2.5, balance)
	})

	t.Run("zero balance", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{lamports: 0})

		balance, err := client.GetNativeBalance(ctx, testAddress)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("rpc error propagates", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{balanceErr: errors.New("rpc down")})

		_, err := client.GetNativeBalance(ctx, testAddress)
		assert.Error(t, err)
	})

	t.Run("invalid address", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{})

		_, err := client.GetNativeBalance(ctx, "not-base58!!")
		assert.Error(t, err)
	})
}

func TestGetTokenBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("scales by token decimals", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{tokenAmount: "12500000", tokenDecimal: 6})

		balance, err := client.GetTokenBalance(ctx, testAddress)
		require.NoError(t, err)
		assert.Equal(t, 12.5, balance)
	})

	t.Run("missing token account means zero", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{
			tokenErr: errors.New("Invalid param: could not find account"),
		})

		balance, err := client.GetTokenBalance(ctx, testAddress)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("other rpc errors propagate", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{tokenErr: errors.New("rpc down")})

		_, err := client.GetTokenBalance(ctx, testAddress)
		assert.Error(t, err)
	})

	t.Run("unparseable amount", func(t *testing.T) {
		client := newTestClient(t, &mockRPCClient{tokenAmount: "abc", tokenDecimal: 6})

		_, err := client.GetTokenBalance(ctx, testAddress)
		assert.Error(t, err)
	})
}

func TestInvalidMint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(&mockRPCClient{}, "bogus mint", "test", nil, logger)
	assert.Error(t, err)
}
