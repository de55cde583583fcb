package nats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/goldium-labs/goldium/service/storage"
	"github.com/goldium-labs/goldium/service/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet   = "7L9Z3kN2QxGp9mF3R4tL1wE6uYnPsX7zVcBdHgMq2Aj8"
	testGoldMint = "APkBg8kzMBpVKxvgrw67vkd5KuGWqSu2GVb19eK4pump"
)

// Wires a tracker's event stream into a publisher the way the server
// entrypoint does, then verifies the published events.
func TestTrackerEventBridge(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	pub := NewMockPublisher()

	trk := tracker.New(storage.NewMemoryStore(), testGoldMint, logger)
	trk.SetActiveWallet(ctx, testWallet)
	trk.Subscribe(func(ev tracker.Event) {
		_ = pub.PublishTransaction(ctx, FromTrackerEvent(ev))
	})

	rec := trk.Track(ctx, tracker.TrackParams{Type: tracker.TypeSwap, Token: tracker.TokenGOLD, Amount: 42})
	trk.UpdateStatus(ctx, rec.Signature, tracker.StatusConfirmed)

	events := pub.GetPublishedEventsForWallet(testWallet)
	require.Len(t, events, 2)

	assert.Equal(t, "tracked", events[0].Event)
	assert.Equal(t, rec.Signature, events[0].Signature)
	assert.Equal(t, "pending", events[0].Status)
	assert.Equal(t, testGoldMint, events[0].ContractAddress)

	assert.Equal(t, "status_changed", events[1].Event)
	assert.Equal(t, "confirmed", events[1].Status)

	assert.Empty(t, pub.GetPublishedEventsForWallet("otherWallet"))
}

func TestMockPublisher_PublishError(t *testing.T) {
	pub := NewMockPublisher()
	pub.SetPublishError(errors.New("nats unavailable"))

	err := pub.PublishTransaction(context.Background(), &TransactionEvent{WalletAddress: testWallet})
	require.Error(t, err)
	assert.Empty(t, pub.GetPublishedEvents())
}

func TestMockPublisher_Close(t *testing.T) {
	pub := NewMockPublisher()
	require.False(t, pub.IsClosed())
	require.NoError(t, pub.Close())
	assert.True(t, pub.IsClosed())

	err := pub.PublishTransaction(context.Background(), &TransactionEvent{WalletAddress: testWallet})
	assert.Error(t, err)
}
