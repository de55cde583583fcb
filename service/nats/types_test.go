package nats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goldium-labs/goldium/service/tracker"
)

func TestFromTrackerEvent(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := tracker.Event{
		Kind:          tracker.EventStatusChanged,
		WalletAddress: "wallet-A",
		Record: tracker.Record{
			Signature:       "sig-1",
			Type:            tracker.TypeSwap,
			Token:           tracker.TokenGOLD,
			Amount:          12.5,
			Timestamp:       ts,
			Status:          tracker.StatusConfirmed,
			ContractAddress: "mint-address",
		},
	}

	event := FromTrackerEvent(ev)
	assert.Equal(t, "status_changed", event.Event)
	assert.Equal(t, "wallet-A", event.WalletAddress)
	assert.Equal(t, "sig-1", event.Signature)
	assert.Equal(t, "swap", event.Type)
	assert.Equal(t, "GOLD", event.Token)
	assert.Equal(t, 12.5, event.Amount)
	assert.Equal(t, ts, event.Timestamp)
	assert.Equal(t, "confirmed", event.Status)
	assert.Equal(t, "mint-address", event.ContractAddress)
	assert.WithinDuration(t, time.Now(), event.PublishedAt, 5*time.Second)
}
