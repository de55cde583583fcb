package wallet

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestHolder(t *testing.T) {
	t.Run("starts disconnected", func(t *testing.T) {
		h := NewHolder(testLogger())
		state := h.State()
		assert.False(t, state.Connected)
		assert.Equal(t, SourceNone, state.Source)
		assert.Empty(t, state.Address)
		assert.Zero(t, state.Balance)
	})

	t.Run("connect sets address iff connected", func(t *testing.T) {
		h := NewHolder(testLogger())
		h.Connect(SourcePhantom, "addr-1")

		state := h.State()
		assert.True(t, state.Connected)
		assert.Equal(t, SourcePhantom, state.Source)
		assert.Equal(t, "addr-1", state.Address)

		h.Disconnect()
		state = h.State()
		assert.False(t, state.Connected)
		assert.Empty(t, state.Address)
		assert.Zero(t, state.Balance)
	})

	t.Run("connect with empty address is rejected", func(t *testing.T) {
		h := NewHolder(testLogger())
		h.Connect(SourcePhantom, "")
		assert.False(t, h.State().Connected)
	})

	t.Run("switching wallets resets balance", func(t *testing.T) {
		h := NewHolder(testLogger())
		h.Connect(SourcePhantom, "addr-1")
		h.SetBalance(3.5)
		require.Equal(t, 3.5, h.State().Balance)

		h.Connect(SourceSolflare, "addr-2")
		assert.Zero(t, h.State().Balance)
	})

	t.Run("reconnect to same wallet keeps balance", func(t *testing.T) {
		h := NewHolder(testLogger())
		h.Connect(SourcePhantom, "addr-1")
		h.SetBalance(3.5)

		h.Connect(SourcePhantom, "addr-1")
		assert.Equal(t, 3.5, h.State().Balance)
	})

	t.Run("set balance while disconnected is ignored", func(t *testing.T) {
		h := NewHolder(testLogger())
		h.SetBalance(9)
		assert.Zero(t, h.State().Balance)
	})

	t.Run("subscribers see every change", func(t *testing.T) {
		h := NewHolder(testLogger())

		var snapshots []State
		unsubscribe := h.Subscribe(func(s State) { snapshots = append(snapshots, s) })

		h.Connect(SourcePhantom, "addr-1")
		h.SetBalance(1.25)
		h.Disconnect()

		require.Len(t, snapshots, 3)
		assert.True(t, snapshots[0].Connected)
		assert.Equal(t, 1.25, snapshots[1].Balance)
		assert.False(t, snapshots[2].Connected)

		unsubscribe()
		h.Connect(SourceTrust, "addr-9")
		assert.Len(t, snapshots, 3)
	})
}

func TestValidSource(t *testing.T) {
	assert.True(t, ValidSource(SourcePhantom))
	assert.True(t, ValidSource(SourceSolflare))
	assert.True(t, ValidSource(SourceBackpack))
	assert.True(t, ValidSource(SourceTrust))
	assert.False(t, ValidSource(SourceNone))
	assert.False(t, ValidSource(Source("metamask")))
}
