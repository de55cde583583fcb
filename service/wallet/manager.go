package wallet

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager owns the connect/disconnect/refresh operations against the
// Holder. It is the only component that mutates wallet state; consumers
// read the Holder directly.
type Manager struct {
	holder   *Holder
	adapters map[Source]Adapter
	logger   *slog.Logger
}

// NewManager creates a Manager over the given adapters.
func NewManager(holder *Holder, adapters []Adapter, logger *slog.Logger) *Manager {
	byKind := make(map[Source]Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	return &Manager{holder: holder, adapters: byKind, logger: logger}
}

// Holder returns the wallet state holder consumers subscribe to.
func (m *Manager) Holder() *Holder {
	return m.holder
}

// Connect connects the wallet of the given kind and records its address.
// The initial balance fetch is best-effort; the periodic refresh corrects
// it within one interval.
func (m *Manager) Connect(ctx context.Context, kind Source) (string, error) {
	adapter, ok := m.adapters[kind]
	if !ok {
		return "", fmt.Errorf("unsupported wallet source %q", kind)
	}

	address, err := adapter.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to connect %s wallet: %w", kind, err)
	}
	m.holder.Connect(kind, address)

	if balance, err := adapter.GetNativeBalance(ctx, address); err != nil {
		m.logger.Warn("initial balance fetch failed", "source", kind, "address", address, "error", err)
	} else {
		m.applyBalance(kind, address, balance)
	}
	return address, nil
}

// Disconnect disconnects the active wallet, if any. In-flight fetches are
// not cancelled; their late results are discarded by the active-target
// check in applyBalance.
func (m *Manager) Disconnect(ctx context.Context) error {
	state := m.holder.State()
	if !state.Connected {
		return nil
	}

	adapter, ok := m.adapters[state.Source]
	if ok {
		if err := adapter.Disconnect(ctx); err != nil {
			m.logger.Warn("adapter disconnect failed", "source", state.Source, "error", err)
		}
	}
	m.holder.Disconnect()
	return nil
}

// RefreshBalance re-fetches the connected wallet's native balance and
// records it. A fetch failure keeps the last-known value. Safe to call
// concurrently with itself; the most recently completed fetch wins.
func (m *Manager) RefreshBalance(ctx context.Context) error {
	state := m.holder.State()
	if !state.Connected {
		return nil
	}

	adapter, ok := m.adapters[state.Source]
	if !ok {
		return fmt.Errorf("no adapter for connected source %q", state.Source)
	}

	balance, err := adapter.GetNativeBalance(ctx, state.Address)
	if err != nil {
		m.logger.Warn("balance refresh failed, keeping last value",
			"source", state.Source,
			"address", state.Address,
			"error", err,
		)
		return err
	}

	m.applyBalance(state.Source, state.Address, balance)
	return nil
}

// SignAndSend forwards the operation to the connected wallet.
func (m *Manager) SignAndSend(ctx context.Context, op Operation) (Result, error) {
	state := m.holder.State()
	if !state.Connected {
		return Result{}, fmt.Errorf("no wallet connected")
	}
	adapter, ok := m.adapters[state.Source]
	if !ok {
		return Result{}, fmt.Errorf("no adapter for connected source %q", state.Source)
	}
	return adapter.SignAndSend(ctx, op)
}

// applyBalance records a fetched balance only if the wallet it was fetched
// for is still the connected one. Late completions after a disconnect or
// switch are dropped.
func (m *Manager) applyBalance(source Source, address string, balance float64) {
	state := m.holder.State()
	if !state.Connected || state.Source != source || state.Address != address {
		m.logger.Debug("discarding stale balance fetch", "source", source, "address", address)
		return
	}
	m.holder.SetBalance(balance)
}
