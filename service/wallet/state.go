package wallet

import (
	"log/slog"
	"sync"
)

// Source identifies which wallet adapter is active.
type Source string

const (
	SourceNone     Source = "none"
	SourcePhantom  Source = "phantom"
	SourceSolflare Source = "solflare"
	SourceBackpack Source = "backpack"
	SourceTrust    Source = "trust"
)

// ValidSource reports whether s names a supported external wallet.
func ValidSource(s Source) bool {
	switch s {
	case SourcePhantom, SourceSolflare, SourceBackpack, SourceTrust:
		return true
	}
	return false
}

// State is a snapshot of the external wallet connection. Address is set
// if and only if Connected is true.
type State struct {
	Connected bool
	Source    Source
	Address   string
	Balance   float64
}

// Holder is the process-wide wallet state, held explicitly and injected
// into consumers rather than accessed as an ambient global. It is mutated
// only by connect/disconnect/balance-refresh operations; everything else
// reads snapshots and subscribes to changes.
type Holder struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
	logger  *slog.Logger
}

// NewHolder creates a disconnected Holder.
func NewHolder(logger *slog.Logger) *Holder {
	return &Holder{
		state:  State{Source: SourceNone},
		subs:   make(map[int]func(State)),
		logger: logger,
	}
}

// State returns a snapshot of the current wallet state.
func (h *Holder) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Subscribe registers fn to be called with a snapshot after every state
// change. Returns an unsubscribe function. Delivery is synchronous on the
// mutating goroutine.
func (h *Holder) Subscribe(fn func(State)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Connect records a successful external wallet connection. An empty
// address is rejected to preserve the address-iff-connected invariant.
func (h *Holder) Connect(source Source, address string) {
	if address == "" {
		h.logger.Warn("ignoring connect with empty address", "source", source)
		return
	}

	h.mu.Lock()
	prev := h.state
	next := State{Connected: true, Source: source, Address: address}
	// A reconnect to the same wallet keeps its last-known balance;
	// switching wallets starts from zero until the next refresh.
	if prev.Connected && prev.Source == source && prev.Address == address {
		next.Balance = prev.Balance
	}
	h.state = next
	snapshot, subs := h.state, h.subscribersLocked()
	h.mu.Unlock()

	h.logger.Info("wallet connected", "source", source, "address", address)
	for _, fn := range subs {
		fn(snapshot)
	}
}

// Disconnect clears the connection and the last-known balance.
func (h *Holder) Disconnect() {
	h.mu.Lock()
	h.state = State{Source: SourceNone}
	snapshot, subs := h.state, h.subscribersLocked()
	h.mu.Unlock()

	h.logger.Info("wallet disconnected")
	for _, fn := range subs {
		fn(snapshot)
	}
}

// SetBalance records a freshly fetched native balance for the connected
// wallet. Ignored while disconnected.
func (h *Holder) SetBalance(balance float64) {
	h.mu.Lock()
	if !h.state.Connected {
		h.mu.Unlock()
		return
	}
	h.state.Balance = balance
	snapshot, subs := h.state, h.subscribersLocked()
	h.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (h *Holder) subscribersLocked() []func(State) {
	subs := make([]func(State), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	return subs
}
