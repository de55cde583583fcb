package balance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/goldium-labs/goldium/service/metrics"
	"github.com/goldium-labs/goldium/service/wallet"
)

// Asset names a balance the resolver produces.
type Asset string

const (
	AssetSOL  Asset = "SOL"
	AssetGOLD Asset = "GOLD"
)

// DefaultRefreshInterval is the periodic re-fetch cadence for the
// balance sources.
const DefaultRefreshInterval = 10 * time.Second

// LocalSource is the self-contained wallet's balance feed.
type LocalSource interface {
	NativeBalance(ctx context.Context) (float64, error)
	TokenBalance(ctx context.Context) (float64, error)
}

// ExternalRefresher re-fetches the connected external wallet's balance
// into the wallet state holder. Implemented by wallet.Manager.
type ExternalRefresher interface {
	RefreshBalance(ctx context.Context) error
}

// Resolver computes one authoritative balance per asset from the external
// wallet state and the self-contained source.
//
// The precedence is deliberately asymmetric: the external wallet's reading
// wins only when it is connected, has an address, and shows a balance
// strictly greater than zero. A connected wallet showing zero is not
// trusted over a known local reading, so wallet-switch races never flash
// a bogus zero.
type Resolver struct {
	holder   *wallet.Holder
	local    LocalSource
	external ExternalRefresher
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu           sync.Mutex
	localSOL     float64
	localGOLD    float64
	lastResolved map[Asset]float64
	subs         map[int]func(Asset, float64)
	nextSub      int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithInterval overrides the periodic refresh cadence.
func WithInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a Resolver. external may be nil when no external wallet
// adapters are configured. The resolver subscribes to holder changes so
// connect, disconnect, and switch all re-evaluate immediately.
func New(holder *wallet.Holder, local LocalSource, external ExternalRefresher, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		holder:       holder,
		local:        local,
		external:     external,
		interval:     DefaultRefreshInterval,
		logger:       logger,
		lastResolved: make(map[Asset]float64),
		subs:         make(map[int]func(Asset, float64)),
	}
	for _, opt := range opts {
		opt(r)
	}
	holder.Subscribe(func(wallet.State) { r.recompute() })
	return r
}

// Subscribe registers fn to be called when a resolved value changes.
// Notification fires at most once per actual change, synchronously on the
// goroutine that performed the mutation. Returns an unsubscribe function.
func (r *Resolver) Subscribe(fn func(Asset, float64)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Resolve applies the precedence policy for the given asset.
// SOL consults both sources; GOLD uses only the self-contained source,
// since external wallets do not track the platform token here.
func (r *Resolver) Resolve(asset Asset) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(asset)
}

func (r *Resolver) resolveLocked(asset Asset) float64 {
	switch asset {
	case AssetSOL:
		state := r.holder.State()
		if state.Connected && state.Address != "" && state.Balance > 0 {
			return state.Balance
		}
		return r.localSOL
	case AssetGOLD:
		return r.localGOLD
	}
	return 0
}

// Refresh re-fetches all underlying sources. Safe to call concurrently
// with itself; the most recently completed fetch's value is retained.
// A failed fetch keeps the source's last successfully fetched value.
func (r *Resolver) Refresh(ctx context.Context) {
	if r.external != nil {
		// Errors are already logged and absorbed by the manager; the
		// holder keeps its last value.
		_ = r.external.RefreshBalance(ctx)
	}

	r.refreshLocal(ctx, "local_sol", r.local.NativeBalance, func(v float64) { r.localSOL = v })
	r.refreshLocal(ctx, "local_gold", r.local.TokenBalance, func(v float64) { r.localGOLD = v })

	r.recompute()
}

func (r *Resolver) refreshLocal(ctx context.Context, source string, fetch func(context.Context) (float64, error), apply func(float64)) {
	start := time.Now()
	value, err := fetch(ctx)
	status := "success"
	if err != nil {
		status = "error"
		r.logger.Warn("balance fetch failed, keeping last value", "source", source, "error", err)
	} else {
		r.mu.Lock()
		apply(value)
		r.mu.Unlock()
	}
	if r.metrics != nil {
		r.metrics.RecordBalanceRefresh(source, status, time.Since(start).Seconds())
	}
}

// recompute resolves every asset and notifies subscribers whose values
// actually changed.
func (r *Resolver) recompute() {
	type change struct {
		asset Asset
		value float64
	}

	r.mu.Lock()
	var changes []change
	for _, asset := range []Asset{AssetSOL, AssetGOLD} {
		value := r.resolveLocked(asset)
		if last, ok := r.lastResolved[asset]; !ok || last != value {
			r.lastResolved[asset] = value
			changes = append(changes, change{asset, value})
		}
	}
	subs := make([]func(Asset, float64), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, c := range changes {
		if r.metrics != nil {
			r.metrics.SetResolvedBalance(string(c.asset), c.value)
		}
		for _, fn := range subs {
			fn(c.asset, c.value)
		}
	}
}

// Run refreshes once immediately, then on every tick until ctx is
// cancelled. The local sources are re-fetched on every tick; the external
// wallet is only re-fetched while one is connected. Intended to be run on
// its own goroutine.
func (r *Resolver) Run(ctx context.Context) {
	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshTick(ctx)
		}
	}
}

// refreshTick is the periodic variant of Refresh: local sources always,
// the external wallet only while connected.
func (r *Resolver) refreshTick(ctx context.Context) {
	if r.external != nil && r.holder.State().Connected {
		_ = r.external.RefreshBalance(ctx)
	}

	r.refreshLocal(ctx, "local_sol", r.local.NativeBalance, func(v float64) { r.localSOL = v })
	r.refreshLocal(ctx, "local_gold", r.local.TokenBalance, func(v float64) { r.localGOLD = v })

	r.recompute()
}
