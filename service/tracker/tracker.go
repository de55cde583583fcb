package tracker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/goldium-labs/goldium/service/storage"
)

// ConfirmPolicy controls when a tracked record reaches StatusConfirmed.
type ConfirmPolicy string

const (
	// ConfirmAtFinality leaves new records pending until the wallet
	// capability reports finality via UpdateStatus. This is the default.
	ConfirmAtFinality ConfirmPolicy = "finality"

	// ConfirmAtSubmit marks records confirmed the moment they are
	// tracked. Opt-in, intended for demos and tests.
	ConfirmAtSubmit ConfirmPolicy = "submit"
)

// DefaultHistoryLimit is the per-wallet record cap.
const DefaultHistoryLimit = 50

// DefaultRecentLimit is the default page size for Recent.
const DefaultRecentLimit = 10

const keyPrefix = "txlog:"

// EventKind distinguishes tracker notifications.
type EventKind string

const (
	EventTracked       EventKind = "tracked"
	EventStatusChanged EventKind = "status_changed"
)

// Event is delivered synchronously to subscribers after each mutation.
type Event struct {
	Kind          EventKind
	WalletAddress string
	Record        Record
}

// Subscriber receives tracker events.
type Subscriber func(Event)

// Tracker is a durable, ordered, bounded record of transaction attempts,
// partitioned per wallet address. All methods are safe for concurrent use;
// mutations on the same tracker are strictly ordered by call order.
type Tracker struct {
	store    storage.Store
	logger   *slog.Logger
	limit    int
	policy   ConfirmPolicy
	goldMint string

	mu      sync.Mutex
	address string
	records []*Record
	subs    map[int]Subscriber
	nextSub int

	// now is swappable in tests.
	now func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHistoryLimit overrides the per-wallet record cap.
func WithHistoryLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithConfirmPolicy sets when records reach StatusConfirmed.
func WithConfirmPolicy(p ConfirmPolicy) Option {
	return func(t *Tracker) {
		if p == ConfirmAtSubmit || p == ConfirmAtFinality {
			t.policy = p
		}
	}
}

// WithClock overrides the tracker's time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a Tracker persisting through store. goldMint is the platform
// token's mint address, attached to GOLD records as their contract address.
func New(store storage.Store, goldMint string, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		logger:   logger,
		limit:    DefaultHistoryLimit,
		policy:   ConfirmAtFinality,
		goldMint: goldMint,
		subs:     make(map[int]Subscriber),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe registers fn for mutation events and returns an unsubscribe
// function. Events are delivered synchronously on the mutating goroutine.
func (t *Tracker) Subscribe(fn Subscriber) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// ActiveWallet returns the address whose partition is currently loaded.
func (t *Tracker) ActiveWallet() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address
}

// SetActiveWallet switches which partition subsequent operations read and
// write, reloading that partition from storage. A corrupt or missing
// partition loads as empty; partitions are never merged.
//
// This is the single-wallet entry point. Callers serving multiple wallets
// concurrently must use the address-scoped operations (TrackFor,
// UpdateStatusFor, RecentFor, ByTypeFor) instead: checking ActiveWallet
// and then calling SetActiveWallet leaves a window in which another
// goroutine can switch the partition underneath the caller.
func (t *Tracker) SetActiveWallet(ctx context.Context, address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked(ctx, address)
}

// activateLocked switches to address's partition unless it is already
// active. Callers hold t.mu.
func (t *Tracker) activateLocked(ctx context.Context, address string) {
	if t.address == address {
		return
	}
	t.loadLocked(ctx, address)
}

// loadLocked replaces the active partition with address's persisted one.
// Callers hold t.mu.
func (t *Tracker) loadLocked(ctx context.Context, address string) {
	t.address = address
	t.records = nil

	raw, ok, err := t.store.Get(ctx, keyPrefix+address)
	if err != nil {
		t.logger.Error("failed to load transaction history", "wallet", address, "error", err)
		return
	}
	if !ok {
		return
	}

	var records []*Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		t.logger.Error("corrupt transaction history, starting empty", "wallet", address, "error", err)
		return
	}
	t.records = records
	t.logger.Debug("loaded transaction history", "wallet", address, "count", len(records))
}

// Track records a newly dispatched operation. The record starts pending
// (or confirmed under ConfirmAtSubmit), is inserted at the head of the
// active partition, and the partition is persisted before Track returns.
// Persistence is best-effort: a storage failure is logged and the
// in-memory record is still returned.
func (t *Tracker) Track(ctx context.Context, params TrackParams) *Record {
	t.mu.Lock()
	rec, event, subs := t.trackLocked(ctx, params)
	t.mu.Unlock()

	t.logger.Info("transaction tracked",
		"signature", rec.Signature,
		"type", rec.Type,
		"token", rec.Token,
		"amount", rec.Amount,
		"status", rec.Status,
	)
	notify(subs, event)
	return rec
}

// TrackFor records params in address's partition. Partition selection and
// insert happen under one critical section, so concurrent callers for
// different wallets cannot interleave a switch between the two.
func (t *Tracker) TrackFor(ctx context.Context, address string, params TrackParams) *Record {
	t.mu.Lock()
	t.activateLocked(ctx, address)
	rec, event, subs := t.trackLocked(ctx, params)
	t.mu.Unlock()

	t.logger.Info("transaction tracked",
		"wallet", address,
		"signature", rec.Signature,
		"type", rec.Type,
		"token", rec.Token,
		"amount", rec.Amount,
		"status", rec.Status,
	)
	notify(subs, event)
	return rec
}

func (t *Tracker) trackLocked(ctx context.Context, params TrackParams) (*Record, Event, []Subscriber) {
	sig := params.Signature
	if sig == "" {
		sig = newPlaceholderSignature()
	}

	rec := &Record{
		Signature: sig,
		Type:      params.Type,
		Token:     params.Token,
		Amount:    params.Amount,
		Timestamp: t.now().UTC(),
		Status:    StatusPending,
	}
	if params.Token == TokenGOLD {
		rec.ContractAddress = t.goldMint
	}
	if t.policy == ConfirmAtSubmit {
		rec.Status = StatusConfirmed
	}

	t.records = append([]*Record{rec}, t.records...)
	if len(t.records) > t.limit {
		t.records = t.records[:t.limit]
	}

	t.persistLocked(ctx)

	event := Event{Kind: EventTracked, WalletAddress: t.address, Record: *rec}
	return rec, event, t.subscribersLocked()
}

// UpdateStatus moves the record with the given signature from pending to
// newStatus. Unknown signatures and invalid target statuses are ignored:
// a status update racing ahead of or after eviction is tolerated silently,
// and terminal statuses never revert.
func (t *Tracker) UpdateStatus(ctx context.Context, signature string, newStatus Status) {
	if newStatus != StatusConfirmed && newStatus != StatusFailed {
		t.logger.Debug("ignoring invalid status update", "signature", signature, "status", newStatus)
		return
	}

	t.mu.Lock()
	event, subs, ok := t.updateStatusLocked(ctx, signature, newStatus)
	t.mu.Unlock()
	if !ok {
		return
	}

	t.logger.Info("transaction status updated", "signature", signature, "status", newStatus)
	notify(subs, event)
}

// UpdateStatusFor applies a status update within address's partition,
// selecting the partition and mutating it under one critical section.
func (t *Tracker) UpdateStatusFor(ctx context.Context, address, signature string, newStatus Status) {
	if newStatus != StatusConfirmed && newStatus != StatusFailed {
		t.logger.Debug("ignoring invalid status update", "signature", signature, "status", newStatus)
		return
	}

	t.mu.Lock()
	t.activateLocked(ctx, address)
	event, subs, ok := t.updateStatusLocked(ctx, signature, newStatus)
	t.mu.Unlock()
	if !ok {
		return
	}

	t.logger.Info("transaction status updated", "wallet", address, "signature", signature, "status", newStatus)
	notify(subs, event)
}

func (t *Tracker) updateStatusLocked(ctx context.Context, signature string, newStatus Status) (Event, []Subscriber, bool) {
	var updated *Record
	for _, rec := range t.records {
		if rec.Signature == signature {
			if rec.Status == StatusPending {
				rec.Status = newStatus
				updated = rec
			}
			break
		}
	}
	if updated == nil {
		return Event{}, nil, false
	}

	t.persistLocked(ctx)

	event := Event{Kind: EventStatusChanged, WalletAddress: t.address, Record: *updated}
	return event, t.subscribersLocked(), true
}

// AdoptSignature replaces a placeholder signature with the ledger-assigned
// one once the external capability reports it. Unknown placeholders are
// ignored.
func (t *Tracker) AdoptSignature(ctx context.Context, placeholder, signature string) {
	if signature == "" || placeholder == signature {
		return
	}

	t.mu.Lock()
	var updated *Record
	for _, rec := range t.records {
		if rec.Signature == placeholder {
			rec.Signature = signature
			updated = rec
			break
		}
	}
	if updated == nil {
		t.mu.Unlock()
		return
	}

	t.persistLocked(ctx)

	event := Event{Kind: EventTracked, WalletAddress: t.address, Record: *updated}
	subs := t.subscribersLocked()
	t.mu.Unlock()

	t.logger.Debug("adopted ledger signature", "placeholder", placeholder, "signature", signature)
	notify(subs, event)
}

// Recent returns up to limit records from the active partition, newest
// first. A non-positive limit uses DefaultRecentLimit.
func (t *Tracker) Recent(limit int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recentLocked(limit)
}

// RecentFor selects address's partition and returns up to limit of its
// records, newest first, under one critical section.
func (t *Tracker) RecentFor(ctx context.Context, address string, limit int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activateLocked(ctx, address)
	return t.recentLocked(limit)
}

func (t *Tracker) recentLocked(limit int) []Record {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > len(t.records) {
		limit = len(t.records)
	}
	out := make([]Record, 0, limit)
	for _, rec := range t.records[:limit] {
		out = append(out, *rec)
	}
	return out
}

// ByType returns the active partition's records of the given type,
// preserving newest-first order.
func (t *Tracker) ByType(typ Type) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byTypeLocked(typ)
}

// ByTypeFor is ByType scoped to address's partition.
func (t *Tracker) ByTypeFor(ctx context.Context, address string, typ Type) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activateLocked(ctx, address)
	return t.byTypeLocked(typ)
}

func (t *Tracker) byTypeLocked(typ Type) []Record {
	var out []Record
	for _, rec := range t.records {
		if rec.Type == typ {
			out = append(out, *rec)
		}
	}
	return out
}

// ClearPartition wipes the active partition in memory and in storage.
// Call sites decide when a permanent disconnect warrants this; the tracker
// never clears on its own.
func (t *Tracker) ClearPartition(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = nil
	if err := t.store.Delete(ctx, keyPrefix+t.address); err != nil {
		t.logger.Error("failed to clear transaction history", "wallet", t.address, "error", err)
	}
}

// persistLocked writes the active partition to storage. Callers hold t.mu.
func (t *Tracker) persistLocked(ctx context.Context) {
	data, err := json.Marshal(t.records)
	if err != nil {
		t.logger.Error("failed to encode transaction history", "wallet", t.address, "error", err)
		return
	}
	if err := t.store.Set(ctx, keyPrefix+t.address, string(data)); err != nil {
		t.logger.Error("failed to persist transaction history", "wallet", t.address, "error", err)
	}
}

func (t *Tracker) subscribersLocked() []Subscriber {
	subs := make([]Subscriber, 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []Subscriber, event Event) {
	for _, fn := range subs {
		fn(event)
	}
}
