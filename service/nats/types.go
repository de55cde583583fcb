package nats

import (
	"time"

	"github.com/goldium-labs/goldium/service/tracker"
)

// TransactionEvent is a tracker lifecycle event published to NATS.
// It goes to the subject "txns.{wallet_address}" in JetStream.
type TransactionEvent struct {
	// Event identifies which lifecycle step this is: "tracked" when a
	// record is created, "status_changed" on a terminal transition.
	Event string `json:"event"`

	// Wallet the record belongs to.
	WalletAddress string `json:"wallet_address"`

	// Record fields, mirroring the tracker's persisted layout.
	Signature       string    `json:"signature"`
	Type            string    `json:"type"`
	Token           string    `json:"token"`
	Amount          float64   `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
	ContractAddress string    `json:"contract_address,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromTrackerEvent converts a tracker event to a TransactionEvent for publishing.
func FromTrackerEvent(ev tracker.Event) *TransactionEvent {
	return &TransactionEvent{
		Event:           string(ev.Kind),
		WalletAddress:   ev.WalletAddress,
		Signature:       ev.Record.Signature,
		Type:            string(ev.Record.Type),
		Token:           string(ev.Record.Token),
		Amount:          ev.Record.Amount,
		Timestamp:       ev.Record.Timestamp,
		Status:          string(ev.Record.Status),
		ContractAddress: ev.Record.ContractAddress,
		PublishedAt:     time.Now().UTC(),
	}
}
