package tracker

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Type identifies the kind of operation a record describes.
type Type string

const (
	TypeSwap    Type = "swap"
	TypeSend    Type = "send"
	TypeStake   Type = "stake"
	TypeUnstake Type = "unstake"
	TypeMint    Type = "mint"
)

// ValidType reports whether t is one of the supported operation types.
func ValidType(t Type) bool {
	switch t {
	case TypeSwap, TypeSend, TypeStake, TypeUnstake, TypeMint:
		return true
	}
	return false
}

// Token identifies the asset a record involves.
type Token string

const (
	TokenSOL  Token = "SOL"
	TokenGOLD Token = "GOLD"
)

// Status is the lifecycle state of a record. Once a record reaches
// StatusConfirmed or StatusFailed it never goes back to StatusPending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Record is one tracked transaction. The JSON field names are the persisted
// layout and must not change: stored logs from older runs are read back
// through this struct.
type Record struct {
	Signature       string    `json:"signature"`
	Type            Type      `json:"type"`
	Token           Token     `json:"token"`
	Amount          float64   `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
	Status          Status    `json:"status"`
	ContractAddress string    `json:"contractAddress,omitempty"`
}

// TrackParams contains the parameters for tracking a new transaction.
type TrackParams struct {
	Type   Type
	Token  Token
	Amount float64

	// Signature is the ledger-assigned signature, if the caller already
	// has one. When empty the tracker generates a local placeholder that
	// can later be replaced via AdoptSignature.
	Signature string
}

const (
	base58Alphabet    = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	placeholderSigLen = 88
)

// newPlaceholderSignature generates a display-compatible stand-in signature
// for operations tracked before the ledger assigned a real one. The length
// and alphabet match real base58 transaction signatures.
func newPlaceholderSignature() string {
	buf := make([]byte, placeholderSigLen)
	max := big.NewInt(int64(len(base58Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to a time-derived index rather than panicking.
			buf[i] = base58Alphabet[time.Now().UnixNano()%int64(len(base58Alphabet))]
			continue
		}
		buf[i] = base58Alphabet[n.Int64()]
	}
	return string(buf)
}
