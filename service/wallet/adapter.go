package wallet

import "context"

// Operation describes a transaction for the external wallet to sign and
// submit. The adapter treats it as opaque beyond what it needs to build
// the underlying ledger transaction.
type Operation struct {
	Type      string  `json:"type"`
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`
	Recipient string  `json:"recipient,omitempty"`
}

// Result is the outcome of a sign-and-send request.
type Result struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Adapter is the external wallet capability. Implementations wrap a
// browser-extension bridge or a remote signer; this package never inspects
// keys or validates signatures.
type Adapter interface {
	// Kind identifies the wallet this adapter drives.
	Kind() Source

	// Connect establishes the session and returns the wallet's address.
	Connect(ctx context.Context) (string, error)

	// Disconnect tears down the session.
	Disconnect(ctx context.Context) error

	// GetNativeBalance fetches the wallet's native-asset balance in
	// whole tokens.
	GetNativeBalance(ctx context.Context, address string) (float64, error)

	// SignAndSend signs and submits the operation, returning the
	// ledger-assigned signature on success.
	SignAndSend(ctx context.Context, op Operation) (Result, error)
}
