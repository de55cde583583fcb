package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/goldium-labs/goldium/service/balance"
	"github.com/goldium-labs/goldium/service/tracker"
	"github.com/goldium-labs/goldium/service/wallet"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for transaction tracking
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// handleTrackTransaction returns a handler that records a newly dispatched
// transaction in the wallet's history.
// POST /api/v1/wallets/{address}/transactions
func handleTrackTransaction(trk *tracker.Tracker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		// Validate address format
		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Type      string  `json:"type"`
			Token     string  `json:"token"`
			Amount    float64 `json:"amount"`
			Signature string  `json:"signature"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode track request", "error", err)
			// Check if error is due to body size limit
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if !tracker.ValidType(tracker.Type(req.Type)) {
			writeError(w, "invalid type: must be one of 'swap', 'send', 'stake', 'unstake', 'mint'", http.StatusBadRequest)
			return
		}

		if err := validateToken(req.Token); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Amount < 0 {
			writeError(w, "amount cannot be negative", http.StatusBadRequest)
			return
		}

		if req.Signature != "" {
			if err := validateAddress(req.Signature); err != nil {
				writeError(w, "invalid signature: must contain only valid base58 characters", http.StatusBadRequest)
				return
			}
		}

		rec := trk.TrackFor(r.Context(), address, tracker.TrackParams{
			Type:      tracker.Type(req.Type),
			Token:     tracker.Token(req.Token),
			Amount:    req.Amount,
			Signature: req.Signature,
		})

		logger.Debug("transaction tracked via API",
			"wallet", address,
			"signature", rec.Signature,
			"type", rec.Type,
		)

		writeJSON(w, rec, http.StatusCreated)
	})
}

// handleListTransactions returns a handler that lists a wallet's tracked
// transactions, newest first.
// GET /api/v1/wallets/{address}/transactions?type={type}&limit={n}
func handleListTransactions(trk *tracker.Tracker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		query := r.URL.Query()

		// Validate address format
		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Parse limit (default 10, max = history cap)
		limit := tracker.DefaultRecentLimit
		if limitStr := query.Get("limit"); limitStr != "" {
			var parsed int
			if _, err := fmt.Sscanf(limitStr, "%d", &parsed); err != nil {
				writeError(w, "invalid limit parameter: must be an integer", http.StatusBadRequest)
				return
			}
			if parsed < 1 {
				writeError(w, "limit must be at least 1", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		// Optional type filter
		typeFilter := query.Get("type")
		if typeFilter != "" && !tracker.ValidType(tracker.Type(typeFilter)) {
			writeError(w, "invalid type: must be one of 'swap', 'send', 'stake', 'unstake', 'mint'", http.StatusBadRequest)
			return
		}

		var records []tracker.Record
		if typeFilter != "" {
			records = trk.ByTypeFor(r.Context(), address, tracker.Type(typeFilter))
			if len(records) > limit {
				records = records[:limit]
			}
		} else {
			records = trk.RecentFor(r.Context(), address, limit)
		}

		logger.Debug("transactions listed", "wallet", address, "count", len(records))

		writeJSON(w, map[string]interface{}{
			"address":      address,
			"transactions": records,
			"count":        len(records),
		}, http.StatusOK)
	})
}

// handleUpdateTransactionStatus returns a handler that moves a pending
// transaction to its terminal status within the wallet's partition.
// PATCH /api/v1/wallets/{address}/transactions/{signature}
func handleUpdateTransactionStatus(trk *tracker.Tracker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		signature := r.PathValue("signature")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateAddress(signature); err != nil {
			logger.Debug("invalid signature", "signature", signature, "error", err)
			writeError(w, "invalid signature: must contain only valid base58 characters", http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode status update request", "error", err)
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		status := tracker.Status(req.Status)
		if status != tracker.StatusConfirmed && status != tracker.StatusFailed {
			writeError(w, "invalid status: must be 'confirmed' or 'failed'", http.StatusBadRequest)
			return
		}

		// Unknown signatures are a silent no-op in the tracker; the API
		// accepts the update either way so retries stay idempotent.
		trk.UpdateStatusFor(r.Context(), address, signature, status)

		logger.Debug("transaction status update applied", "wallet", address, "signature", signature, "status", status)
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleGetBalance returns a handler that reports the resolved balances for
// a wallet along with the wallet connection state driving the resolution.
// GET /api/v1/wallets/{address}/balance
func handleGetBalance(resolver *balance.Resolver, manager *wallet.Manager, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		state := manager.Holder().State()

		resp := map[string]interface{}{
			"address": address,
			"balances": map[string]float64{
				string(balance.AssetSOL):  resolver.Resolve(balance.AssetSOL),
				string(balance.AssetGOLD): resolver.Resolve(balance.AssetGOLD),
			},
			"wallet": map[string]interface{}{
				"connected": state.Connected,
				"source":    state.Source,
			},
		}

		logger.Debug("balance resolved", "address", address, "connected", state.Connected)
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleHealth returns a handler reporting service readiness: which
// optional subsystems are wired and which wallet partition is active.
// GET /health
func handleHealth(trk *tracker.Tracker, streaming, metricsEnabled bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status":       "ok",
			"activeWallet": trk.ActiveWallet(),
			"streaming":    streaming,
			"metrics":      metricsEnabled,
		}, http.StatusOK)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	// Validate against Solana base58 format
	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	return nil
}

// validateToken validates a token parameter.
func validateToken(token string) error {
	if token == "" {
		return errorf("token is required")
	}

	if token != string(tracker.TokenSOL) && token != string(tracker.TokenGOLD) {
		return errorf("invalid token: must be 'SOL' or 'GOLD'")
	}

	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
