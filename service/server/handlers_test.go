package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/goldium-labs/goldium/service/storage"
	"github.com/goldium-labs/goldium/service/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWalletAddr = "7L9Z3kN2QxGp9mF3R4tL1wE6uYnPsX7zVcBdHgMq2Aj8"
	testGoldMint   = "APkBg8kzMBpVKxvgrw67vkd5KuGWqSu2GVb19eK4pump"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	return tracker.New(storage.NewMemoryStore(), testGoldMint, testLogger())
}

func TestTrackTransaction(t *testing.T) {
	trk := newTestTracker(t)
	handler := handleTrackTransaction(trk, testLogger())

	t.Run("valid request creates pending record", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/"+testWalletAddr+"/transactions",
			strings.NewReader(`{"type":"swap","token":"GOLD","amount":100.5}`))
		req.SetPathValue("address", testWalletAddr)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp tracker.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tracker.TypeSwap, resp.Type)
		assert.Equal(t, tracker.TokenGOLD, resp.Token)
		assert.Equal(t, 100.5, resp.Amount)
		assert.Equal(t, tracker.StatusPending, resp.Status)
		assert.Equal(t, testGoldMint, resp.ContractAddress)
		assert.NotEmpty(t, resp.Signature)
	})

	t.Run("caller-provided signature is kept", func(t *testing.T) {
		sig := strings.Repeat("3", 88)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/"+testWalletAddr+"/transactions",
			strings.NewReader(`{"type":"send","token":"SOL","amount":1.2,"signature":"`+sig+`"}`))
		req.SetPathValue("address", testWalletAddr)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp tracker.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, sig, resp.Signature)
		assert.Empty(t, resp.ContractAddress)
	})
}

func TestTrackTransaction_PathologicalInput(t *testing.T) {
	trk := newTestTracker(t)
	handler := handleTrackTransaction(trk, testLogger())

	tests := []struct {
		name           string
		address        string
		body           string
		expectedStatus int
		checkError     func(t *testing.T, body string)
	}{
		{
			name:           "invalid address",
			address:        "not-base58-0OIl",
			body:           `{"type":"swap","token":"SOL","amount":1}`,
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid address format")
			},
		},
		{
			name:           "malformed JSON",
			address:        testWalletAddr,
			body:           `{"type":"swap","amount":`,
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid request body")
			},
		},
		{
			name:           "extremely large request body",
			address:        testWalletAddr,
			body:           `{"type":"swap","token":"SOL","amount":1,"signature":"` + strings.Repeat("A", 10*1024*1024) + `"}`, // 10MB
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "request body too large")
			},
		},
		{
			name:           "unknown type",
			address:        testWalletAddr,
			body:           `{"type":"teleport","token":"SOL","amount":1}`,
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid type")
			},
		},
		{
			name:           "unknown token",
			address:        testWalletAddr,
			body:           `{"type":"swap","token":"USDC","amount":1}`,
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid token")
			},
		},
		{
			name:           "negative amount",
			address:        testWalletAddr,
			body:           `{"type":"swap","token":"SOL","amount":-5}`,
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "amount cannot be negative")
			},
		},
		{
			name:           "non-base58 signature",
			address:        testWalletAddr,
			body:           `{"type":"swap","token":"SOL","amount":1,"signature":"sig with spaces"}`,
			expectedStatus: http.StatusBadRequest,
			checkError: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid signature")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/"+tt.address+"/transactions",
				strings.NewReader(tt.body))
			req.SetPathValue("address", tt.address)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.checkError != nil {
				tt.checkError(t, rec.Body.String())
			}
		})
	}
}

func TestTrackTransaction_ConcurrentWallets(t *testing.T) {
	trk := newTestTracker(t)
	handler := handleTrackTransaction(trk, testLogger())

	walletA := testWalletAddr
	walletB := strings.Repeat("9", 44)

	// Interleaved requests for two wallets must never land a record in
	// the other wallet's history.
	const perWallet = 25
	var wg sync.WaitGroup
	post := func(address, body string) {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/"+address+"/transactions",
			strings.NewReader(body))
		req.SetPathValue("address", address)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	wg.Add(2 * perWallet)
	for i := 0; i < perWallet; i++ {
		go post(walletA, `{"type":"swap","token":"SOL","amount":1}`)
		go post(walletB, `{"type":"send","token":"SOL","amount":2}`)
	}
	wg.Wait()

	recordsA := trk.RecentFor(context.Background(), walletA, perWallet*2)
	require.Len(t, recordsA, perWallet)
	for _, rec := range recordsA {
		assert.Equal(t, 1.0, rec.Amount)
		assert.Equal(t, tracker.TypeSwap, rec.Type)
	}

	recordsB := trk.RecentFor(context.Background(), walletB, perWallet*2)
	require.Len(t, recordsB, perWallet)
	for _, rec := range recordsB {
		assert.Equal(t, 2.0, rec.Amount)
		assert.Equal(t, tracker.TypeSend, rec.Type)
	}
}

func TestHealth(t *testing.T) {
	trk := newTestTracker(t)
	trk.SetActiveWallet(context.Background(), testWalletAddr)
	handler := handleHealth(trk, true, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status       string `json:"status"`
		ActiveWallet string `json:"activeWallet"`
		Streaming    bool   `json:"streaming"`
		Metrics      bool   `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, testWalletAddr, resp.ActiveWallet)
	assert.True(t, resp.Streaming)
	assert.False(t, resp.Metrics)
}

func TestListTransactions(t *testing.T) {
	trk := newTestTracker(t)
	trk.SetActiveWallet(context.Background(), testWalletAddr)
	trk.Track(context.Background(), tracker.TrackParams{Type: tracker.TypeSwap, Token: tracker.TokenGOLD, Amount: 10})
	trk.Track(context.Background(), tracker.TrackParams{Type: tracker.TypeSend, Token: tracker.TokenSOL, Amount: 1})
	trk.Track(context.Background(), tracker.TrackParams{Type: tracker.TypeSwap, Token: tracker.TokenGOLD, Amount: 20})

	handler := handleListTransactions(trk, testLogger())

	doList := func(t *testing.T, address, query string) (int, []byte) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+address+"/transactions"+query, nil)
		req.SetPathValue("address", address)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code, rec.Body.Bytes()
	}

	decodeRecords := func(t *testing.T, body []byte) []tracker.Record {
		t.Helper()
		var resp struct {
			Transactions []tracker.Record `json:"transactions"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		return resp.Transactions
	}

	t.Run("lists newest first", func(t *testing.T) {
		code, body := doList(t, testWalletAddr, "")
		require.Equal(t, http.StatusOK, code)

		records := decodeRecords(t, body)
		require.Len(t, records, 3)
		assert.Equal(t, 20.0, records[0].Amount)
		assert.Equal(t, 10.0, records[2].Amount)
	})

	t.Run("respects limit", func(t *testing.T) {
		code, body := doList(t, testWalletAddr, "?limit=2")
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, decodeRecords(t, body), 2)
	})

	t.Run("filters by type", func(t *testing.T) {
		code, body := doList(t, testWalletAddr, "?type=swap")
		require.Equal(t, http.StatusOK, code)

		records := decodeRecords(t, body)
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, tracker.TypeSwap, rec.Type)
		}
	})

	t.Run("rejects invalid type filter", func(t *testing.T) {
		code, _ := doList(t, testWalletAddr, "?type=teleport")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects invalid limit", func(t *testing.T) {
		code, _ := doList(t, testWalletAddr, "?limit=zero")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown wallet returns empty list", func(t *testing.T) {
		other := strings.Repeat("9", 44)
		code, body := doList(t, other, "")
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, decodeRecords(t, body))
	})
}

func TestUpdateTransactionStatus(t *testing.T) {
	trk := newTestTracker(t)
	trk.SetActiveWallet(context.Background(), testWalletAddr)
	tracked := trk.Track(context.Background(), tracker.TrackParams{Type: tracker.TypeSwap, Token: tracker.TokenSOL, Amount: 1})

	handler := handleUpdateTransactionStatus(trk, testLogger())

	doPatch := func(t *testing.T, address, signature, body string) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodPatch,
			"/api/v1/wallets/"+url.PathEscape(address)+"/transactions/"+url.PathEscape(signature),
			strings.NewReader(body))
		req.SetPathValue("address", address)
		req.SetPathValue("signature", signature)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("confirms a pending transaction", func(t *testing.T) {
		code := doPatch(t, testWalletAddr, tracked.Signature, `{"status":"confirmed"}`)
		require.Equal(t, http.StatusNoContent, code)

		records := trk.RecentFor(context.Background(), testWalletAddr, 1)
		require.Len(t, records, 1)
		assert.Equal(t, tracker.StatusConfirmed, records[0].Status)
	})

	t.Run("updates the named wallet even when another partition is active", func(t *testing.T) {
		other := strings.Repeat("9", 44)
		pending := trk.TrackFor(context.Background(), testWalletAddr,
			tracker.TrackParams{Type: tracker.TypeSend, Token: tracker.TokenSOL, Amount: 2})

		// Leave a different partition active before the PATCH arrives.
		trk.SetActiveWallet(context.Background(), other)

		code := doPatch(t, testWalletAddr, pending.Signature, `{"status":"failed"}`)
		require.Equal(t, http.StatusNoContent, code)

		records := trk.RecentFor(context.Background(), testWalletAddr, 1)
		require.Len(t, records, 1)
		assert.Equal(t, pending.Signature, records[0].Signature)
		assert.Equal(t, tracker.StatusFailed, records[0].Status)
	})

	t.Run("unknown signature is accepted silently", func(t *testing.T) {
		code := doPatch(t, testWalletAddr, strings.Repeat("5", 88), `{"status":"confirmed"}`)
		assert.Equal(t, http.StatusNoContent, code)
	})

	t.Run("rejects invalid target status", func(t *testing.T) {
		code := doPatch(t, testWalletAddr, tracked.Signature, `{"status":"pending"}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects malformed address", func(t *testing.T) {
		code := doPatch(t, "not base58!", tracked.Signature, `{"status":"confirmed"}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects malformed signature", func(t *testing.T) {
		code := doPatch(t, testWalletAddr, "not base58!", `{"status":"confirmed"}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		code := doPatch(t, testWalletAddr, tracked.Signature, `{"status":`)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid mainnet address", testWalletAddr, false},
		{"valid mint address", testGoldMint, false},
		{"empty", "", true},
		{"too long", strings.Repeat("A", 101), true},
		{"contains zero", "0abc", true},
		{"contains control char", "abc\x01def", true},
		{"contains space", "abc def", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
