package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/wallets/wallet123/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, "swap", body["type"])
		assert.Equal(t, "GOLD", body["token"])
		assert.Equal(t, 100.5, body["amount"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Transaction{
			Signature:       "sig123",
			Type:            "swap",
			Token:           "GOLD",
			Amount:          100.5,
			Timestamp:       time.Now(),
			Status:          "pending",
			ContractAddress: "mint123",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	tx, err := client.Track(context.Background(), "wallet123", "swap", "GOLD", 100.5, "")
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, "sig123", tx.Signature)
	assert.Equal(t, "pending", tx.Status)
	assert.Equal(t, "mint123", tx.ContractAddress)
}

func TestTrack_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid type: must be one of 'swap', 'send', 'stake', 'unstake', 'mint'",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	tx, err := client.Track(context.Background(), "wallet123", "teleport", "SOL", 1, "")
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.Contains(t, err.Error(), "invalid type")
}

func TestListTransactions_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/wallets/wallet123/transactions", r.URL.Path)
		assert.Equal(t, "swap", r.URL.Query().Get("type"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"address": "wallet123",
			"transactions": []Transaction{
				{Signature: "sig2", Type: "swap", Token: "GOLD", Amount: 20, Status: "pending"},
				{Signature: "sig1", Type: "swap", Token: "GOLD", Amount: 10, Status: "confirmed"},
			},
			"count": 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txs, err := client.ListTransactions(context.Background(), "wallet123", "swap", 5)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "sig2", txs[0].Signature)
	assert.Equal(t, "sig1", txs[1].Signature)
}

func TestUpdateStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PATCH", r.Method)
		assert.Equal(t, "/api/v1/wallets/wallet123/transactions/sig123", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "confirmed", body["status"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.UpdateStatus(context.Background(), "wallet123", "sig123", "confirmed")
	assert.NoError(t, err)
}

func TestBalance_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/wallets/wallet123/balance", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"address": "wallet123",
			"balances": map[string]float64{
				"SOL":  3.2,
				"GOLD": 1500,
			},
			"wallet": map[string]interface{}{
				"connected": true,
				"source":    "phantom",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	balances, err := client.Balance(context.Background(), "wallet123")
	require.NoError(t, err)
	require.NotNil(t, balances)

	assert.Equal(t, 3.2, balances.Balances["SOL"])
	assert.Equal(t, 1500.0, balances.Balances["GOLD"])
	assert.True(t, balances.Wallet.Connected)
	assert.Equal(t, "phantom", balances.Wallet.Source)
}

func TestAwait_MatchingEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Contains(t, r.URL.Path, "/api/v1/stream/transactions/wallet123")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		require.True(t, ok, "ResponseWriter should support flushing")

		// Connection event first, like the real server
		w.Write([]byte("event: connected\ndata: {\"wallet\":\"wallet123\"}\n\n"))
		flusher.Flush()

		// Non-matching event
		ev1, _ := json.Marshal(TransactionEvent{
			Event:     "tracked",
			Signature: "sig456",
			Status:    "pending",
		})
		w.Write([]byte("event: transaction\ndata: " + string(ev1) + "\n\n"))
		flusher.Flush()

		// Matching event
		ev2, _ := json.Marshal(TransactionEvent{
			Event:     "status_changed",
			Signature: "sig123",
			Status:    "confirmed",
		})
		w.Write([]byte("event: transaction\ndata: " + string(ev2) + "\n\n"))
		flusher.Flush()
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event, err := client.Await(ctx, "wallet123", func(ev *TransactionEvent) bool {
		return ev.Signature == "sig123" && ev.Status == "confirmed"
	})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, "sig123", event.Signature)
	assert.Equal(t, "status_changed", event.Event)
}

func TestAwait_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		// Keep connection open but send nothing
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	event, err := client.Await(ctx, "wallet123", func(ev *TransactionEvent) bool { return true })
	require.Error(t, err)
	assert.Nil(t, event)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestAwait_StreamClosedWithoutMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")

		flusher := w.(http.Flusher)
		ev, _ := json.Marshal(TransactionEvent{Event: "tracked", Signature: "other", Status: "pending"})
		w.Write([]byte("event: transaction\ndata: " + string(ev) + "\n\n"))
		flusher.Flush()
		// Handler returns, closing the stream
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)

	event, err := client.Await(context.Background(), "wallet123", func(ev *TransactionEvent) bool {
		return ev.Signature == "never"
	})
	require.Error(t, err)
	assert.Nil(t, event)
	assert.Contains(t, err.Error(), "stream closed")
}
