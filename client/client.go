package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transaction is a tracked transaction as returned by the server.
type Transaction struct {
	Signature       string    `json:"signature"`
	Type            string    `json:"type"`
	Token           string    `json:"token"`
	Amount          float64   `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
	ContractAddress string    `json:"contractAddress,omitempty"`
}

// TransactionEvent is a transaction lifecycle event delivered over the SSE stream.
type TransactionEvent struct {
	Event         string  `json:"event"`
	WalletAddress string  `json:"wallet_address"`
	Signature     string  `json:"signature"`
	Type          string  `json:"type"`
	Token         string  `json:"token"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
}

// Balances is the resolved balance report for a wallet.
type Balances struct {
	Address  string             `json:"address"`
	Balances map[string]float64 `json:"balances"`
	Wallet   struct {
		Connected bool   `json:"connected"`
		Source    string `json:"source"`
	} `json:"wallet"`
}

// Client is the HTTP client for the goldium service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new goldium service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Track records a newly dispatched transaction in a wallet's history.
// Pass an empty signature to let the server assign a placeholder.
func (c *Client) Track(ctx context.Context, address, txType, token string, amount float64, signature string) (*Transaction, error) {
	reqBody := map[string]interface{}{
		"type":   txType,
		"token":  token,
		"amount": amount,
	}
	if signature != "" {
		reqBody["signature"] = signature
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/api/v1/wallets/%s/transactions", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.parseErrorResponse(resp)
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("transaction tracked", "address", address, "signature", tx.Signature)
	return &tx, nil
}

// ListTransactions retrieves a wallet's tracked transactions, newest first.
// txType filters by transaction type when non-empty; limit <= 0 uses the
// server default.
func (c *Client) ListTransactions(ctx context.Context, address, txType string, limit int) ([]Transaction, error) {
	u := fmt.Sprintf("%s/api/v1/wallets/%s/transactions", c.baseURL, url.PathEscape(address))

	query := url.Values{}
	if txType != "" {
		query.Set("type", txType)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var response struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Transactions, nil
}

// UpdateStatus moves a tracked transaction in address's history to its
// terminal status ("confirmed" or "failed").
func (c *Client) UpdateStatus(ctx context.Context, address, signature, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/api/v1/wallets/%s/transactions/%s", c.baseURL, url.PathEscape(address), url.PathEscape(signature))
	req, err := http.NewRequestWithContext(ctx, "PATCH", u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("transaction status updated", "signature", signature, "status", status)
	return nil
}

// Balance retrieves the resolved SOL and GOLD balances for a wallet.
func (c *Client) Balance(ctx context.Context, address string) (*Balances, error) {
	u := fmt.Sprintf("%s/api/v1/wallets/%s/balance", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var balances Balances
	if err := json.NewDecoder(resp.Body).Decode(&balances); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &balances, nil
}

// Await blocks until a transaction event matching the given predicate arrives
// on the wallet's SSE stream, the context is cancelled, or the stream closes.
// Typical use is waiting for a tracked transaction to reach its terminal
// status after UpdateStatus fires elsewhere.
func (c *Client) Await(ctx context.Context, address string, matcher func(*TransactionEvent) bool) (*TransactionEvent, error) {
	u := fmt.Sprintf("%s/api/v1/stream/transactions/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streaming connection, bypass the default client timeout
	streamClient := &http.Client{Timeout: 0}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to SSE endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	c.logger.Debug("awaiting transaction event", "address", address)

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent, currentData string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks the end of one SSE event
		if line == "" {
			if currentEvent == "transaction" && currentData != "" {
				var event TransactionEvent
				if err := json.Unmarshal([]byte(currentData), &event); err != nil {
					c.logger.Warn("failed to unmarshal SSE event", "error", err)
				} else if matcher(&event) {
					return &event, nil
				}
			}
			currentEvent = ""
			currentData = ""
			continue
		}

		if strings.HasPrefix(line, "event:") {
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			currentData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("error reading SSE stream: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("SSE stream closed before a matching event arrived")
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
