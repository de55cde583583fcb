package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goldium-labs/goldium/service/metrics"
)

const maxRPCBodySize = 5 << 20 // 5MB - getProgramAccounts responses can be large

// handleRPCProxy returns a handler that forwards opaque JSON-RPC requests to
// the configured Solana upstreams in order. The first upstream to answer
// with HTTP 200 wins and its body is returned verbatim; when every upstream
// fails, the client gets a 503 carrying the last upstream error.
// POST /api/v1/rpc
func handleRPCProxy(upstreams []string, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	client := &http.Client{}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodySize)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Debug("failed to read proxy request body", "error", err)
			writeError(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var lastErr string
		for _, upstream := range upstreams {
			respBody, status, err := forwardRPC(r.Context(), client, upstream, body, timeout)
			if err != nil {
				lastErr = err.Error()
				if m != nil {
					m.RecordProxyAttempt(upstream, "error")
				}
				logger.DebugContext(r.Context(), "RPC upstream failed",
					"upstream", upstream,
					"error", err,
				)
				continue
			}

			if status != http.StatusOK {
				lastErr = fmt.Sprintf("upstream returned status %d", status)
				if m != nil {
					m.RecordProxyAttempt(upstream, "non_200")
				}
				logger.DebugContext(r.Context(), "RPC upstream returned non-200",
					"upstream", upstream,
					"status", status,
				)
				continue
			}

			if m != nil {
				m.RecordProxyAttempt(upstream, "ok")
				m.RecordProxyRequest("ok")
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(respBody)
			return
		}

		if m != nil {
			m.RecordProxyRequest("exhausted")
		}
		logger.ErrorContext(r.Context(), "all RPC upstreams failed", "last_error", lastErr)

		writeJSON(w, map[string]string{
			"error":     "all RPC endpoints failed",
			"lastError": lastErr,
		}, http.StatusServiceUnavailable)
	})
}

// forwardRPC sends the request body to a single upstream and returns the
// response body and status code.
func forwardRPC(ctx context.Context, client *http.Client, upstream string, body []byte, timeout time.Duration) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstream, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRPCBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}
