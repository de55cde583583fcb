package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// RPC Proxy Metrics
	proxyUpstreamAttempts *prometheus.CounterVec
	proxyRequestsTotal    *prometheus.CounterVec

	// Transaction Tracker Metrics
	transactionsTrackedTotal *prometheus.CounterVec
	transactionStatusTotal   *prometheus.CounterVec

	// Balance Resolver Metrics
	balanceRefreshesTotal  *prometheus.CounterVec
	balanceRefreshDuration *prometheus.HistogramVec
	resolvedBalance        *prometheus.GaugeVec

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// RPC Proxy Metrics
		proxyUpstreamAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpc_proxy_upstream_attempts_total",
				Help: "Total number of proxy forwarding attempts per upstream",
			},
			[]string{"upstream", "status"},
		),
		proxyRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpc_proxy_requests_total",
				Help: "Total number of proxied RPC requests by outcome",
			},
			[]string{"outcome"},
		),

		// Transaction Tracker Metrics
		transactionsTrackedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_tracked_total",
				Help: "Total number of transactions recorded by the tracker",
			},
			[]string{"type", "token"},
		),
		transactionStatusTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_status_updates_total",
				Help: "Total number of tracker status transitions",
			},
			[]string{"status"},
		),

		// Balance Resolver Metrics
		balanceRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balance_refreshes_total",
				Help: "Total number of balance source refreshes",
			},
			[]string{"source", "status"},
		),
		balanceRefreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "balance_refresh_duration_seconds",
				Help:    "Duration of balance source refreshes in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"source"},
		),
		resolvedBalance: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "resolved_balance",
				Help: "Most recently resolved balance per asset",
			},
			[]string{"asset"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
			[]string{"wallet_address"},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"wallet_address", "event_type"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Proxy metric helpers

// RecordProxyAttempt records one forwarding attempt against an upstream.
func (m *Metrics) RecordProxyAttempt(upstream, status string) {
	m.proxyUpstreamAttempts.WithLabelValues(upstream, status).Inc()
}

// RecordProxyRequest records the terminal outcome of a proxied request.
func (m *Metrics) RecordProxyRequest(outcome string) {
	m.proxyRequestsTotal.WithLabelValues(outcome).Inc()
}

// Tracker metric helpers

// RecordTransactionTracked records a newly tracked transaction.
func (m *Metrics) RecordTransactionTracked(txType, token string) {
	m.transactionsTrackedTotal.WithLabelValues(txType, token).Inc()
}

// RecordTransactionStatus records a status transition.
func (m *Metrics) RecordTransactionStatus(status string) {
	m.transactionStatusTotal.WithLabelValues(status).Inc()
}

// Balance resolver metric helpers

// RecordBalanceRefresh records a balance source refresh with duration.
func (m *Metrics) RecordBalanceRefresh(source, status string, duration float64) {
	m.balanceRefreshesTotal.WithLabelValues(source, status).Inc()
	m.balanceRefreshDuration.WithLabelValues(source).Observe(duration)
}

// SetResolvedBalance records the most recently resolved value for an asset.
func (m *Metrics) SetResolvedBalance(asset string, value float64) {
	m.resolvedBalance.WithLabelValues(asset).Set(value)
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := httpStatusClass(statusCode)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
}

// IncSSEConnections increments the active SSE connection gauge.
func (m *Metrics) IncSSEConnections(walletAddress string) {
	m.sseActiveConnections.WithLabelValues(walletAddress).Inc()
}

// DecSSEConnections decrements the active SSE connection gauge.
func (m *Metrics) DecSSEConnections(walletAddress string) {
	m.sseActiveConnections.WithLabelValues(walletAddress).Dec()
}

// RecordSSEEvent records an event sent to an SSE client.
func (m *Metrics) RecordSSEEvent(walletAddress, eventType string) {
	m.sseEventsSent.WithLabelValues(walletAddress, eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish with duration.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func httpStatusClass(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
