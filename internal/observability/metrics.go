// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingester metrics
	SignaturesDetected  prometheus.Counter
	SignaturesPublished prometheus.Counter
	FailedTxSkipped     prometheus.Counter
	WSReconnects        prometheus.Counter

	// Worker metrics
	TransactionsProcessed *prometheus.CounterVec
	TradesParsed          *prometheus.CounterVec
	TokensCreated         prometheus.Counter
	ProcessingErrors      *prometheus.CounterVec
	InFlightWorkers       prometheus.Gauge
	HighestSlotSeen       prometheus.Gauge

	// Resolver metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCRetries     prometheus.Counter
	TxNotFound     prometheus.Counter
	ProcessingLag  prometheus.Histogram

	// Price oracle metrics
	PriceFetches    *prometheus.CounterVec
	PriceCacheHits  prometheus.Counter
	CurrentSolPrice prometheus.Gauge

	// Database metrics
	DBQueryErrors *prometheus.CounterVec

	// Health metrics
	LastProcessedAt prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pumpfun_indexer"
	}

	return &Metrics{
		// Ingester metrics
		SignaturesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingester",
			Name:      "signatures_detected_total",
			Help:      "Total number of program log notifications received",
		}),
		SignaturesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingester",
			Name:      "signatures_published_total",
			Help:      "Total number of signatures published to the bus",
		}),
		FailedTxSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingester",
			Name:      "failed_tx_skipped_total",
			Help:      "Total number of failed transactions dropped before publish",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingester",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		// Worker metrics
		TransactionsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "transactions_processed_total",
			Help:      "Total number of transactions processed by outcome",
		}, []string{"outcome"}),
		TradesParsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "trades_parsed_total",
			Help:      "Total number of trades parsed by side",
		}, []string{"side"}),
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tokens_created_total",
			Help:      "Total number of token creations detected",
		}),
		ProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "processing_errors_total",
			Help:      "Total number of processing errors by stage",
		}, []string{"stage"}),
		InFlightWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "in_flight",
			Help:      "Number of transactions currently being processed",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		// Resolver metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_retries_total",
			Help:      "Total number of RPC retry attempts",
		}),
		TxNotFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "tx_not_found_total",
			Help:      "Total number of transactions unresolved after all retries",
		}),
		ProcessingLag: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "processing_lag_seconds",
			Help:      "Delay between block time and processing time",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		// Price oracle metrics
		PriceFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "fetches_total",
			Help:      "Total number of oracle fetches by status",
		}, []string{"status"}),
		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "cache_hits_total",
			Help:      "Total number of price reads served from cache",
		}),
		CurrentSolPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "sol_usd",
			Help:      "Last observed SOL/USD price",
		}),

		// Database metrics
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastProcessedAt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_processed_timestamp",
			Help:      "Unix timestamp of the last successfully processed transaction",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignatureDetected increments the detected counter.
func RecordSignatureDetected() {
	DefaultMetrics.SignaturesDetected.Inc()
}

// RecordSignaturePublished increments the published counter.
func RecordSignaturePublished() {
	DefaultMetrics.SignaturesPublished.Inc()
}

// RecordFailedTxSkipped increments the skipped counter.
func RecordFailedTxSkipped() {
	DefaultMetrics.FailedTxSkipped.Inc()
}

// RecordProcessed records a processed transaction outcome.
func RecordProcessed(outcome string) {
	DefaultMetrics.TransactionsProcessed.WithLabelValues(outcome).Inc()
}

// RecordTradeParsed records a parsed trade by side.
func RecordTradeParsed(side string) {
	DefaultMetrics.TradesParsed.WithLabelValues(side).Inc()
}

// RecordProcessingError records a processing error for a pipeline stage.
func RecordProcessingError(stage string) {
	DefaultMetrics.ProcessingErrors.WithLabelValues(stage).Inc()
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordSolPrice updates the SOL/USD gauge.
func RecordSolPrice(usd float64) {
	DefaultMetrics.CurrentSolPrice.Set(usd)
}
