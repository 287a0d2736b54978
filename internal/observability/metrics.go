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
	// Listener metrics
	NotificationsReceived prometheus.Counter
	EventsClassified      *prometheus.CounterVec
	EventsDecoded         prometheus.Counter
	DecodeErrors          *prometheus.CounterVec
	DuplicatesDropped     prometheus.Counter
	DispatchLatency       prometheus.Histogram

	// Trading metrics
	BuysSubmitted   prometheus.Counter
	BuyFailures     prometheus.Counter
	SellsSubmitted  prometheus.Counter
	SellFailures    prometheus.Counter
	TradesCompleted *prometheus.CounterVec
	OpenPositions   prometheus.Gauge
	TotalProfitLoss prometheus.Gauge
	PricePollErrors prometheus.Counter
	HoldDuration    prometheus.Histogram

	// Health metrics
	LastEventDetected prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "migration_bot"
	}

	return &Metrics{
		// Listener metrics
		NotificationsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received",
		}),
		EventsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "events_classified_total",
			Help:      "Total number of classified notifications by class",
		}, []string{"class"}),
		EventsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "events_decoded_total",
			Help:      "Total number of migration events decoded",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "decode_errors_total",
			Help:      "Total number of payload decode errors by type",
		}, []string{"error_type"}),
		DuplicatesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "duplicates_dropped_total",
			Help:      "Total number of duplicate deliveries dropped",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency from notification receipt to engine dispatch",
			Buckets:   prometheus.DefBuckets,
		}),

		// Trading metrics
		BuysSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "buys_submitted_total",
			Help:      "Total number of successful buy submissions",
		}),
		BuyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "buy_failures_total",
			Help:      "Total number of failed buy attempts",
		}),
		SellsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "sells_submitted_total",
			Help:      "Total number of successful sell submissions",
		}),
		SellFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "sell_failures_total",
			Help:      "Total number of failed sell attempts",
		}),
		TradesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_completed_total",
			Help:      "Total number of completed trades by outcome",
		}, []string{"outcome"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		TotalProfitLoss: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "total_profit_loss_ratio",
			Help:      "Cumulative realized profit/loss ratio across trades",
		}),
		PricePollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "price_poll_errors_total",
			Help:      "Total number of failed price polls",
		}),
		HoldDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "hold_duration_seconds",
			Help:      "Time between entry and exit of completed trades",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		}),

		// Health metrics
		LastEventDetected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_detected_timestamp",
			Help:      "Unix timestamp of last actionable migration event",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordClassification increments the classified-events counter.
func RecordClassification(class string) {
	DefaultMetrics.EventsClassified.WithLabelValues(class).Inc()
}

// RecordDecodeError records a payload decode error.
func RecordDecodeError(errorType string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(errorType).Inc()
}

// RecordDuplicateDropped increments the duplicate-delivery counter.
func RecordDuplicateDropped() {
	DefaultMetrics.DuplicatesDropped.Inc()
}

// RecordTradeCompleted records a completed trade and its hold time.
func RecordTradeCompleted(outcome string, holdSeconds float64) {
	DefaultMetrics.TradesCompleted.WithLabelValues(outcome).Inc()
	if holdSeconds > 0 {
		DefaultMetrics.HoldDuration.Observe(holdSeconds)
	}
}

// SetOpenPositions updates the open-positions gauge.
func SetOpenPositions(n int) {
	DefaultMetrics.OpenPositions.Set(float64(n))
}

// SetTotalProfitLoss updates the cumulative PnL gauge.
func SetTotalProfitLoss(ratio float64) {
	DefaultMetrics.TotalProfitLoss.Set(ratio)
}
