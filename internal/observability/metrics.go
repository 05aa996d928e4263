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
	// Swap metrics
	SwapsExecuted        *prometheus.CounterVec
	SwapVolumeOut        *prometheus.CounterVec
	SlippageRejections   *prometheus.CounterVec
	SettlementFailures   *prometheus.CounterVec
	SingularRateClamps   *prometheus.CounterVec

	// Auction state metrics
	PeriodRollovers  *prometheus.CounterVec
	CurrentPeriod    *prometheus.GaugeVec
	TargetRate       *prometheus.GaugeVec
	RemainingCap     *prometheus.GaugeVec
	CurvePhase       *prometheus.GaugeVec

	// Quote metrics
	QuotesServed *prometheus.CounterVec
	QuoteLatency *prometheus.HistogramVec

	// Feed metrics
	FeedClientsConnected prometheus.Gauge
	FeedMessagesSent     prometheus.Counter
	FeedSendErrors       prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSample prometheus.Gauge
	UptimeSeconds        prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "liquidator"
	}

	return &Metrics{
		// Swap metrics
		SwapsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "executed_total",
			Help:      "Total number of swaps executed by pair and kind",
		}, []string{"pair", "kind"}),
		SwapVolumeOut: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "volume_out_total",
			Help:      "Total output token volume swapped by pair",
		}, []string{"pair"}),
		SlippageRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "slippage_rejections_total",
			Help:      "Total number of swaps rejected by slippage bounds",
		}, []string{"pair", "kind"}),
		SettlementFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "settlement_failures_total",
			Help:      "Total number of swaps aborted by the liquidity source",
		}, []string{"pair"}),
		SingularRateClamps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "singular_rate_clamps_total",
			Help:      "Total number of quotes clamped at curve singularities",
		}, []string{"pair"}),

		// Auction state metrics
		PeriodRollovers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "period_rollovers_total",
			Help:      "Total number of period rollovers committed",
		}, []string{"pair"}),
		CurrentPeriod: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "current_period",
			Help:      "Committed auction period index",
		}, []string{"pair"}),
		TargetRate: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "target_rate",
			Help:      "Target exchange rate of the current period",
		}, []string{"pair"}),
		RemainingCap: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "remaining_cap",
			Help:      "Remaining output token liquidity in the current period",
		}, []string{"pair"}),
		CurvePhase: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "curve_phase",
			Help:      "Curve phase at the last sample (1, 2 or 3)",
		}, []string{"pair"}),

		// Quote metrics
		QuotesServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "served_total",
			Help:      "Total number of quotes served by pair and kind",
		}, []string{"pair", "kind"}),
		QuoteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "latency_seconds",
			Help:      "Quote computation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		// Feed metrics
		FeedClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients_connected",
			Help:      "Current number of connected WebSocket clients",
		}),
		FeedMessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_sent_total",
			Help:      "Total number of WebSocket messages sent",
		}),
		FeedSendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "send_errors_total",
			Help:      "Total number of WebSocket send errors",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSample: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sample_timestamp",
			Help:      "Unix timestamp of last successful rate sample",
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

// RecordSwap increments the swap counters for an executed trade.
func RecordSwap(pair, kind string, amountOut float64) {
	DefaultMetrics.SwapsExecuted.WithLabelValues(pair, kind).Inc()
	DefaultMetrics.SwapVolumeOut.WithLabelValues(pair).Add(amountOut)
}

// RecordSlippageRejection increments the slippage rejection counter.
func RecordSlippageRejection(pair, kind string) {
	DefaultMetrics.SlippageRejections.WithLabelValues(pair, kind).Inc()
}

// RecordSettlementFailure increments the settlement failure counter.
func RecordSettlementFailure(pair string) {
	DefaultMetrics.SettlementFailures.WithLabelValues(pair).Inc()
}

// RecordRollover records a committed period rollover.
func RecordRollover(pair string, period int64) {
	DefaultMetrics.PeriodRollovers.WithLabelValues(pair).Inc()
	DefaultMetrics.CurrentPeriod.WithLabelValues(pair).Set(float64(period))
}

// RecordQuote records a served quote.
func RecordQuote(pair, kind string, seconds float64) {
	DefaultMetrics.QuotesServed.WithLabelValues(pair, kind).Inc()
	DefaultMetrics.QuoteLatency.WithLabelValues(kind).Observe(seconds)
}

// UpdateAuctionState updates the per-pair auction state gauges.
func UpdateAuctionState(pair string, period int64, phase int, targetRate, remainingCap float64) {
	DefaultMetrics.CurrentPeriod.WithLabelValues(pair).Set(float64(period))
	DefaultMetrics.CurvePhase.WithLabelValues(pair).Set(float64(phase))
	DefaultMetrics.TargetRate.WithLabelValues(pair).Set(targetRate)
	DefaultMetrics.RemainingCap.WithLabelValues(pair).Set(remainingCap)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
