package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Imellstorm/wptest/internal/types"
)

const (
	// MetricsNamespace prefixes every metric exposed by the service.
	MetricsNamespace = "barter"

	OpGenerate = "generate"
	OpPlaceBid = "place_bid"
	OpSettle   = "settle"

	kindInternal = "INTERNAL"
)

// Metrics contains the barter operation metrics.
type Metrics struct {
	// Number of inventories generated.
	InventoriesGenerated prometheus.Counter
	// Total value of generated inventories.
	GeneratedValue prometheus.Counter
	// Number of bids placed.
	BidsPlaced prometheus.Counter
	// Number of settled trades.
	Settlements prometheus.Counter
	// Total offer value moved by settled trades.
	SettledValue prometheus.Counter
	// Failed operations by operation and error kind.
	Rejections *prometheus.CounterVec
	// Operation latency in seconds.
	OperationDuration *prometheus.HistogramVec
}

// PrometheusMetrics builds the metrics and registers them with reg.
func PrometheusMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InventoriesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "inventories_generated_total",
			Help:      "Number of inventories generated.",
		}),
		GeneratedValue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "generated_value_total",
			Help:      "Sum of the total value of generated inventories.",
		}),
		BidsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "bids_placed_total",
			Help:      "Number of bids placed.",
		}),
		Settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "settlements_total",
			Help:      "Number of settled trades.",
		}),
		SettledValue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "settled_value_total",
			Help:      "Sum of the offer value of settled trades.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "rejections_total",
			Help:      "Failed operations by operation and error kind.",
		}, []string{"operation", "kind"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of barter operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.InventoriesGenerated,
		m.GeneratedValue,
		m.BidsPlaced,
		m.Settlements,
		m.SettledValue,
		m.Rejections,
		m.OperationDuration,
	)
	return m
}

// NopMetrics returns metrics registered nowhere.
func NopMetrics() *Metrics {
	return PrometheusMetrics(prometheus.NewRegistry())
}

// Rejected counts a failed operation under the error's kind.
func (m *Metrics) Rejected(op string, err error) {
	kind, ok := types.KindOf(err)
	if !ok {
		kind = kindInternal
	}
	m.Rejections.WithLabelValues(op, string(kind)).Inc()
}

// Since records the latency of op started at start.
func (m *Metrics) Since(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
