// Package metrics exposes the engine's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes used as label values.
const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
)

// Metrics bundles the engine's collectors. A nil *Metrics is a valid no-op
// receiver so the engine can run uninstrumented in tests.
type Metrics struct {
	settlements *prometheus.CounterVec
	duration    prometheus.Histogram
	supply      prometheus.Gauge
	storeErrors prometheus.Counter
}

// New registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "curved_settlements_total",
			Help: "Settlement operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "curved_settlement_duration_seconds",
			Help:    "Wall time of settlement operations.",
			Buckets: prometheus.DefBuckets,
		}),
		supply: factory.NewGauge(prometheus.GaugeOpts{
			Name: "curved_supply",
			Help: "Current total supply in base units (float approximation).",
		}),
		storeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "curved_storage_errors_total",
			Help: "Receipt persistence failures.",
		}),
	}
}

// ObserveSettlement records one settlement attempt.
func (m *Metrics) ObserveSettlement(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(op, outcome).Inc()
	m.duration.Observe(seconds)
}

// SetSupply updates the supply gauge.
func (m *Metrics) SetSupply(supply float64) {
	if m == nil {
		return
	}
	m.supply.Set(supply)
}

// StorageError counts a failed receipt write.
func (m *Metrics) StorageError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}
