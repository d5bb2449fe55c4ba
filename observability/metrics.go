package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts public protocol operations by name and outcome.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers the operation counters with the supplied registerer.
// A nil registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alphaledger",
			Name:      "operations_total",
			Help:      "Public protocol operations by name and outcome.",
		}, []string{"op", "outcome"}),
	}
}

// RecordOperation counts one operation outcome.
func (m *Metrics) RecordOperation(op string, success bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}
