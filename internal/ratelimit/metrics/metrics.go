package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal         *prometheus.CounterVec
	FallbackActivations prometheus.Counter
	GateWaiting         prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "popcheck_ratelimit_checks_total",
			Help: "Rate limit checks by outcome",
		}, []string{"outcome"}),
		FallbackActivations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "popcheck_ratelimit_fallback_activations_total",
			Help: "Times the distributed store errored and the in-memory fallback served the check",
		}),
		GateWaiting: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "popcheck_ratelimit_gate_waiting",
			Help: "Callers currently waiting on the concurrency admission gate",
		}),
	}
}

func (m *Metrics) RecordAllowed() {
	m.ChecksTotal.WithLabelValues("allowed").Inc()
}

func (m *Metrics) RecordRejected() {
	m.ChecksTotal.WithLabelValues("rejected").Inc()
}

func (m *Metrics) RecordFallback() {
	m.FallbackActivations.Inc()
}
