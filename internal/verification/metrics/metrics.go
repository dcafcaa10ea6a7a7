package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VerificationsTotal *prometheus.CounterVec
	TotalScore         prometheus.Histogram
	ReplaysDetected    prometheus.Counter
	ReceiptDegraded    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "popcheck_verifications_total",
			Help: "Completed verifications by verdict",
		}, []string{"verdict"}),
		TotalScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "popcheck_verification_total_score",
			Help:    "Distribution of fused trust scores",
			Buckets: []float64{0, 20, 40, 60, 80, 100},
		}),
		ReplaysDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "popcheck_totp_replays_detected_total",
			Help: "One-time codes rejected because they were already consumed",
		}),
		ReceiptDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "popcheck_receipt_degraded_total",
			Help: "Receipt verifications that degraded to zero score due to dependency failure",
		}),
	}
}

func (m *Metrics) RecordVerification(passed bool, totalScore int) {
	verdict := "failed"
	if passed {
		verdict = "passed"
	}
	m.VerificationsTotal.WithLabelValues(verdict).Inc()
	m.TotalScore.Observe(float64(totalScore))
}

func (m *Metrics) RecordReplay() {
	m.ReplaysDetected.Inc()
}
