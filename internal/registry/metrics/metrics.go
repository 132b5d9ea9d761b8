package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for registry operations.
type Metrics struct {
	ProofsAccepted     prometheus.Counter
	ProofsRejected     *prometheus.CounterVec
	PaymentsAuthorized prometheus.Counter
	PaymentsDenied     *prometheus.CounterVec
	Revocations        prometheus.Counter
	VerifyLatency      prometheus.Histogram
}

// New registers and returns registry metrics collectors.
func New() *Metrics {
	return &Metrics{
		ProofsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zkcomply_proofs_accepted_total",
			Help: "Total number of compliance proofs accepted by the registry",
		}),
		ProofsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "zkcomply_proofs_rejected_total",
			Help: "Total number of compliance proofs rejected, labeled by reason",
		}, []string{"reason"}),
		PaymentsAuthorized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zkcomply_payments_authorized_total",
			Help: "Total number of payments authorized",
		}),
		PaymentsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "zkcomply_payments_denied_total",
			Help: "Total number of payments denied, labeled by reason",
		}, []string{"reason"}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zkcomply_revocations_total",
			Help: "Total number of compliance revocations",
		}),
		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "zkcomply_proof_verify_latency_seconds",
			Help:    "Latency of cryptographic proof verification in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementProofsAccepted() {
	m.ProofsAccepted.Inc()
}

func (m *Metrics) IncrementProofsRejected(reason string) {
	m.ProofsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementPaymentsAuthorized() {
	m.PaymentsAuthorized.Inc()
}

func (m *Metrics) IncrementPaymentsDenied(reason string) {
	m.PaymentsDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementRevocations() {
	m.Revocations.Inc()
}

func (m *Metrics) ObserveVerifyLatency(seconds float64) {
	m.VerifyLatency.Observe(seconds)
}
