package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records gateway round trips and the outcome of payment events.
type PaymentMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	gatewayCalls    *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	captures        *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paytm_gateway_request_duration_seconds",
		Help:    "Duration of Paytm gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paytm_gateway_requests_total",
		Help: "Paytm gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paytm_webhooks_total",
		Help: "Inbound Paytm notifications by outcome.",
	}, []string{"outcome"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paytm_captures_total",
		Help: "Capture decisions by outcome.",
	}, []string{"outcome"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paytm_cart_reconciliations_total",
		Help: "Cart mutation reconciliations by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(gatewayDuration, gatewayCalls, webhooks, captures, reconciliations)
	return &PaymentMetrics{
		gatewayDuration: gatewayDuration,
		gatewayCalls:    gatewayCalls,
		webhooks:        webhooks,
		captures:        captures,
		reconciliations: reconciliations,
	}
}

// ObserveGatewayCall records one gateway round trip.
func (m *PaymentMetrics) ObserveGatewayCall(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	op, out := normalizeLabel(operation), normalizeLabel(outcome)
	m.gatewayDuration.WithLabelValues(op, out).Observe(elapsed.Seconds())
	m.gatewayCalls.WithLabelValues(op, out).Inc()
}

func (m *PaymentMetrics) IncWebhook(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncCapture(outcome string) {
	if m == nil || m.captures == nil {
		return
	}
	m.captures.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncReconciliation(outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
