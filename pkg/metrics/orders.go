package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the order engine and payment reconciliation.
type OrderMetrics struct {
	committed     *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	retries       *prometheus.CounterVec
	payments      *prometheus.CounterVec
	gatewayCalls  *prometheus.HistogramVec
	callbackAcked *prometheus.CounterVec
}

// NewOrderMetrics registers the order collectors. A nil registerer yields a
// no-op recorder so tests and CLIs can skip Prometheus entirely.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		committed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "committed_total",
			Help:      "Orders committed by kind and initial status.",
		}, []string{"kind", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "rejected_total",
			Help:      "Order operations rejected by kind and error code.",
		}, []string{"kind", "code"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "commit_retries_total",
			Help:      "Commits retried after an order number conflict.",
		}, []string{"kind"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "attempts_resolved_total",
			Help:      "Payment attempts resolved by terminal status and path.",
		}, []string{"status", "via"}),
		gatewayCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of payment gateway requests.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}, []string{"operation", "outcome"}),
		callbackAcked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "callbacks_total",
			Help:      "Gateway callbacks acknowledged by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.committed, m.rejected, m.retries, m.payments, m.gatewayCalls, m.callbackAcked)
	return m
}

// OrderCommitted counts a committed sale or purchase.
func (m *OrderMetrics) OrderCommitted(kind, status string) {
	if m == nil || m.committed == nil {
		return
	}
	m.committed.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

// OrderRejected counts an order operation that failed with a typed error code.
func (m *OrderMetrics) OrderRejected(kind, code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(kind), normalizeLabel(code)).Inc()
}

// CommitRetried counts a retried commit.
func (m *OrderMetrics) CommitRetried(kind string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(kind)).Inc()
}

// PaymentResolved counts an attempt reaching a terminal status.
func (m *OrderMetrics) PaymentResolved(status, via string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(status), normalizeLabel(via)).Inc()
}

// ObserveGateway records the latency and outcome of a gateway call.
func (m *OrderMetrics) ObserveGateway(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.gatewayCalls == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(elapsed.Seconds())
}

// CallbackAcked counts an acknowledged gateway callback.
func (m *OrderMetrics) CallbackAcked(outcome string) {
	if m == nil || m.callbackAcked == nil {
		return
	}
	m.callbackAcked.WithLabelValues(normalizeLabel(outcome)).Inc()
}
