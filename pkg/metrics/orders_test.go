package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestOrderMetricsRecordsCommitsAndPayments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.OrderCommitted("sale", "completed")
	m.OrderCommitted("sale", "completed")
	m.OrderCommitted("purchase", "pending")
	m.OrderRejected("sale", "INSUFFICIENT_STOCK")
	m.CommitRetried("sale")
	m.PaymentResolved("success", "callback")
	m.ObserveGateway("stk_push", "ok", 120*time.Millisecond)
	m.CallbackAcked("accepted")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "retailops_orders_committed_total", map[string]string{"kind": "sale", "status": "completed"})
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "retailops_orders_rejected_total", map[string]string{"kind": "sale", "code": "INSUFFICIENT_STOCK"})
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "retailops_payments_attempts_resolved_total", map[string]string{"status": "success", "via": "callback"})
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	hist, err := fetchHistogram(mfs, "retailops_payments_gateway_request_duration_seconds", map[string]string{"operation": "stk_push", "outcome": "ok"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), hist.GetSampleCount())
}

func TestOutboxMetricsCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.EventHandled("sale_created", "published")
	m.EventHandled("sale_created", "published")
	m.EventHandled("payment_failed", "dead_lettered")
	m.ObserveBatch(30 * time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "retailops_outbox_events_total", map[string]string{"event_type": "sale_created", "result": "published"})
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "retailops_outbox_events_total", map[string]string{"event_type": "payment_failed", "result": "dead_lettered"})
	require.NoError(t, err)
	require.Equal(t, float64(1), got)
}

func TestNilOutboxMetricsAreNoops(t *testing.T) {
	var m *OutboxMetrics
	m.EventHandled("sale_created", "published")
	m.ObserveBatch(time.Second)
	NewOutboxMetrics(nil).EventHandled("x", "y")
}
