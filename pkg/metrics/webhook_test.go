package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWebhookMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.Observe("wompi", "approved")
	m.Observe("wompi", "approved")
	m.Observe("wompi", "duplicate")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "webhook_notifications_total", "outcome", "approved"); err != nil {
		t.Fatalf("fetch approved: %v", err)
	} else if got != 2 {
		t.Fatalf("expected approved=2, got %f", got)
	}
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncPublished("order_state_changed")
	NewOutboxMetrics(nil).IncDeadLettered("order_state_changed", "max_attempts")
	NewWebhookMetrics(nil).Observe("wompi", "approved")
}
