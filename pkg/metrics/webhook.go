package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts gateway notifications by outcome.
type WebhookMetrics struct {
	notifications *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook_notifications_total on reg.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_total",
		Help: "Payment gateway notifications by provider and outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(notifications)
	return &WebhookMetrics{notifications: notifications}
}

// Observe records one notification outcome, e.g. approved, declined,
// duplicate, amount_mismatch, bad_signature.
func (w *WebhookMetrics) Observe(provider, outcome string) {
	if w == nil || w.notifications == nil {
		return
	}
	w.notifications.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
