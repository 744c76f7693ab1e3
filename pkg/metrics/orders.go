package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order lifecycle activity.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	sessions    *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions applied.",
	}, []string{"to_status"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transition_conflicts_total",
		Help: "Order transitions rejected because the row changed concurrently.",
	}, []string{"to_status"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_sessions_total",
		Help: "Payment sessions created per method.",
	}, []string{"method"})
	reg.MustRegister(transitions, conflicts, sessions)
	return &OrderMetrics{
		transitions: transitions,
		conflicts:   conflicts,
		sessions:    sessions,
	}
}

// IncTransition increments the transition counter for the target status.
func (m *OrderMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncConflict increments the conflict counter for the target status.
func (m *OrderMetrics) IncConflict(status string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPaymentSession increments the payment session counter for the method.
func (m *OrderMetrics) IncPaymentSession(method string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(method)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
