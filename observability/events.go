package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"marketfront/core/events"
)

type eventMetrics struct {
	confirmed *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry counting confirmation events observed in
// transaction receipts. It satisfies events.Emitter.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			confirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketfront",
				Subsystem: "events",
				Name:      "confirmed_total",
				Help:      "Count of marketplace confirmation events segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.confirmed)
	})
	return eventRegistry
}

// Emit increments the counter for the event's type.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.confirmed.WithLabelValues(normalizeLabel(evt.EventType())).Inc()
}
