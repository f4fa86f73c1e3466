package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type contractMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

type commandMetrics struct {
	commands *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	version  prometheus.Gauge
}

var (
	contractMetricsOnce sync.Once
	contractRegistry    *contractMetrics

	commandMetricsOnce sync.Once
	commandRegistry    *commandMetrics
)

// Contract returns the lazily-initialised registry recording marketplace
// contract calls. It satisfies contract.Metrics.
func Contract() *contractMetrics {
	contractMetricsOnce.Do(func() {
		contractRegistry = &contractMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketfront",
				Subsystem: "contract",
				Name:      "calls_total",
				Help:      "Marketplace contract queries and commands segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketfront",
				Subsystem: "contract",
				Name:      "call_duration_seconds",
				Help:      "Latency of marketplace contract calls including receipt confirmation.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			}, []string{"method"}),
		}
		prometheus.MustRegister(contractRegistry.calls, contractRegistry.latency)
	})
	return contractRegistry
}

// ObserveCall records one contract round trip.
func (m *contractMetrics) ObserveCall(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	method = normalizeLabel(method)
	m.calls.WithLabelValues(method, normalizeLabel(outcome)).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Commands returns the registry recording session command dispatches.
func Commands() *commandMetrics {
	commandMetricsOnce.Do(func() {
		commandRegistry = &commandMetrics{
			commands: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketfront",
				Subsystem: "session",
				Name:      "commands_total",
				Help:      "Session commands dispatched segmented by command and outcome.",
			}, []string{"command", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketfront",
				Subsystem: "session",
				Name:      "command_duration_seconds",
				Help:      "End-to-end latency of session commands.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"command"}),
			version: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "marketfront",
				Subsystem: "session",
				Name:      "state_version",
				Help:      "Version of the most recently published state snapshot.",
			}),
		}
		prometheus.MustRegister(commandRegistry.commands, commandRegistry.latency, commandRegistry.version)
	})
	return commandRegistry
}

// ObserveCommand records the outcome of a dispatched command. The outcome
// should be a short error class such as "ok", "forbidden" or "failed".
func (m *commandMetrics) ObserveCommand(command, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	command = normalizeLabel(command)
	m.commands.WithLabelValues(command, normalizeLabel(outcome)).Inc()
	m.latency.WithLabelValues(command).Observe(elapsed.Seconds())
}

// SetStateVersion publishes the latest snapshot version.
func (m *commandMetrics) SetStateVersion(version uint64) {
	if m == nil {
		return
	}
	m.version.Set(float64(version))
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
