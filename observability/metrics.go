package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SwapMetrics records order-machine activity: one counter per transition
// and outcome plus a latency histogram.
type SwapMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var (
	swapMetricsOnce sync.Once
	swapRegistry    *SwapMetrics
)

// Swap returns the lazily-initialised metrics registry for the order
// processor.
func Swap() *SwapMetrics {
	swapMetricsOnce.Do(func() {
		swapRegistry = &SwapMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "splp2p",
				Subsystem: "swap",
				Name:      "transitions_total",
				Help:      "Total order state transitions segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "splp2p",
				Subsystem: "swap",
				Name:      "transition_duration_seconds",
				Help:      "Latency distribution for order state transitions.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
		}
		prometheus.MustRegister(
			swapRegistry.transitions,
			swapRegistry.latency,
		)
	})
	return swapRegistry
}

// Observe records one processed instruction.
func (m *SwapMetrics) Observe(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transitions.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}
