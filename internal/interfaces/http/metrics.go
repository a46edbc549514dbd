package http

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/driftcast/driftcast/internal/engine"
)

// MetricsRegistry holds the Prometheus metrics of the walk-forward engine.
// It doubles as the engine Observer, so window outcomes stream into the
// counters as workers finish.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RunsTotal      prometheus.Counter
	WindowsTotal   *prometheus.CounterVec
	HoldsTotal     *prometheus.CounterVec
	SearchFailures prometheus.Counter
	WindowDuration prometheus.Histogram
}

// NewMetricsRegistry builds and registers all metrics on a private registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftcast_runs_total",
			Help: "Total number of walk-forward runs started",
		}),

		WindowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "driftcast_windows_total",
			Help: "Total windows processed by signal outcome",
		}, []string{"signal"}),

		HoldsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "driftcast_holds_total",
			Help: "Total degraded windows by hold reason",
		}, []string{"reason"}),

		SearchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftcast_search_failures_total",
			Help: "Total windows where every order candidate failed",
		}),

		WindowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "driftcast_window_duration_seconds",
			Help:    "Wall time of one window's search-fit-forecast pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
	}

	m.registry.MustRegister(m.RunsTotal, m.WindowsTotal, m.HoldsTotal, m.SearchFailures, m.WindowDuration)
	return m
}

// WindowDone implements engine.Observer.
func (m *MetricsRegistry) WindowDone(res engine.WindowResult) {
	m.WindowsTotal.WithLabelValues(res.Signal.Direction.String()).Inc()
	m.WindowDuration.Observe(res.Elapsed.Seconds())
	if res.HoldReason != "" {
		m.HoldsTotal.WithLabelValues(res.HoldReason).Inc()
		if res.HoldReason == engine.ReasonSearchFailed {
			m.SearchFailures.Inc()
		}
	}
}

// Snapshot gathers the registry into a name-keyed map of counter totals,
// summing across label sets. Used by the health endpoint and tests.
func (m *MetricsRegistry) Snapshot() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	out := make(map[string]float64, len(families))
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		total := 0.0
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		out[mf.GetName()] = total
	}
	return out, nil
}
