package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	// Forecast API client metrics.
	APIRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	APIDuration *prometheus.HistogramVec // labels: endpoint

	// Refresh cycle metrics.
	RefreshRuns     *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration prometheus.Histogram
	StaleDiscarded  prometheus.Counter
	SnapshotReady   prometheus.Gauge

	// Map join metrics.
	JoinMatches *prometheus.CounterVec // labels: strategy={exact,alias,partial,none}

	ReportCache     *prometheus.CounterVec // labels: kind, result={hit,miss,bypass}
	AlertsPublished prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.APIRequests,
		m.APIDuration,
		m.RefreshRuns,
		m.RefreshDuration,
		m.StaleDiscarded,
		m.SnapshotReady,
		m.JoinMatches,
		m.ReportCache,
		m.AlertsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics creates Metrics that are never exported, for
// one-shot tools that have no /metrics endpoint.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rabies_dashboard",
			Name:      "forecast_api_requests_total",
			Help:      "Forecast backend requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rabies_dashboard",
			Name:      "forecast_api_duration_seconds",
			Help:      "Forecast backend request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rabies_dashboard",
			Name:      "refresh_runs_total",
			Help:      "Dashboard refresh cycles by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rabies_dashboard",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete dashboard refresh cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		StaleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rabies_dashboard",
			Name:      "stale_responses_discarded_total",
			Help:      "Responses dropped because a newer fetch superseded them.",
		}),
		SnapshotReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rabies_dashboard",
			Name:      "snapshot_ready",
			Help:      "1 once a dashboard snapshot has been loaded, 0 otherwise.",
		}),
		JoinMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rabies_dashboard",
			Name:      "boundary_join_total",
			Help:      "Boundary features joined to risk records by match strategy.",
		}, []string{"strategy"}),
		ReportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rabies_dashboard",
			Name:      "report_cache_total",
			Help:      "Report cache lookups by report kind and result.",
		}, []string{"kind", "result"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rabies_dashboard",
			Name:      "alerts_published_total",
			Help:      "Alerts written to the alert feed topic.",
		}),
	}
}
