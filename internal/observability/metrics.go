package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "census_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map pipeline.
type Metrics struct {
	JobsEnqueued  prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    *prometheus.CounterVec // labels: reason
	JobDuration   prometheus.Histogram
	WorkersBusy   prometheus.Gauge

	// Upstream Census API metrics.
	UpstreamRequests *prometheus.CounterVec // labels: status
	UpstreamDuration prometheus.Histogram

	ShapesLoaded    prometheus.Gauge
	CatalogSkipped  prometheus.Counter
	NotifyFailures  prometheus.Counter
	ArtifactsCounty prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()
	prometheus.MustRegister(
		m.JobsEnqueued,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobDuration,
		m.WorkersBusy,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.ShapesLoaded,
		m.CatalogSkipped,
		m.NotifyFailures,
		m.ArtifactsCounty,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Total render jobs accepted by the dispatcher.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total render jobs that wrote an artifact.",
		}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total render jobs that failed, by error code.",
		}, []string{"reason"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of a fetch-normalize-render job.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
		WorkersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Workers currently running a job.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Census API requests by HTTP status (\"error\" for transport failures).",
		}, []string{"status"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Census API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ShapesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shapes_loaded",
			Help:      "County geometries held in the shape cache.",
		}),
		CatalogSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_skipped_total",
			Help:      "Artifact files skipped during listing because their name could not be decoded.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Artifact events that could not be published.",
		}),
		ArtifactsCounty: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_counties",
			Help:      "Counties drawn per rendered artifact.",
			Buckets:   []float64{1, 5, 10, 25, 50, 75, 100, 150, 260},
		}),
	}
}
