package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meteo_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec   // labels: outcome={success,network,parse,...}
	StageDuration    *prometheus.HistogramVec // labels: stage={fetch,reshape,persist}
	RowsPersisted    prometheus.Counter
	RunInProgress    prometheus.Gauge
	LastSuccess      prometheus.Gauge
	ObjectBytes      prometheus.Histogram
	NotifyFailures   prometheus.Counter
	FetchBreakerOpen prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		RowsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_persisted_total",
			Help:      "Total forecast rows written to object storage.",
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_progress",
			Help:      "Number of runs currently executing.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful run.",
		}),
		ObjectBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "object_size_bytes",
			Help:      "Size of uploaded Parquet objects.",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 12),
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Run notifications that could not be published.",
		}),
		FetchBreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_breaker_open",
			Help:      "1 while the forecast endpoint circuit breaker is open.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.StageDuration,
		m.RowsPersisted,
		m.RunInProgress,
		m.LastSuccess,
		m.ObjectBytes,
		m.NotifyFailures,
		m.FetchBreakerOpen,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
