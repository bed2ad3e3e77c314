package commands

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/cash"
)

// PrometheusCollector implements cash.MetricsCollector.
type PrometheusCollector struct {
	iterations       prometheus.Counter
	iterationLatency prometheus.Histogram
	clusters         prometheus.Counter
	removed          prometheus.Counter
	runs             *prometheus.CounterVec
	retries          *prometheus.CounterVec
	skipped          prometheus.Counter
}

var _ cash.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers it with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cash_iterations_total",
			Help: "Total alphas tried",
		}),
		iterationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cash_iteration_duration_seconds",
			Help:    "Latency of one iteration",
			Buckets: prometheus.DefBuckets,
		}),
		clusters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cash_clusters_total",
			Help: "Total clusters materialised",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cash_clustered_points_total",
			Help: "Total points removed from the active set",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cash_runs_total",
			Help: "Total runs by stop reason",
		}, []string{"reason"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cash_storage_retries_total",
			Help: "Total retried storage operations",
		}, []string{"op"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cash_skipped_points_total",
			Help: "Total deltas dropped for a non-finite value",
		}),
	}

	reg.MustRegister(c.iterations, c.iterationLatency, c.clusters, c.removed, c.runs, c.retries, c.skipped)
	return c
}

// RecordIteration implements cash.MetricsCollector.
func (c *PrometheusCollector) RecordIteration(clusters, removed int, duration time.Duration) {
	c.iterations.Inc()
	c.iterationLatency.Observe(duration.Seconds())
	c.clusters.Add(float64(clusters))
	c.removed.Add(float64(removed))
}

// RecordRun implements cash.MetricsCollector.
func (c *PrometheusCollector) RecordRun(_, _ int, reason cash.StopReason, _ time.Duration, _ error) {
	c.runs.WithLabelValues(reason.String()).Inc()
}

// RecordRetry implements cash.MetricsCollector.
func (c *PrometheusCollector) RecordRetry(op string) {
	c.retries.WithLabelValues(op).Inc()
}

// RecordSkipped implements cash.MetricsCollector.
func (c *PrometheusCollector) RecordSkipped(n int) {
	c.skipped.Add(float64(n))
}

// serveMetrics exposes reg on addr until the returned stop function is called.
func serveMetrics(addr string, reg prometheus.Gatherer, logger *cash.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return func() { _ = srv.Close() }
}
