package cash

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordIteration is called after each iteration.
	// clusters is the number of clusters it materialised, removed the number
	// of points they claimed.
	RecordIteration(clusters, removed int, duration time.Duration)

	// RecordRun is called once when a run stops.
	RecordRun(iterations, clusters int, reason StopReason, duration time.Duration, err error)

	// RecordRetry is called before a failed storage operation is retried.
	RecordRetry(op string)

	// RecordSkipped is called with the number of points left out of an
	// iteration because their value was not finite.
	RecordSkipped(n int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIteration(int, int, time.Duration)              {}
func (NoopMetricsCollector) RecordRun(int, int, StopReason, time.Duration, error) {}
func (NoopMetricsCollector) RecordRetry(string)                                   {}
func (NoopMetricsCollector) RecordSkipped(int)                                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IterationCount      atomic.Int64
	IterationTotalNanos atomic.Int64
	ClusterCount        atomic.Int64
	RemovedPoints       atomic.Int64
	RunCount            atomic.Int64
	RunErrors           atomic.Int64
	RetryCount          atomic.Int64
	SkippedPoints       atomic.Int64
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(clusters, removed int, duration time.Duration) {
	b.IterationCount.Add(1)
	b.IterationTotalNanos.Add(duration.Nanoseconds())
	b.ClusterCount.Add(int64(clusters))
	b.RemovedPoints.Add(int64(removed))
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(_, _ int, _ StopReason, _ time.Duration, err error) {
	b.RunCount.Add(1)
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// RecordRetry implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetry(string) {
	b.RetryCount.Add(1)
}

// RecordSkipped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkipped(n int) {
	b.SkippedPoints.Add(int64(n))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		IterationCount:    b.IterationCount.Load(),
		IterationAvgNanos: b.getAvgIterationNanos(),
		ClusterCount:      b.ClusterCount.Load(),
		RemovedPoints:     b.RemovedPoints.Load(),
		RunCount:          b.RunCount.Load(),
		RunErrors:         b.RunErrors.Load(),
		RetryCount:        b.RetryCount.Load(),
		SkippedPoints:     b.SkippedPoints.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgIterationNanos() int64 {
	count := b.IterationCount.Load()
	if count == 0 {
		return 0
	}
	return b.IterationTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IterationCount    int64
	IterationAvgNanos int64
	ClusterCount      int64
	RemovedPoints     int64
	RunCount          int64
	RunErrors         int64
	RetryCount        int64
	SkippedPoints     int64
}
