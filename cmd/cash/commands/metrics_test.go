package commands

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cash"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordIteration(2, 10, 5*time.Millisecond)
	c.RecordIteration(0, 0, time.Millisecond)
	c.RecordRetry("InsertDeltas")
	c.RecordSkipped(3)
	c.RecordRun(2, 2, cash.StopExhausted, time.Second, nil)

	assert.InDelta(t, 2, promtest.ToFloat64(c.iterations), 0)
	assert.InDelta(t, 2, promtest.ToFloat64(c.clusters), 0)
	assert.InDelta(t, 10, promtest.ToFloat64(c.removed), 0)
	assert.InDelta(t, 3, promtest.ToFloat64(c.skipped), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.retries.WithLabelValues("InsertDeltas")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.runs.WithLabelValues("exhausted")), 0)

	n, err := promtest.GatherAndCount(reg, "cash_iteration_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusCollector_DuringRun(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)
	points, err := LoadCSVFile(dataset, "")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	res, err := cash.Cluster(t.Context(), points, 0.05, 4, cash.WithMetricsCollector(c))
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)

	assert.InDelta(t, 1, promtest.ToFloat64(c.clusters), 0)
	assert.InDelta(t, 4, promtest.ToFloat64(c.removed), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.runs.WithLabelValues("below_min_pts")), 0)
}
