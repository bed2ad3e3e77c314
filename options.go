package cash

import (
	"context"
	"log/slog"

	"github.com/hupe1980/cash/checkpoint"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/resource"
)

// Checkpointer persists checkpoints. *checkpoint.Manager implements it.
type Checkpointer interface {
	Save(ctx context.Context, cp *checkpoint.Checkpoint) (string, error)
}

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	retries          int
	runID            string
	checkpointer     Checkpointer
	checkpointEvery  int

	// Only used by Cluster, which builds the store.
	enumerator permutation.Enumerator
	splits     int
	workers    int
	resources  *resource.Controller
}

// Option configures a Driver or Cluster.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &cash.BasicMetricsCollector{}
//	res, _ := cash.Cluster(ctx, points, 0.05, 10, cash.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("Iterations: %d, Avg latency: %dns\n", stats.IterationCount, stats.IterationAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := cash.NewJSONLogger(slog.LevelInfo)
//	d, _ := cash.New(s, cash.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRetry sets how often a failed iteration is retried before the run
// aborts with a StorageError. Default: 1. Zero disables retries.
func WithRetry(n int) Option {
	return func(o *options) {
		o.retries = max(n, 0)
	}
}

// WithRunID sets the run id used in logs and checkpoints.
// Default: a random UUID.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithCheckpointer saves a checkpoint every n iterations and when the run
// stops. The store must implement store.Snapshotter.
func WithCheckpointer(cp Checkpointer, every int) Option {
	return func(o *options) {
		o.checkpointer = cp
		o.checkpointEvery = every
	}
}

// WithEnumerator sets the alpha enumerator of the store built by Cluster.
func WithEnumerator(e permutation.Enumerator) Option {
	return func(o *options) {
		o.enumerator = e
	}
}

// WithGrid makes Cluster enumerate a grid with splits intervals per angle over [0, π].
// Ignored when WithEnumerator is set.
func WithGrid(splits int) Option {
	return func(o *options) {
		o.splits = splits
	}
}

// WithWorkers sets the parallelism of the store built by Cluster.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithResourceController shares a resource controller with the store built by Cluster.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		retries:          1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
