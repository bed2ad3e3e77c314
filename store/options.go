package store

import (
	"github.com/hupe1980/cash/resource"
	"github.com/hupe1980/cash/permutation"
)

// Options holds the settings shared by the store implementations.
type Options struct {
	// Enumerator yields the alphas to try. nil means the default grid for
	// the point dimension.
	Enumerator permutation.Enumerator

	// Workers is the degree of parallelism of the delta and region stages.
	// <= 0 means runtime.NumCPU().
	Workers int

	// Resources bounds concurrency across stages. May be nil.
	Resources *resource.Controller
}

// Option configures a store.
type Option func(*Options)

// WithEnumerator sets the alpha enumerator.
func WithEnumerator(e permutation.Enumerator) Option {
	return func(o *Options) { o.Enumerator = e }
}

// WithWorkers sets the degree of parallelism.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithResourceController shares a resource controller with the store.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *Options) { o.Resources = rc }
}

// ApplyOptions builds Options for points of dimension dim.
func ApplyOptions(dim int, opts ...Option) (Options, error) {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if o.Enumerator == nil {
		g, err := permutation.NewGrid(permutation.DefaultGridConfig(dim))
		if err != nil {
			return Options{}, err
		}
		o.Enumerator = g
	}
	return o, nil
}
