package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hupe1980/cash"
	"github.com/hupe1980/cash/checkpoint"
	"github.com/hupe1980/cash/codec"
	"github.com/hupe1980/cash/internal/compress"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/resource"
	"github.com/hupe1980/cash/store"
	"github.com/hupe1980/cash/store/badger"
)

type runOptions struct {
	flags  Config
	runID  string
	resume bool
	output string
}

func newRunCommand(ro *rootOptions) *cobra.Command {
	opts := &runOptions{flags: DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "run [dataset.csv]",
		Short: "Cluster a CSV data set",
		Long: `Load a CSV data set (header row, numeric columns) and run the clustering.

Flags override the values of the config file. The data set can be given as
argument, with --dataset or in the config file.

With --resume the run continues from the latest checkpoint of --run-id; eps
and min-pts are taken from the checkpoint.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, ro, opts, args)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.flags.Eps, "eps", opts.flags.Eps, "maximum distance of curve values within a cluster")
	f.IntVar(&opts.flags.MinPts, "min-pts", opts.flags.MinPts, "minimum cluster size")
	f.IntVar(&opts.flags.Splits, "splits", opts.flags.Splits, "grid intervals per angle")
	f.IntVar(&opts.flags.Workers, "workers", opts.flags.Workers, "parallelism (0 = number of CPUs)")
	f.IntVar(&opts.flags.Retries, "retries", opts.flags.Retries, "retries of a failed iteration")
	f.StringVar(&opts.flags.Dataset, "dataset", "", "CSV data set")
	f.StringVar(&opts.flags.IDColumn, "id-column", "", "CSV column holding point ids")
	f.StringVar(&opts.flags.Store.Kind, "store", opts.flags.Store.Kind, "store kind (memory, badger)")
	f.StringVar(&opts.flags.Store.Dir, "dir", "", "badger directory")
	f.StringVar(&opts.flags.Checkpoint.Target, "checkpoint", "", "checkpoint target (file://dir, s3://bucket/prefix, minio://host/bucket/prefix)")
	f.IntVar(&opts.flags.Checkpoint.Every, "every", opts.flags.Checkpoint.Every, "checkpoint every n iterations")
	f.StringVar(&opts.flags.Checkpoint.Codec, "codec", opts.flags.Checkpoint.Codec, "checkpoint codec (go-json, json, msgpack)")
	f.StringVar(&opts.flags.Checkpoint.Compression, "compression", opts.flags.Checkpoint.Compression, "checkpoint compression (none, lz4, zstd)")
	f.StringVar(&opts.flags.Checkpoint.DDBTable, "ddb-table", "", "DynamoDB table for the CURRENT pointer of s3 targets")
	f.Int64Var(&opts.flags.Checkpoint.IOLimit, "io-limit", 0, "checkpoint throughput limit in bytes/s")
	f.StringVar(&opts.flags.Metrics.Listen, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&opts.runID, "run-id", "", "run id (default: random)")
	f.BoolVar(&opts.resume, "resume", false, "resume --run-id from its latest checkpoint")
	f.StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")

	return cmd
}

// applyFlags copies the explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *Config, flags *Config) {
	set := map[string]func(){
		"eps":          func() { cfg.Eps = flags.Eps },
		"min-pts":      func() { cfg.MinPts = flags.MinPts },
		"splits":       func() { cfg.Splits = flags.Splits },
		"workers":      func() { cfg.Workers = flags.Workers },
		"retries":      func() { cfg.Retries = flags.Retries },
		"dataset":      func() { cfg.Dataset = flags.Dataset },
		"id-column":    func() { cfg.IDColumn = flags.IDColumn },
		"store":        func() { cfg.Store.Kind = flags.Store.Kind },
		"dir":          func() { cfg.Store.Dir = flags.Store.Dir },
		"checkpoint":   func() { cfg.Checkpoint.Target = flags.Checkpoint.Target },
		"every":        func() { cfg.Checkpoint.Every = flags.Checkpoint.Every },
		"codec":        func() { cfg.Checkpoint.Codec = flags.Checkpoint.Codec },
		"compression":  func() { cfg.Checkpoint.Compression = flags.Checkpoint.Compression },
		"ddb-table":    func() { cfg.Checkpoint.DDBTable = flags.Checkpoint.DDBTable },
		"io-limit":     func() { cfg.Checkpoint.IOLimit = flags.Checkpoint.IOLimit },
		"metrics-addr": func() { cfg.Metrics.Listen = flags.Metrics.Listen },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

func runRun(cmd *cobra.Command, ro *rootOptions, opts *runOptions, args []string) error {
	cfg, err := LoadConfig(ro.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg, &opts.flags)
	if len(args) == 1 {
		cfg.Dataset = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.resume && (opts.runID == "" || cfg.Checkpoint.Target == "") {
		return fmt.Errorf("--resume needs --run-id and a checkpoint target")
	}

	logger, err := ro.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	points, err := LoadCSVFile(cfg.Dataset, cfg.IDColumn)
	if err != nil {
		return err
	}
	dim, err := store.ValidatePoints(points)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", cfg.Dataset, err)
	}

	grid := permutation.DefaultGridConfig(dim)
	grid.Splits = cfg.Splits
	enum, err := permutation.NewGrid(grid)
	if err != nil {
		return err
	}

	rc := resource.NewController(resource.Config{
		MaxWorkers:         int64(cfg.Workers),
		IOLimitBytesPerSec: cfg.Checkpoint.IOLimit,
	})
	storeOpts := []store.Option{
		store.WithEnumerator(enum),
		store.WithWorkers(cfg.Workers),
		store.WithResourceController(rc),
	}

	s, closeStore, err := openStore(cfg.Store, points, logger, storeOpts)
	if err != nil {
		return err
	}
	defer closeStore()
	if s.Dimension() != dim {
		return fmt.Errorf("store holds points of dimension %d, dataset has %d", s.Dimension(), dim)
	}

	driverOpts := []cash.Option{
		cash.WithLogger(logger),
		cash.WithRetry(cfg.Retries),
	}
	if opts.runID != "" {
		driverOpts = append(driverOpts, cash.WithRunID(opts.runID))
	}

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		driverOpts = append(driverOpts, cash.WithMetricsCollector(NewPrometheusCollector(reg)))
		stopMetrics := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer stopMetrics()
	}

	var mgr *checkpoint.Manager
	if cfg.Checkpoint.Target != "" {
		mgr, err = openManager(ctx, cfg.Checkpoint, rc)
		if err != nil {
			return err
		}
		driverOpts = append(driverOpts, cash.WithCheckpointer(mgr, cfg.Checkpoint.Every))
	}

	d, err := cash.New(s, driverOpts...)
	if err != nil {
		return err
	}

	if opts.resume {
		cp, err := mgr.Load(ctx, opts.runID)
		if err != nil {
			return err
		}
		if err := d.Resume(ctx, cp); err != nil {
			return err
		}
		cfg.Eps, cfg.MinPts = cp.Eps, cp.MinPts
	}

	res, runErr := d.Cash(ctx, cfg.Eps, cfg.MinPts)
	if res != nil {
		if err := printResult(cmd.OutOrStdout(), res, opts.output); err != nil {
			return err
		}
	}
	return runErr
}

func openStore(cfg StoreConfig, points []model.Point, logger *cash.Logger, opts []store.Option) (store.Store, func(), error) {
	switch cfg.Kind {
	case "badger":
		s, err := badger.New(badger.Options{Dir: cfg.Dir, Logger: logger.Logger}, points, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := store.NewMemory(points, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func openManager(ctx context.Context, cfg CheckpointConfig, rc *resource.Controller) (*checkpoint.Manager, error) {
	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", cfg.Codec)
	}
	ct, err := compress.ParseType(cfg.Compression)
	if err != nil {
		return nil, err
	}
	bs, err := OpenBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return checkpoint.NewManager(bs, func(o *checkpoint.Options) {
		o.Codec = c
		o.Compression = ct
		o.Resources = rc
	}), nil
}

func printResult(w io.Writer, res *cash.Result, format string) error {
	switch format {
	case "json":
		data, err := gojson.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text":
		fmt.Fprintf(w, "run %s: %d clusters, %d iterations, %d unclustered (%s)\n",
			res.RunID, len(res.Clusters), res.Iterations, res.Remaining, res.Reason)
		for _, c := range res.Clusters {
			ids := make([]string, len(c.Points))
			for i, p := range c.Points {
				ids[i] = fmt.Sprint(p)
			}
			fmt.Fprintf(w, "%s\n  points: %s\n", c, strings.Join(ids, " "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
