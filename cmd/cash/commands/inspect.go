package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/cash/checkpoint"
	"github.com/hupe1980/cash/internal/bitmap"
	"github.com/hupe1980/cash/model"
)

type inspectOptions struct {
	target   string
	run      string
	file     string
	clusters bool
	output   string
}

// summary is the printable view of a checkpoint.
type summary struct {
	RunID         string          `json:"run_id"`
	Name          string          `json:"name,omitempty"`
	Iteration     int             `json:"iteration"`
	Eps           float64         `json:"eps"`
	MinPts        int             `json:"min_pts"`
	CreatedAt     time.Time       `json:"created_at"`
	Dimension     int             `json:"dimension"`
	Clusters      int             `json:"clusters"`
	Active        int             `json:"active"`
	Position      int             `json:"position"`
	NextClusterID model.ClusterID `json:"next_cluster_id"`
	Checkpoints   int             `json:"checkpoints"`

	Details []model.Cluster `json:"details,omitempty"`
}

func newInspectCommand(_ *rootOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show checkpointed runs",
		Long: `Without --run, list the runs stored under the checkpoint target.
With --run, summarize the latest checkpoint of that run, or the one named
by --file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.target, "checkpoint", "", "checkpoint target (file://dir, s3://bucket/prefix, minio://host/bucket/prefix)")
	f.StringVar(&opts.run, "run", "", "run id")
	f.StringVar(&opts.file, "file", "", "checkpoint blob name instead of the latest one")
	f.BoolVar(&opts.clusters, "clusters", false, "include the clusters")
	f.StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")
	_ = cmd.MarkFlagRequired("checkpoint")

	return cmd
}

func runInspect(cmd *cobra.Command, opts *inspectOptions) error {
	ctx := cmd.Context()

	bs, err := OpenBlobStore(ctx, CheckpointConfig{Target: opts.target})
	if err != nil {
		return err
	}
	mgr := checkpoint.NewManager(bs)

	if opts.run == "" {
		runs, err := mgr.Runs(ctx)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		return nil
	}

	var cp *checkpoint.Checkpoint
	if opts.file != "" {
		cp, err = mgr.LoadName(ctx, opts.file)
	} else {
		cp, err = mgr.Load(ctx, opts.run)
	}
	if err != nil {
		return err
	}

	names, err := mgr.List(ctx, opts.run)
	if err != nil {
		return err
	}

	active := bitmap.NewActiveSet()
	if err := active.UnmarshalBinary(cp.Snapshot.Active); err != nil {
		return fmt.Errorf("active set: %w", err)
	}

	s := summary{
		RunID:         cp.RunID,
		Name:          opts.file,
		Iteration:     cp.Iteration,
		Eps:           cp.Eps,
		MinPts:        cp.MinPts,
		CreatedAt:     cp.CreatedAt,
		Dimension:     cp.Snapshot.Dimension,
		Clusters:      len(cp.Snapshot.Clusters),
		Active:        active.Len(),
		Position:      cp.Snapshot.Enumerator.Position,
		NextClusterID: cp.Snapshot.NextClusterID,
		Checkpoints:   len(names),
	}
	if opts.clusters {
		s.Details = cp.Snapshot.Clusters
	}

	return printSummary(cmd.OutOrStdout(), s, opts.output)
}

func printSummary(w io.Writer, s summary, format string) error {
	switch format {
	case "json":
		data, err := gojson.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "run\t%s\n", s.RunID)
		fmt.Fprintf(tw, "iteration\t%d\n", s.Iteration)
		fmt.Fprintf(tw, "eps\t%g\n", s.Eps)
		fmt.Fprintf(tw, "min_pts\t%d\n", s.MinPts)
		fmt.Fprintf(tw, "created_at\t%s\n", s.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(tw, "dimension\t%d\n", s.Dimension)
		fmt.Fprintf(tw, "clusters\t%d\n", s.Clusters)
		fmt.Fprintf(tw, "active\t%d\n", s.Active)
		fmt.Fprintf(tw, "position\t%d\n", s.Position)
		fmt.Fprintf(tw, "next_cluster_id\t%d\n", s.NextClusterID)
		fmt.Fprintf(tw, "checkpoints\t%d\n", s.Checkpoints)
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, c := range s.Details {
			fmt.Fprintln(w, c)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
