package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cash"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cash",
		Short: "Hough-transform linear correlation clustering",
		Long: `cash finds groups of points that lie on common hyperplanes.

Every point is mapped to a curve in angle space; the grid of angle vectors
is tried one at a time and groups of at least min-pts points whose curves
meet within eps become clusters.

Examples:
  # Cluster a CSV file with the default grid
  cash run points.csv --eps 0.05 --min-pts 10

  # Durable store and checkpoints, resumable with --resume
  cash run points.csv --store badger --dir ./data \
    --checkpoint file://./checkpoints --run-id nightly

  # Show the latest checkpoint of a run
  cash inspect --checkpoint file://./checkpoints --run nightly`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&ro.configPath, "config", "c", "", "config file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&ro.logFormat, "log-format", "text", "log format (text, json)")

	cmd.AddCommand(newRunCommand(ro), newInspectCommand(ro), newVersionCommand())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (ro *rootOptions) logger(w io.Writer) (*cash.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(ro.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch ro.logFormat {
	case "text":
		return cash.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return cash.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q", ro.logFormat)
	}
}
