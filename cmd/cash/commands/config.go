package commands

import (
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the run configuration. Files may be YAML or JSON.
//
//	eps: 0.05
//	min_pts: 10
//	splits: 8
//	dataset: points.csv
//	store:
//	  kind: badger
//	  dir: ./data
//	checkpoint:
//	  target: file://./checkpoints
//	  every: 10
type Config struct {
	Eps     float64 `yaml:"eps"`
	MinPts  int     `yaml:"min_pts"`
	Splits  int     `yaml:"splits"`
	Workers int     `yaml:"workers"`
	Retries int     `yaml:"retries"`

	Dataset  string `yaml:"dataset"`
	IDColumn string `yaml:"id_column"`

	Store      StoreConfig      `yaml:"store"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects the storage collaborator.
type StoreConfig struct {
	// Kind is "memory" or "badger".
	Kind string `yaml:"kind"`
	Dir  string `yaml:"dir"`
}

// CheckpointConfig configures checkpoints. An empty Target disables them.
type CheckpointConfig struct {
	// Target is a blob store URI: file://dir, s3://bucket/prefix or
	// minio://host:port/bucket/prefix.
	Target      string `yaml:"target"`
	Every       int    `yaml:"every"`
	Codec       string `yaml:"codec"`
	Compression string `yaml:"compression"`

	// DDBTable enables DynamoDB conditional writes for the CURRENT pointer of
	// s3 targets.
	DDBTable string `yaml:"ddb_table"`

	// IOLimit caps checkpoint throughput in bytes per second. 0 is unlimited.
	IOLimit int64 `yaml:"io_limit"`
}

// MetricsConfig configures the Prometheus exporter. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Eps:     0.05,
		MinPts:  10,
		Splits:  4,
		Retries: 1,
		Store:   StoreConfig{Kind: "memory"},
		Checkpoint: CheckpointConfig{
			Every:       10,
			Codec:       "go-json",
			Compression: "lz4",
		},
	}
}

// LoadConfig reads path over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings the library does not check itself.
func (c Config) Validate() error {
	if math.IsNaN(c.Eps) || c.Eps <= 0 {
		return fmt.Errorf("eps must be > 0, got %v", c.Eps)
	}
	if c.MinPts < 1 {
		return fmt.Errorf("min_pts must be >= 1, got %d", c.MinPts)
	}
	if c.Splits < 1 {
		return fmt.Errorf("splits must be >= 1, got %d", c.Splits)
	}
	if c.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	switch c.Store.Kind {
	case "", "memory":
	case "badger":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the badger store")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Checkpoint.Target != "" && c.Checkpoint.Every < 1 {
		return fmt.Errorf("checkpoint.every must be >= 1, got %d", c.Checkpoint.Every)
	}
	return nil
}
