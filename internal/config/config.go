// Package config provides unified configuration loading for spexplore.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/dataset"
	"gopkg.in/yaml.v3"
)

// SpexploreConfig contains all spexplore configuration settings.
type SpexploreConfig struct {
	// Paths locates batch output and the job executable.
	Paths PathsConfig `json:"paths" yaml:"paths"`

	// Cluster contains job submission settings.
	Cluster ClusterConfig `json:"cluster" yaml:"cluster"`

	// Dataset describes the synthetic dataset shared by a batch.
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`

	// Sweep contains parameter sweep settings.
	Sweep SweepConfig `json:"sweep" yaml:"sweep"`

	// Region configures the external Spatial Pooler.
	Region RegionConfig `json:"region" yaml:"region"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// PathsConfig locates batch output and the job executable.
type PathsConfig struct {
	// ResultsDir is the parent of every batch directory. A leading "~/"
	// expands to the home directory.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// Program is the executable each job runs. Empty means the running
	// spexplore binary.
	Program string `json:"program,omitempty" yaml:"program,omitempty"`
}

// ClusterConfig contains job submission settings.
type ClusterConfig struct {
	// Partition is the SLURM partition jobs are submitted to.
	Partition string `json:"partition" yaml:"partition"`

	// SubmitCommand is the submit program and leading arguments.
	SubmitCommand string `json:"submit_command" yaml:"submit_command"`

	// DryRun writes job scripts without submitting them.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// SubmitRate caps submissions per second. 0 means unlimited.
	SubmitRate float64 `json:"submit_rate" yaml:"submit_rate"`
}

// DatasetConfig describes the synthetic dataset.
type DatasetConfig struct {
	NSamples  int     `json:"nsamples" yaml:"nsamples"`
	NBits     int     `json:"nbits" yaml:"nbits"`
	PctActive float64 `json:"pct_active" yaml:"pct_active"`
	PctNoise  float64 `json:"pct_noise" yaml:"pct_noise"`
	Seed      int64   `json:"seed" yaml:"seed"`
}

// Params converts the section to dataset generation parameters.
func (c DatasetConfig) Params() dataset.Params {
	return dataset.Params{
		NSamples:  c.NSamples,
		NBits:     c.NBits,
		PctActive: c.PctActive,
		PctNoise:  c.PctNoise,
		Seed:      c.Seed,
	}
}

// SweepConfig contains parameter sweep settings.
type SweepConfig struct {
	// NTrials is the number of trials per parameter value.
	NTrials int `json:"ntrials" yaml:"ntrials"`
}

// RegionConfig configures the external Spatial Pooler.
type RegionConfig struct {
	// Command is the argv of the Spatial Pooler process.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// LoggingConfig configures spexplore's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`
}

// Default returns a SpexploreConfig with sensible defaults.
func Default() *SpexploreConfig {
	return &SpexploreConfig{
		Paths: PathsConfig{
			ResultsDir: "~/results",
		},
		Cluster: ClusterConfig{
			Partition:     constants.DefaultPartition,
			SubmitCommand: constants.DefaultSubmitCommand,
		},
		Dataset: DatasetConfig{
			NSamples:  constants.DefaultNSamples,
			NBits:     constants.DefaultNBits,
			PctActive: constants.DefaultPctActive,
			PctNoise:  constants.DefaultPctNoise,
			Seed:      constants.DefaultSeed,
		},
		Sweep: SweepConfig{
			NTrials: constants.DefaultNTrials,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.spexplore/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".spexplore", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.spexplore/config.yaml -> environment variables
func Load() (*SpexploreConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*SpexploreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Paths.ResultsDir = expandEnvVars(config.Paths.ResultsDir)
	config.Paths.Program = expandEnvVars(config.Paths.Program)

	return config, nil
}

// Save writes the configuration to path, creating its directory.
func Save(path string, cfg *SpexploreConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *SpexploreConfig) Validate() error {
	if c.Paths.ResultsDir == "" {
		return fmt.Errorf("results_dir must be set")
	}
	if c.Cluster.Partition == "" {
		return fmt.Errorf("partition must be set")
	}
	if !c.Cluster.DryRun && strings.TrimSpace(c.Cluster.SubmitCommand) == "" {
		return fmt.Errorf("submit_command must be set unless dry_run is enabled")
	}
	if c.Cluster.SubmitRate < 0 {
		return fmt.Errorf("submit_rate must be non-negative, got %f", c.Cluster.SubmitRate)
	}
	if err := c.Dataset.Params().Validate(); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if c.Dataset.Seed < 0 || c.Dataset.Seed > 1<<32-1 {
		return fmt.Errorf("dataset seed must be between 0 and 2^32-1, got %d", c.Dataset.Seed)
	}
	if c.Sweep.NTrials < 1 {
		return fmt.Errorf("ntrials must be at least 1, got %d", c.Sweep.NTrials)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// ResolvedResultsDir returns ResultsDir with a leading "~/" expanded.
func (c *SpexploreConfig) ResolvedResultsDir() (string, error) {
	dir := c.Paths.ResultsDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

// ResolvedProgram returns the configured program or the running executable.
func (c *SpexploreConfig) ResolvedProgram() (string, error) {
	if c.Paths.Program != "" {
		return c.Paths.Program, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving executable: %w", err)
	}
	return exe, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SpexploreConfig) {
	if v := os.Getenv("SPEXPLORE_RESULTS_DIR"); v != "" {
		config.Paths.ResultsDir = v
	}

	if v := os.Getenv("SPEXPLORE_PARTITION"); v != "" {
		config.Cluster.Partition = v
	}

	if v := os.Getenv("SPEXPLORE_SUBMIT_COMMAND"); v != "" {
		config.Cluster.SubmitCommand = v
	}

	if v := os.Getenv("SPEXPLORE_NTRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.NTrials = n
		}
	}

	if v := os.Getenv("SPEXPLORE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
