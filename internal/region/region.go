// Package region adapts a Spatial Pooler implementation to the single-run
// executor. The pooler itself lives outside this module; CommandRegion talks
// to it as an external process.
package region

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/dataset"
	"github.com/nvandessel/spexplore/internal/logging"
	"github.com/nvandessel/spexplore/internal/sweep"
)

// Region is a trainable model that maps input SDRs to column activations.
type Region interface {
	// Fit trains the region on x.
	Fit(ctx context.Context, x *dataset.Matrix) error
	// Predict returns the column activations for x.
	Predict(ctx context.Context, x *dataset.Matrix) (*dataset.Matrix, error)
	// LogStats records a named statistic for the current trial.
	LogStats(name string, value float64) error
	// Close releases resources held by the region.
	Close() error
}

// Factory builds the region for one trial of a run. cfg already carries
// the trial's seed.
type Factory func(cfg sweep.Config, trial int) (Region, error)

// StatsHook writes statistics as JSON lines tagged with the seed and trial.
// Regions embed it to provide LogStats.
type StatsHook struct {
	events *logging.EventLogger
	seed   any
	trial  int
}

// OpenStatsHook appends to the stats file inside dir.
func OpenStatsHook(dir string, cfg sweep.Config, trial int) (*StatsHook, error) {
	el, err := logging.OpenEventLog(filepath.Join(dir, constants.StatsFile))
	if err != nil {
		return nil, fmt.Errorf("opening stats log: %w", err)
	}
	return &StatsHook{events: el, seed: cfg[sweep.KeySeed], trial: trial}, nil
}

// LogStats appends one statistic.
func (h *StatsHook) LogStats(name string, value float64) error {
	return h.events.Log(map[string]any{
		"name":  name,
		"value": value,
		"seed":  h.seed,
		"trial": h.trial,
	})
}

// Close closes the stats file.
func (h *StatsHook) Close() error {
	return h.events.Close()
}

// expectedColumns returns the configured column count, or 0 when the config
// does not pin one.
func expectedColumns(cfg sweep.Config) int {
	switch n := cfg["ncolumns"].(type) {
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	return 0
}
