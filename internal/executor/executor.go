// Package executor runs the trials of one configuration directory: it loads
// the staged config and dataset, trains a region per derived seed and logs
// the input and output statistics.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/dataset"
	"github.com/nvandessel/spexplore/internal/region"
	"github.com/nvandessel/spexplore/internal/seed"
	"github.com/nvandessel/spexplore/internal/sweep"
)

// Executor runs trials against regions built by Factory.
type Executor struct {
	// Factory builds the region for a run directory.
	Factory func(dir string) region.Factory
	Logger  *slog.Logger
}

// New returns an Executor. A nil logger discards output.
func New(factory func(dir string) region.Factory, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{Factory: factory, Logger: logger}
}

// Run executes ntrials trials for the run in dir. Trial seeds derive from
// seed. Cancelling ctx stops the run before the next trial starts.
func (e *Executor) Run(ctx context.Context, dir string, ntrials int, seedValue int64) error {
	if ntrials < 1 {
		return fmt.Errorf("ntrials must be at least 1, got %d", ntrials)
	}
	seeds, err := seed.GenerateSeeds(ntrials, seedValue)
	if err != nil {
		return err
	}

	cfg, err := sweep.ReadConfig(filepath.Join(dir, constants.ConfigFile))
	if err != nil {
		return fmt.Errorf("loading run config: %w", err)
	}
	b, err := dataset.ReadBundle(filepath.Join(dir, constants.DatasetFile))
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	// A requeued job logs every trial again, so start the stats over.
	if err := os.Remove(filepath.Join(dir, constants.StatsFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing stats: %w", err)
	}

	factory := e.Factory(dir)
	for trial, s := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Logger.Info("starting trial", "dir", dir, "trial", trial, "seed", s)
		if err := e.runTrial(ctx, factory, cfg, b, trial, s); err != nil {
			return fmt.Errorf("trial %d (seed %d): %w", trial, s, err)
		}
	}
	return nil
}

func (e *Executor) runTrial(ctx context.Context, factory region.Factory, base sweep.Config, b *dataset.Bundle, trial int, s int64) (err error) {
	cfg := base.Clone()
	cfg[sweep.KeySeed] = s

	r, err := factory(cfg, trial)
	if err != nil {
		return fmt.Errorf("building region: %w", err)
	}
	defer func() {
		err = errors.Join(err, r.Close())
	}()

	if err := r.Fit(ctx, b.Data); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	out, err := r.Predict(ctx, b.Data)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	sp := dataset.ComputeMetrics(out)
	stats := []struct {
		name  string
		value float64
	}{
		{constants.StatInputUniqueness, b.Metrics.Uniqueness},
		{constants.StatInputOverlap, b.Metrics.Overlap},
		{constants.StatInputCorrelation, b.Metrics.Correlation},
		{constants.StatSPUniqueness, sp.Uniqueness},
		{constants.StatSPOverlap, sp.Overlap},
		{constants.StatSPCorrelation, sp.Correlation},
	}
	for _, st := range stats {
		if err := r.LogStats(st.name, st.value); err != nil {
			return fmt.Errorf("logging %s: %w", st.name, err)
		}
		e.Logger.Debug("stat", "trial", trial, "name", st.name, "value", st.value)
	}
	return nil
}
