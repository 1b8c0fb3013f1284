package region

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nvandessel/spexplore/internal/dataset"
	"github.com/nvandessel/spexplore/internal/errs"
	"github.com/nvandessel/spexplore/internal/sweep"
)

// CommandRegion runs an external Spatial Pooler process. Fit stages the
// configuration and training data; Predict runs the process, which trains
// on the staged data and writes the activations for the prediction input.
//
// The process is invoked as
//
//	<command...> --config <config.json> --input <train.arrow> --predict <x.arrow> --output <out.arrow>
type CommandRegion struct {
	*StatsHook

	command []string
	cfg     sweep.Config
	workDir string
	fitted  bool
	logger  *slog.Logger
}

// CommandFactory returns a Factory building CommandRegions that log their
// statistics into dir.
func CommandFactory(command []string, dir string, logger *slog.Logger) Factory {
	return func(cfg sweep.Config, trial int) (Region, error) {
		return NewCommandRegion(command, dir, cfg, trial, logger)
	}
}

// NewCommandRegion prepares a region for one trial.
func NewCommandRegion(command []string, dir string, cfg sweep.Config, trial int, logger *slog.Logger) (*CommandRegion, error) {
	if len(command) == 0 {
		return nil, errors.New("region command is not configured")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hook, err := OpenStatsHook(dir, cfg, trial)
	if err != nil {
		return nil, err
	}
	work, err := os.MkdirTemp("", "spexplore-region-*")
	if err != nil {
		hook.Close()
		return nil, fmt.Errorf("creating region work dir: %w", err)
	}
	return &CommandRegion{
		StatsHook: hook,
		command:   command,
		cfg:       cfg.Clone(),
		workDir:   work,
		logger:    logger,
	}, nil
}

// Fit stages the configuration and training data for Predict.
func (r *CommandRegion) Fit(ctx context.Context, x *dataset.Matrix) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, cols := x.Dims(); cols == 0 {
		return errors.New("fit: input has no bits")
	}
	if err := sweep.WriteConfig(r.path("config.json"), r.cfg); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	if err := dataset.WriteBundle(r.path("train.arrow"), dataset.NewBundle(x)); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	r.fitted = true
	return nil
}

// Predict runs the external process and reads back the activations.
func (r *CommandRegion) Predict(ctx context.Context, x *dataset.Matrix) (*dataset.Matrix, error) {
	if !r.fitted {
		return nil, &errs.UnsupportedFunctionError{Type: "CommandRegion", Function: "Predict"}
	}
	if err := dataset.WriteBundle(r.path("predict.arrow"), dataset.NewBundle(x)); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	out := r.path("out.arrow")
	args := append(append([]string{}, r.command[1:]...),
		"--config", r.path("config.json"),
		"--input", r.path("train.arrow"),
		"--predict", r.path("predict.arrow"),
		"--output", out,
	)
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("running region", "command", r.command[0], "trial", r.trial)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("predict: running %s: %w: %s", r.command[0], err, strings.TrimSpace(stderr.String()))
	}

	b, err := dataset.ReadBundle(out)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	rows, _ := x.Dims()
	if got, _ := b.Data.Dims(); got != rows {
		return nil, fmt.Errorf("predict: region returned %d rows for %d inputs", got, rows)
	}
	if n := expectedColumns(r.cfg); n > 0 {
		if err := b.Data.CheckWidth(n); err != nil {
			return nil, err
		}
	}
	return b.Data, nil
}

// Close removes the work directory and closes the stats file.
func (r *CommandRegion) Close() error {
	rmErr := os.RemoveAll(r.workDir)
	return errors.Join(r.StatsHook.Close(), rmErr)
}

func (r *CommandRegion) path(name string) string {
	return filepath.Join(r.workDir, name)
}
