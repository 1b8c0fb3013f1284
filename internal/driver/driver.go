// Package driver stages a batch of parameter sweeps on disk and submits one
// cluster job per generated configuration.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/dataset"
	"github.com/nvandessel/spexplore/internal/logging"
	"github.com/nvandessel/spexplore/internal/pathutil"
	"github.com/nvandessel/spexplore/internal/ratelimit"
	"github.com/nvandessel/spexplore/internal/results"
	"github.com/nvandessel/spexplore/internal/slurm"
	"github.com/nvandessel/spexplore/internal/sweep"
)

// Options configures a Driver.
type Options struct {
	// BaseDir is the batch root; every run directory is created below it.
	BaseDir string
	// Dataset describes the synthetic dataset shared by the batch.
	Dataset dataset.Params
	// NTrials is both the number of trial directories per parameter value
	// and the number of seeds each job runs.
	NTrials   int
	Partition string
	// Program is the executable each job runs.
	Program   string
	Submitter slurm.Submitter
	// Throttle, when set, paces submissions.
	Throttle *ratelimit.Limiter
	// Results, when set, records every submitted job.
	Results *results.Store
	Logger  *slog.Logger
}

// Summary counts what a Run staged and submitted.
type Summary struct {
	Batch   string `json:"batch"`
	BaseDir string `json:"base_dir"`
	Configs int    `json:"configs"`
	// Dirs counts run directories this Run created. Directories left by
	// an earlier batch are reused and not counted.
	Dirs   int `json:"dirs"`
	Groups int `json:"groups"`
	Jobs   int `json:"jobs"`
}

// Driver runs batches of experiments.
type Driver struct {
	opts Options
	now  func() time.Time
}

// New validates opts and returns a Driver.
func New(opts Options) (*Driver, error) {
	switch {
	case opts.BaseDir == "":
		return nil, errors.New("base directory is required")
	case opts.NTrials < 1:
		return nil, fmt.Errorf("ntrials must be at least 1, got %d", opts.NTrials)
	case opts.Partition == "":
		return nil, errors.New("partition is required")
	case opts.Program == "":
		return nil, errors.New("program is required")
	case opts.Submitter == nil:
		return nil, errors.New("submitter is required")
	}
	if err := opts.Dataset.Validate(); err != nil {
		return nil, err
	}
	base, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}
	opts.BaseDir = base
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{opts: opts, now: time.Now}, nil
}

// batch holds the state shared by every configuration of one Run.
type batch struct {
	id      string
	bundle  *dataset.Bundle
	events  *logging.EventLogger
	groups  map[string]struct{}
	summary *Summary
}

// Run stages and submits every configuration of experiments. The dataset
// is generated once and shared by the whole batch. Global inhibition runs
// before local for each experiment.
func (d *Driver) Run(ctx context.Context, experiments []sweep.Experiment) (*Summary, error) {
	for _, e := range experiments {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	if _, err := pathutil.EnsureDir(d.opts.BaseDir, 0755); err != nil {
		return nil, err
	}

	data, err := dataset.Generate(d.opts.Dataset)
	if err != nil {
		return nil, fmt.Errorf("generating dataset: %w", err)
	}
	events, err := logging.OpenEventLog(filepath.Join(d.opts.BaseDir, constants.JobsLogFile))
	if err != nil {
		return nil, err
	}
	defer events.Close()

	b := &batch{
		id:      uuid.NewString(),
		bundle:  dataset.NewBundle(data),
		events:  events,
		groups:  make(map[string]struct{}),
		summary: &Summary{BaseDir: d.opts.BaseDir},
	}
	b.summary.Batch = b.id
	d.opts.Logger.Info("starting batch",
		"batch", b.id,
		"base_dir", pathutil.RedactPath(d.opts.BaseDir),
		"experiments", len(experiments),
		"uniqueness", b.bundle.Metrics.Uniqueness,
		"overlap", b.bundle.Metrics.Overlap,
		"correlation", b.bundle.Metrics.Correlation)

	for _, e := range experiments {
		for _, global := range sweep.Modes {
			if err := d.runExperiment(ctx, b, e, global); err != nil {
				return b.summary, fmt.Errorf("experiment %s (%s): %w", e.Name, sweep.ModeName(global), err)
			}
		}
	}
	b.summary.Groups = len(b.groups)
	d.opts.Logger.Info("batch submitted", "batch", b.id, "jobs", b.summary.Jobs, "dirs", b.summary.Dirs)
	return b.summary, nil
}

func (d *Driver) runExperiment(ctx context.Context, b *batch, e sweep.Experiment, global bool) error {
	base := sweep.BuildBaseConfig(d.opts.BaseDir, e.Name, global, nil)
	gen, err := sweep.NewGenerator(base, e.Parameters, d.opts.NTrials,
		sweep.WithTrialSeeds(d.opts.Dataset.Seed))
	if err != nil {
		return err
	}
	for g := range gen.Configs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.submit(ctx, b, e, global, g); err != nil {
			return err
		}
	}
	return nil
}

// submit stages one configuration and hands its job script to the
// submitter.
func (d *Driver) submit(ctx context.Context, b *batch, e sweep.Experiment, global bool, g sweep.Generated) error {
	logDir := g.Config.LogDir()
	group, trial, err := sweep.SplitTrialSuffix(filepath.Base(logDir))
	if err != nil {
		return err
	}
	if group != g.Group || trial != g.Trial {
		return fmt.Errorf("log dir %q does not match group %q trial %d", logDir, g.Group, g.Trial)
	}
	dir, err := sweep.RunDir(logDir)
	if err != nil {
		return err
	}
	if err := pathutil.Within(dir, d.opts.BaseDir); err != nil {
		return err
	}

	res, err := pathutil.EnsureDir(dir, 0755)
	if err != nil {
		return err
	}
	d.opts.Logger.Debug("run directory", "dir", pathutil.RedactPath(dir), "result", res)
	b.summary.Configs++
	if res == pathutil.Created {
		b.summary.Dirs++
	}
	b.groups[filepath.Dir(dir)] = struct{}{}

	if err := sweep.WriteConfig(filepath.Join(dir, constants.ConfigFile), g.Config); err != nil {
		return err
	}
	if err := dataset.WriteBundle(filepath.Join(dir, constants.DatasetFile), b.bundle); err != nil {
		return err
	}

	seed, ok := g.Config[sweep.KeySeed].(int64)
	if !ok {
		return fmt.Errorf("config for %s has no trial seed", dir)
	}
	mode := constants.ModeFor(global)
	jobName := e.Name + "_" + mode.Letter() + g.Group
	spec := slurm.RunnerSpec{
		Command:     slurm.JobCommand(d.opts.Program, dir, d.opts.NTrials, seed),
		RunnerPath:  filepath.Join(dir, constants.RunnerFile),
		JobName:     jobName,
		Partition:   d.opts.Partition,
		StdoutPath:  filepath.Join(dir, constants.StdoutFile),
		StderrPath:  filepath.Join(dir, constants.StderrFile),
		TimeLimit:   e.TimeLimitFor(global),
		MemoryLimit: e.MemoryLimit,
	}
	if err := slurm.CreateRunner(spec); err != nil {
		return err
	}
	if d.opts.Throttle != nil {
		if err := d.opts.Throttle.Wait(ctx, "submit"); err != nil {
			return err
		}
	}
	jobID, err := d.opts.Submitter.Submit(ctx, spec.RunnerPath)
	if err != nil {
		return err
	}
	b.summary.Jobs++

	now := d.now()
	if err := b.events.Log(map[string]any{
		"event":      "job_submitted",
		"batch":      b.id,
		"experiment": e.Name,
		"mode":       mode.String(),
		"group":      g.Group,
		"trial":      g.Trial,
		"seed":       seed,
		"dir":        dir,
		"job_name":   jobName,
		"job_id":     jobID,
		"time":       now.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return err
	}
	if d.opts.Results != nil {
		if err := d.opts.Results.RecordJob(ctx, results.Job{
			Batch:       b.id,
			Experiment:  e.Name,
			Mode:        mode,
			Group:       g.Group,
			Dir:         dir,
			JobName:     jobName,
			JobID:       jobID,
			SubmittedAt: now,
		}); err != nil {
			return err
		}
	}
	d.opts.Logger.Info("submitted job", "job", jobName, "trial", g.Trial, "id", strconv.Quote(jobID))
	return nil
}
