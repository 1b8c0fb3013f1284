package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nvandessel/spexplore/internal/config"
	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/driver"
	"github.com/nvandessel/spexplore/internal/preset"
	"github.com/nvandessel/spexplore/internal/ratelimit"
	"github.com/nvandessel/spexplore/internal/results"
	"github.com/nvandessel/spexplore/internal/slurm"
	"github.com/nvandessel/spexplore/internal/sweep"
	"github.com/spf13/cobra"
)

// sweepFlags are the per-invocation overrides of the sweep command. Zero
// values fall back to the config.
type sweepFlags struct {
	catalog   string
	baseDir   string
	ntrials   int
	partition string
	dryRun    bool
}

func newSweepCmd() *cobra.Command {
	var f sweepFlags
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Stage and submit a batch of parameter sweeps",
		Long: `Stage one directory per configuration and trial, then submit a job for each.

Without --catalog the built-in first-order effects experiments run.

Examples:
  spexplore sweep                                  # first-order batch
  spexplore sweep --catalog sweeps.yaml --dry-run  # write scripts only
  spexplore sweep --base-dir /scratch/run1 --ntrials 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.catalog, "catalog", "", "YAML experiment catalog (default: first-order effects)")
	cmd.Flags().StringVar(&f.baseDir, "base-dir", "", "Batch directory (default: <results_dir>/first_order)")
	cmd.Flags().IntVar(&f.ntrials, "ntrials", 0, "Trials per parameter value (default from config)")
	cmd.Flags().StringVar(&f.partition, "partition", "", "Cluster partition (default from config)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Write job scripts without submitting them")

	return cmd
}

// defaultBaseDir returns <results_dir>/first_order.
func defaultBaseDir(cfg *config.SpexploreConfig) (string, error) {
	resultsDir, err := cfg.ResolvedResultsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(resultsDir, constants.FirstOrderDir), nil
}

// baseDirFlag returns --base-dir or the default batch directory.
func baseDirFlag(cmd *cobra.Command, cfg *config.SpexploreConfig) (string, error) {
	if dir, _ := cmd.Flags().GetString("base-dir"); dir != "" {
		return dir, nil
	}
	return defaultBaseDir(cfg)
}

func runSweep(cmd *cobra.Command, f sweepFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	experiments := preset.FirstOrderEffects()
	if f.catalog != "" {
		if experiments, err = sweep.LoadCatalog(f.catalog); err != nil {
			return err
		}
	}

	baseDir := f.baseDir
	if baseDir == "" {
		if baseDir, err = defaultBaseDir(cfg); err != nil {
			return err
		}
	}
	ntrials := cfg.Sweep.NTrials
	if f.ntrials != 0 {
		ntrials = f.ntrials
	}
	partition := cfg.Cluster.Partition
	if f.partition != "" {
		partition = f.partition
	}
	program, err := cfg.ResolvedProgram()
	if err != nil {
		return err
	}

	var submitter slurm.Submitter
	dryRun := f.dryRun || cfg.Cluster.DryRun
	if dryRun {
		submitter = &slurm.DryRunSubmitter{}
	} else {
		submitter = slurm.NewCommandSubmitter(cfg.Cluster.SubmitCommand)
	}
	var throttle *ratelimit.Limiter
	if cfg.Cluster.SubmitRate > 0 {
		throttle = ratelimit.NewLimiter(cfg.Cluster.SubmitRate, 1)
	}

	store, err := results.OpenDir(baseDir)
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := driver.New(driver.Options{
		BaseDir:   baseDir,
		Dataset:   cfg.Dataset.Params(),
		NTrials:   ntrials,
		Partition: partition,
		Program:   program,
		Submitter: submitter,
		Throttle:  throttle,
		Results:   store,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	summary, err := d.Run(cmd.Context(), experiments)
	if err != nil {
		if summary != nil && summary.Jobs > 0 {
			return fmt.Errorf("sweep failed after %d job(s): %w", summary.Jobs, err)
		}
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"summary": summary,
			"dry_run": dryRun,
		})
	}
	verb := "Submitted"
	if dryRun {
		verb = "Staged (dry run)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d job(s) for %d configuration(s) in %d group(s)\n", verb, summary.Jobs, summary.Configs, summary.Groups)
	fmt.Fprintf(cmd.OutOrStdout(), "  batch:    %s\n", summary.Batch)
	fmt.Fprintf(cmd.OutOrStdout(), "  base dir: %s\n", summary.BaseDir)
	return nil
}
