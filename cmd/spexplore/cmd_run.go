package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/spexplore/internal/executor"
	"github.com/nvandessel/spexplore/internal/region"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <dir> <ntrials> <seed>",
		Short: "Run the trials of one configuration directory",
		Long: `Run ntrials trials of the configuration staged in dir.

Trial seeds derive from seed. Each trial trains the configured region
command and appends six statistics to stats.jsonl in dir. Submitted jobs
run the equivalent "spexplore <dir> <ntrials> <seed>".`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(cmd, args)
		},
	}
}

func runSingle(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ntrials, seedValue, err := parseRunArgs(args[1], args[2])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Region.Command) == 0 {
		return errors.New("region.command is not configured; set it with 'spexplore config set region.command \"<program> <args>\"'")
	}
	logger := newLogger(cmd, cfg)

	ex := executor.New(regionFactory(cfg.Region.Command, logger), logger)
	if err := ex.Run(cmd.Context(), dir, ntrials, seedValue); err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"status":  "completed",
			"dir":     dir,
			"ntrials": ntrials,
			"seed":    seedValue,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Completed %d trial(s) in %s\n", ntrials, dir)
	return nil
}

// regionFactory builds CommandRegions logging into each run directory.
func regionFactory(command []string, logger *slog.Logger) func(dir string) region.Factory {
	return func(dir string) region.Factory {
		return region.CommandFactory(command, dir, logger)
	}
}
