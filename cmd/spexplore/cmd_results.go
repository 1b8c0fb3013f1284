package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/spexplore/internal/results"
	"github.com/spf13/cobra"
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Import logged trial statistics into the results database",
		Long: `Walk the batch directory and import every run's stats.jsonl into
results.db. Re-importing a run replaces its earlier rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			baseDir, err := baseDirFlag(cmd, cfg)
			if err != nil {
				return err
			}

			store, err := results.OpenDir(baseDir)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Collect(cmd.Context(), baseDir)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d statistic(s) from %d run(s)\n", res.Stats, res.Runs)
			return nil
		},
	}

	cmd.Flags().String("base-dir", "", "Batch directory (default: <results_dir>/first_order)")

	return cmd
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Summarize collected statistics",
		Long: `Print the mean, standard deviation and trial count of every statistic
per experiment, inhibition mode and parameter group. Run 'spexplore collect'
first to import finished runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			experiment, _ := cmd.Flags().GetString("experiment")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			baseDir, err := baseDirFlag(cmd, cfg)
			if err != nil {
				return err
			}

			store, err := results.OpenDir(baseDir)
			if err != nil {
				return err
			}
			defer store.Close()

			sums, err := store.Summaries(cmd.Context(), experiment)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if sums == nil {
					sums = []results.Summary{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"summaries": sums,
					"count":     len(sums),
				})
			}

			out := cmd.OutOrStdout()
			if len(sums) == 0 {
				fmt.Fprintln(out, "No results collected yet. Run 'spexplore collect' first.")
				return nil
			}
			fmt.Fprintf(out, "%-12s %-6s %-24s %-18s %10s %10s %5s\n", "EXPERIMENT", "MODE", "GROUP", "STAT", "MEAN", "STDDEV", "N")
			for _, s := range sums {
				fmt.Fprintf(out, "%-12s %-6s %-24s %-18s %10.4f %10.4f %5d\n",
					s.Experiment, s.Mode, s.Group, s.Name, s.Mean, s.StdDev, s.Count)
			}
			return nil
		},
	}

	cmd.Flags().String("base-dir", "", "Batch directory (default: <results_dir>/first_order)")
	cmd.Flags().String("experiment", "", "Only show this experiment")

	return cmd
}
