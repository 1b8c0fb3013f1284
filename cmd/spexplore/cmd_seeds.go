package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/spexplore/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seeds <ntrials> <seed>",
		Short: "Print the per-trial seeds derived from a seed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ntrials, seedValue, err := parseRunArgs(args[0], args[1])
			if err != nil {
				return err
			}
			seeds, err := seed.GenerateSeeds(ntrials, seedValue)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"seeds": seeds})
			}
			for i, s := range seeds {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", i, s)
			}
			return nil
		},
	}
}
