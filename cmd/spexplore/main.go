package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/nvandessel/spexplore/internal/config"
	"github.com/nvandessel/spexplore/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spexplore [<dir> <ntrials> <seed>]",
		Short: "Spatial Pooler parameter exploration",
		Long: `spexplore sweeps Spatial Pooler parameters on a SLURM cluster.

With no arguments it stages and submits the first-order effects batch under
<results_dir>/first_order. With three arguments it runs one configuration
directory, which is what every submitted job does:

  spexplore <dir> <ntrials> <seed>`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected no arguments or <dir> <ntrials> <seed>, got %d argument(s)", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 3 {
				return runSingle(cmd, args)
			}
			return runSweep(cmd, sweepFlags{})
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (default from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSweepCmd(),
		newRunCmd(),
		newSeedsCmd(),
		newCollectCmd(),
		newResultsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.SpexploreConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger. --log-level wins over the config.
func newLogger(cmd *cobra.Command, cfg *config.SpexploreConfig) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.Logging.Level
	}
	return logging.NewLogger(level, cmd.ErrOrStderr())
}

// parseRunArgs parses <ntrials> <seed>.
func parseRunArgs(ntrials, seed string) (int, int64, error) {
	n, err := strconv.Atoi(ntrials)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid ntrials %q: must be an integer", ntrials)
	}
	s, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid seed %q: must be an integer", seed)
	}
	return n, s, nil
}
