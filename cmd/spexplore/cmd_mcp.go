package main

import (
	"fmt"

	"github.com/nvandessel/spexplore/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve batch jobs and results over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the
spexplore_results, spexplore_jobs and spexplore_seeds tools for one batch.`,
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

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "spexplore",
				Version: version,
				BaseDir: baseDir,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			newLogger(cmd, cfg).Info("mcp server starting", "base_dir", baseDir)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().String("base-dir", "", "Batch directory (default: <results_dir>/first_order)")

	return cmd
}
