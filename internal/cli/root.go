// Package cli wires the mergeq commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mergeq.dev/mergeq/internal/config"
	"mergeq.dev/mergeq/internal/logging"
	"mergeq.dev/mergeq/internal/merger"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mergeq",
		Short: "mergeq computes and publishes speculative merge states for change-gating CI",
		Long: `mergeq is the speculative-merge engine of a change-gating CI system.

Given an ordered queue of proposed changes it computes, for each change in
order, a merged working state and publishes it through marker references, so
build and test jobs can check out a consistent speculative view without the
changes' real target branches ever being touched.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newMergeCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newPushCmd())

	return rootCmd
}

// setup loads configuration, builds the logger and constructs the engine.
func setup(cmd *cobra.Command) (*merger.Merger, *zap.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	m, err := merger.New(merger.Options{
		WorkingRoot: cfg.WorkingRoot,
		Email:       cfg.Git.Email,
		Username:    cfg.Git.Username,
		Connections: cfg.ConnectionKeys(),
		Logger:      log.Named("merger"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create merger: %w", err)
	}
	return m, log, nil
}
