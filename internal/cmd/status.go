package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/dispatch/internal/config"
	"github.com/harrison/dispatch/internal/profiler"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show engine state and recent execution history",
		Long: `Show the dispatch workspace state: configuration in effect,
checkpoint directory contents, and recent task outcomes from the
execution history database.

Examples:
  dispatch status
  dispatch status --recent 20`,
		Args: cobra.NoArgs,
		RunE: statusCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: "+defaultConfigPath+")")
	cmd.Flags().Int("recent", 10, "Number of recent task samples to show")

	return cmd
}

// statusCommand implements the status command logic
func statusCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration (%s):\n", configPath)
	fmt.Fprintf(out, "  Max concurrent tasks: %d\n", cfg.MaxConcurrentTasks)
	fmt.Fprintf(out, "  API quota limit: %d\n", cfg.APIQuotaLimit)
	fmt.Fprintf(out, "  Checkpoint dir: %s\n", cfg.CheckpointDir)
	fmt.Fprintf(out, "  Profile DB: %s\n", profileDBLabel(cfg.ProfileDB))

	printCheckpointSummary(cmd, cfg.CheckpointDir)

	if cfg.ProfileDB == "" {
		return nil
	}
	if _, err := os.Stat(cfg.ProfileDB); os.IsNotExist(err) {
		fmt.Fprintf(out, "\nNo execution history yet.\n")
		return nil
	}

	history, err := profiler.NewHistoryStore(cfg.ProfileDB)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	limit, _ := cmd.Flags().GetInt("recent")
	samples, err := history.RecentSamples(limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	fmt.Fprintf(out, "\nRecent tasks (%d):\n", len(samples))
	for _, sample := range samples {
		status := "ok"
		if !sample.Success {
			status = "FAILED"
		}
		agent := sample.Agent
		if agent == "" {
			agent = "-"
		}
		fmt.Fprintf(out, "  %-20s %-12s %-7s %s\n",
			sample.TaskID, agent, status, sample.Duration.Round(time.Millisecond))
	}
	return nil
}

// printCheckpointSummary reports how many tasks have pending checkpoints.
func printCheckpointSummary(cmd *cobra.Command, dir string) {
	out := cmd.OutOrStdout()

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(out, "\nNo checkpoints.\n")
		return
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && entry.Name() != ".lock" {
			count++
		}
	}
	fmt.Fprintf(out, "\nCheckpoints on disk: %d\n", count)
}

func profileDBLabel(path string) string {
	if path == "" {
		return "(disabled)"
	}
	return path
}
