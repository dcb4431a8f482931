package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/dispatch/internal/config"
	"github.com/harrison/dispatch/internal/engine"
	"github.com/harrison/dispatch/internal/logger"
	"github.com/harrison/dispatch/internal/models"
	"github.com/harrison/dispatch/internal/parser"
	"github.com/harrison/dispatch/internal/waves"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Execute a mission plan",
		Long: `Execute a mission plan through the dispatch engine.

The run command parses the plan file (Markdown or YAML), classifies task
priorities, resolves dependencies, and drives tasks through the runner
command in parallel waves.

The runner command receives each task description on stdin and the task
metadata in DISPATCH_TASK_ID, DISPATCH_TASK_AGENT and DISPATCH_TASK_MODEL
environment variables. A zero exit status marks the task complete; its
stdout becomes the task output.

Examples:
  dispatch run plan.md --exec 'claude -p'
  dispatch run plan.yaml --exec ./run-task.sh --max-concurrency 4
  dispatch run plan.md --dry-run
  dispatch run plan.md --timeout 30m --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: "+defaultConfigPath+")")
	cmd.Flags().String("exec", "", "Shell command that executes one task (required unless --dry-run)")
	cmd.Flags().Bool("dry-run", false, "Parse the plan and show the wave layout without executing")
	cmd.Flags().Int("max-concurrency", -1, "Maximum number of concurrent tasks (-1 = use config)")
	cmd.Flags().String("timeout", "", "Maximum mission time (e.g., 30m, 2h)")
	cmd.Flags().Bool("verbose", false, "Show detailed execution information")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if n, _ := cmd.Flags().GetInt("max-concurrency"); n > 0 {
		cfg.MaxConcurrentTasks = n
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}

	plan, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	groups, err := waves.DetectGroups(plan.Tasks)
	if err != nil {
		return fmt.Errorf("failed to resolve waves: %w", err)
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		printWaveLayout(cmd, plan, groups)
		return nil
	}

	execTemplate, _ := cmd.Flags().GetString("exec")
	if execTemplate == "" {
		return fmt.Errorf("--exec is required (or use --dry-run to inspect the plan)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if timeoutStr, _ := cmd.Flags().GetString("timeout"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", timeoutStr, err)
		}
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	log := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	eng := engine.New(cfg, engine.Options{Logger: log})
	if err := eng.Init(); err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.RunMission(ctx, plan, execRunner(execTemplate))
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d task(s) failed", result.Failed, result.TotalTasks)
	}
	return nil
}

// execRunner adapts a shell command into a task runner. The command gets
// the task description on stdin and task metadata in the environment.
func execRunner(command string) waves.Runner {
	return waves.RunnerFunc(func(ctx context.Context, task models.Task) (models.TaskResult, error) {
		var stdout, stderr bytes.Buffer

		proc := exec.CommandContext(ctx, "sh", "-c", command)
		proc.Stdin = strings.NewReader(task.Description)
		proc.Stdout = &stdout
		proc.Stderr = &stderr
		proc.Env = append(os.Environ(),
			"DISPATCH_TASK_ID="+task.ID,
			"DISPATCH_TASK_AGENT="+task.Agent,
			"DISPATCH_TASK_MODEL="+task.Model,
		)

		start := time.Now()
		err := proc.Run()
		result := models.TaskResult{
			Task:     task,
			Success:  err == nil,
			Output:   stdout.String(),
			Duration: time.Since(start),
		}
		if err != nil {
			result.Error = fmt.Errorf("runner failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return result, nil
	})
}

// printWaveLayout shows the plan's wave structure without executing it.
func printWaveLayout(cmd *cobra.Command, plan *models.Plan, groups []waves.Wave) {
	out := cmd.OutOrStdout()

	if plan.Objective != "" {
		fmt.Fprintf(out, "Objective: %s\n", plan.Objective)
	}
	fmt.Fprintf(out, "%d task(s) in %d wave(s)\n\n", len(plan.Tasks), len(groups))

	for _, wave := range groups {
		fmt.Fprintf(out, "%s:\n", wave.Name)
		for _, task := range wave.Tasks {
			deps := "-"
			if len(task.Dependencies) > 0 {
				deps = strings.Join(task.Dependencies, ", ")
			}
			fmt.Fprintf(out, "  %-20s [%s] deps: %s\n", task.ID, task.Priority, deps)
		}
	}
}
