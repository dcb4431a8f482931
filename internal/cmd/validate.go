package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/dispatch/internal/models"
	"github.com/harrison/dispatch/internal/parser"
	"github.com/harrison/dispatch/internal/waves"
)

// defaultTaskEstimate is assumed per task when estimating mission duration.
const defaultTaskEstimate = 5 * time.Minute

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan-file>",
		Short: "Validate a mission plan without executing it",
		Long: `Validate a mission plan file.

The validate command parses the plan (Markdown or YAML), checks task IDs,
dependencies and cycles, and reports the resolved wave layout with a rough
duration estimate.

Examples:
  dispatch validate plan.md
  dispatch validate plan.yaml --quiet`,
		Args: cobra.ExactArgs(1),
		RunE: validateCommand,
	}

	cmd.Flags().Bool("quiet", false, "Only report errors, no layout summary")

	return cmd
}

// validateCommand implements the validate command logic
func validateCommand(cmd *cobra.Command, args []string) error {
	plan, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	groups, err := waves.DetectGroups(plan.Tasks)
	if err != nil {
		return fmt.Errorf("failed to resolve waves: %w", err)
	}

	out := cmd.OutOrStdout()
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		fmt.Fprintf(out, "%s: OK\n", args[0])
		return nil
	}

	fmt.Fprintf(out, "%s: OK\n", args[0])
	if plan.Objective != "" {
		fmt.Fprintf(out, "Objective: %s\n", plan.Objective)
	}
	fmt.Fprintf(out, "Tasks: %d\n", len(plan.Tasks))
	fmt.Fprintf(out, "Waves: %d\n", len(groups))

	byPriority := make(map[models.Priority]int)
	for _, task := range plan.Tasks {
		byPriority[task.Priority]++
	}
	var parts []string
	for _, p := range []models.Priority{models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if byPriority[p] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", byPriority[p], p))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(out, "Priorities: %s\n", strings.Join(parts, ", "))
	}

	estimate := waves.EstimateDuration(groups, nil, defaultTaskEstimate)
	fmt.Fprintf(out, "Estimated duration: %s (at %s per task)\n", estimate, defaultTaskEstimate)
	return nil
}
