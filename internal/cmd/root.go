// Package cmd defines the dispatch command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// defaultConfigPath is where dispatch looks for configuration unless
// --config overrides it.
const defaultConfigPath = ".dispatch/config.yaml"

// NewRootCommand creates and returns the root cobra command for dispatch
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Mission execution engine for LLM agent tasks",
		Long: `Dispatch executes mission plans by classifying task priorities,
resolving dependencies into parallel waves, and driving tasks through an
external runner with adaptive retries, checkpoints and quality gating.

Plans are Markdown or YAML files; configuration is read from
.dispatch/config.yaml when present.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewStatusCommand())

	return cmd
}
