// agentqms - Artifact metadata compliance and auto-remediation

// Package cli provides the Cobra-based commands of agentqms: validating and
// fixing document headers, corpus statistics, watch mode and the fix journal.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
)

// Command group IDs for organizing help output (re-exported from shared)
const (
	GroupCompliance = shared.GroupCompliance
	GroupInspection = shared.GroupInspection
	GroupGeneral    = shared.GroupGeneral
)

var rootCmd = NewRootCmd()

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentqms",
		Short: "Artifact metadata compliance and auto-remediation",
		Long: `agentqms validates the YAML frontmatter of a Markdown artifact corpus against
a declarative rule set, repairs a bounded set of violations and records every
repair as a git commit.`,
		Example: `  # Validate every document under the configured docs root
  agentqms validate

  # Validate one document and print JSON
  agentqms validate plans/2025-01-01_plan.md --json

  # Preview a fix, then apply and commit it
  agentqms fix plans/2025-01-01_plan.md missing_required_field --dry-run
  agentqms fix plans/2025-01-01_plan.md missing_required_field

  # Revalidate documents as they change
  agentqms watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddGroup(&cobra.Group{ID: GroupCompliance, Title: "Compliance:"})
	root.AddGroup(&cobra.Group{ID: GroupInspection, Title: "Inspection:"})
	root.AddGroup(&cobra.Group{ID: GroupGeneral, Title: "General:"})
	root.SetHelpCommandGroupID(GroupGeneral)
	root.SetCompletionCommandGroupID(GroupGeneral)

	// Global flags
	root.PersistentFlags().StringP("config", "c", "", "Path to config file (default .agentqms/config.yml)")
	root.PersistentFlags().String("docs-dir", "", "Directory containing the documents (overrides docs_dir)")
	root.PersistentFlags().String("rules", "", "Rule file (overrides rules_file)")
	root.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	root.AddCommand(
		newValidateCmd(),
		newFixCmd(),
		newWatchCmd(),
		newStatsCmd(),
		newRulesCmd(),
		newHistoryCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and prints any error worth showing.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !shared.IsExitError(err) {
		fmt.Fprintf(os.Stderr, "%s %v\n", shared.Red("Error:"), err)
	}
	return err
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	return shared.ExitCode(err)
}
