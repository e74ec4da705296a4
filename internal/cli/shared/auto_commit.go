package shared

import (
	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/config"
)

// AutoCommitFlagName is the flag name for enabling auto-commit.
const AutoCommitFlagName = "auto-commit"

// NoCommitFlagName is the flag name for disabling auto-commit.
const NoCommitFlagName = "no-commit"

// AddAutoCommitFlags adds --auto-commit and --no-commit flags to a command.
// These flags override the configured auto_commit behavior for a single execution.
// The flags are marked mutually exclusive.
func AddAutoCommitFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(AutoCommitFlagName, false, "Commit each applied fix even if auto_commit is disabled")
	cmd.Flags().Bool(NoCommitFlagName, false, "Write fixes without committing them")
	cmd.MarkFlagsMutuallyExclusive(AutoCommitFlagName, NoCommitFlagName)
}

// ApplyAutoCommitOverride updates the configuration's AutoCommit field based on CLI flags.
// Returns true if an override was applied.
// Priority: --auto-commit or --no-commit flag > config file > default (true).
func ApplyAutoCommitOverride(cmd *cobra.Command, cfg *config.Configuration) bool {
	if cmd.Flags().Lookup(AutoCommitFlagName) == nil {
		return false
	}
	if cmd.Flags().Changed(AutoCommitFlagName) {
		autoCommit, _ := cmd.Flags().GetBool(AutoCommitFlagName)
		cfg.AutoCommit = autoCommit
		return true
	}
	if cmd.Flags().Changed(NoCommitFlagName) {
		noCommit, _ := cmd.Flags().GetBool(NoCommitFlagName)
		cfg.AutoCommit = !noCommit
		return true
	}
	return false
}
