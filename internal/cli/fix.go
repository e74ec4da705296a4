package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/git"
	"github.com/wchoi189/agentqms/internal/remediation"
)

func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <path> <rule_id>",
		Short: "Apply the automatic fix for a violation",
		Long: `Apply the automatic fix for rule_id to one document.

Each fix sets at most one header field, so run it repeatedly until it reports
that no fix is available. Applied fixes are committed to git unless
--no-commit is given or auto_commit is disabled.

Fixable rules: missing_required_field (date, status, category, tags in that
order) and invalid_status (reset to draft).`,
		Example: `  # Preview the change as a unified diff
  agentqms fix plans/plan.md missing_required_field --dry-run

  # Apply without committing
  agentqms fix plans/plan.md invalid_status --no-commit`,
		Args:    cobra.ExactArgs(2),
		GroupID: GroupCompliance,
		RunE:    withApp(runFix),
	}
	cmd.Flags().Bool("dry-run", false, "Show the change without writing it")
	cmd.Flags().Bool("json", false, "Print the fix result as JSON")
	shared.AddAutoCommitFlags(cmd)
	return cmd
}

func runFix(cmd *cobra.Command, a *app, args []string) error {
	target, ruleID := args[0], args[1]
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	result, err := a.service.Fix(cmd.Context(), target, ruleID, dryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := shared.WriteJSON(out, result); err != nil {
			return err
		}
	} else {
		printFixResult(out, result)
		if result.GitCommitted {
			printLastCommit(out, a, target)
		}
	}

	if !result.Success {
		return shared.NewExitError(shared.ExitValidationFailed)
	}
	return nil
}

func printFixResult(out io.Writer, result *remediation.FixResult) {
	if !result.Success {
		fmt.Fprintf(out, "%s %s\n", shared.Yellow(shared.SymbolWarn), result.Message)
		return
	}
	fmt.Fprintf(out, "%s %s\n", shared.Green(shared.SymbolOK), result.Message)
	if result.DryRun && result.Diff != "" {
		fmt.Fprintln(out)
		for _, line := range strings.Split(result.Diff, "\n") {
			switch {
			case len(line) > 0 && line[0] == '+':
				fmt.Fprintln(out, shared.Green(line))
			case len(line) > 0 && line[0] == '-':
				fmt.Fprintln(out, shared.Red(line))
			default:
				fmt.Fprintln(out, line)
			}
		}
	}
}

// printLastCommit shows the commit that recorded the fix.
func printLastCommit(out io.Writer, a *app, target string) {
	path, err := a.service.Resolve(target)
	if err != nil {
		return
	}
	root, err := filepath.Abs(a.cfg.RepoRoot)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return
	}
	info, err := git.LastCommit(a.opener, root, filepath.ToSlash(rel))
	if err != nil {
		a.logger.Debug("last commit lookup failed", "path", rel, "error", err)
		return
	}
	fmt.Fprintf(out, "  %s %s %s\n", shared.Dim("committed"), shared.Cyan(info.ShortHash), info.Message)
}
