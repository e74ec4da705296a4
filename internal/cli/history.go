package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View the journal of applied fixes",
		Long: `View the journal of fix attempts, newest first: timestamp, document, rule,
the field that was set and whether the change was committed.`,
		Example: `  # Last ten fixes
  agentqms history -n 10

  # Fixes to one document
  agentqms history --path plans/plan.md`,
		Args:    cobra.NoArgs,
		GroupID: GroupInspection,
		RunE:    withApp(runHistory),
	}
	cmd.Flags().StringP("path", "p", "", "Filter by document path (suffix match)")
	cmd.Flags().StringP("rule", "r", "", "Filter by rule id")
	cmd.Flags().IntP("limit", "n", 0, "Limit to the N most recent entries")
	cmd.Flags().Bool("clear", false, "Clear the journal")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, a *app, _ []string) error {
	return runHistoryWithStateDir(cmd, a.cfg.StateDir)
}

// runHistoryWithStateDir runs the history command against stateDir.
func runHistoryWithStateDir(cmd *cobra.Command, stateDir string) error {
	clearFlag, _ := cmd.Flags().GetBool("clear")
	pathFilter, _ := cmd.Flags().GetString("path")
	ruleFilter, _ := cmd.Flags().GetString("rule")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	if limit < 0 {
		return shared.NewExitError(shared.ExitInvalidArguments)
	}

	out := cmd.OutOrStdout()
	if clearFlag {
		if err := history.Clear(stateDir); err != nil {
			return fmt.Errorf("clearing fix journal: %w", err)
		}
		fmt.Fprintln(out, "Fix journal cleared.")
		return nil
	}

	journal, err := history.Load(stateDir)
	if err != nil {
		return fmt.Errorf("loading fix journal: %w", err)
	}
	entries := journal.Query(history.Filter{Path: pathFilter, RuleID: ruleFilter, Limit: limit})

	if asJSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		return shared.WriteJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No fixes recorded.")
		return nil
	}
	displayEntries(out, entries)
	return nil
}

// displayEntries formats and displays journal entries.
func displayEntries(out io.Writer, entries []history.Entry) {
	for _, e := range entries {
		status := shared.Green(shared.SymbolOK)
		if !e.Success {
			status = shared.Yellow("-")
		}
		committed := shared.Dim("uncommitted")
		if e.GitCommitted {
			committed = shared.Green("committed")
		}
		field := e.Field
		if field == "" {
			field = "-"
		}
		fmt.Fprintf(out, "%s  %s %-40s  %-24s  %-10s  %s\n",
			shared.Cyan(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
			status,
			e.Path,
			e.RuleID,
			field,
			committed,
		)
	}
}
