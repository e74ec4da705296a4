package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/compliance"
	"github.com/wchoi189/agentqms/internal/progress"
	"github.com/wchoi189/agentqms/internal/stats"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [dir]",
		Short: "Show corpus statistics and link health",
		Long: `Summarize the documents under the docs root (or a directory relative to it):
type distribution, header completeness and the health of relative links.`,
		Args:    cobra.MaximumNArgs(1),
		GroupID: GroupInspection,
		RunE:    withApp(runStats),
	}
	cmd.Flags().Bool("json", false, "Print statistics as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, a *app, args []string) error {
	target := compliance.TargetAll
	if len(args) > 0 {
		target = args[0]
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	caps := terminalCaps(cmd)
	spin := progress.NewSpinner(caps)
	if !asJSON {
		spin.Start("Collecting statistics")
	}
	summary, err := a.service.Stats(cmd.Context(), target, stats.Options{Workers: a.cfg.Workers})
	if err != nil {
		spin.Fail("Collecting statistics failed")
		return err
	}
	spin.Done(fmt.Sprintf("Inspected %d documents", summary.TotalDocs))

	if asJSON {
		return shared.WriteJSON(cmd.OutOrStdout(), summary)
	}
	printStats(cmd.OutOrStdout(), summary, caps.Width)
	return nil
}

// printStats renders s; width is the terminal width, 0 when unknown.
func printStats(out io.Writer, s *stats.Summary, width int) {
	if width <= 0 {
		width = 80
	}
	rule := strings.Repeat("─", min(width, 48))

	fmt.Fprintf(out, "%s %d\n", shared.Bold("Documents:"), s.TotalDocs)
	if s.ParseFailures > 0 {
		fmt.Fprintf(out, "  %s %d with unreadable headers\n", shared.Yellow(shared.SymbolWarn), s.ParseFailures)
	}
	fmt.Fprintln(out, shared.Dim(rule))
	for _, tc := range s.Distribution {
		fmt.Fprintf(out, "  %-24s %d\n", tc.Type, tc.Count)
	}
	fmt.Fprintln(out, shared.Dim(rule))
	fmt.Fprintf(out, "  %-24s %d%%\n", "Schema compliance", s.SchemaCompliance)
	fmt.Fprintf(out, "  %-24s %d%%\n", "Timestamp accuracy", s.TimestampAccuracy)
	fmt.Fprintf(out, "  %-24s %d%%\n", "Branch integration", s.BranchIntegration)
	fmt.Fprintf(out, "  %-24s %d%% (%d/%d links ok)\n", "Reference health",
		s.ReferenceHealth, s.LinksChecked-s.BrokenLinks, s.LinksChecked)

	if len(s.Broken) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, shared.Bold("Broken links:"))
	for _, b := range s.Broken {
		loc := b.Source
		if b.Line > 0 {
			loc = fmt.Sprintf("%s:%d", b.Source, b.Line)
		}
		fmt.Fprintf(out, "  %s %s -> %s\n", shared.Red(shared.SymbolFail), loc, b.Target)
	}
}
