package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/compliance"
	"github.com/wchoi189/agentqms/internal/progress"
	"github.com/wchoi189/agentqms/internal/validation"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [target]",
		Short: "Validate document headers against the rule set",
		Long: `Validate the frontmatter of documents under the docs root.

The target is "all" (the default), a document path or a directory path, both
relative to the docs root. Exits with status 1 when any violation is found.`,
		Example: `  # Validate everything
  agentqms validate

  # Validate one subtree and print JSON
  agentqms validate plans --json

  # Only print the summary line
  agentqms validate --quiet

  # Show rule, severity and field for every violation
  agentqms validate --verbose`,
		Args:    cobra.MaximumNArgs(1),
		GroupID: GroupCompliance,
		RunE:    withApp(runValidate),
	}
	cmd.Flags().Bool("json", false, "Print the aggregate report as JSON")
	cmd.Flags().BoolP("quiet", "q", false, "Only print the summary")
	cmd.Flags().BoolP("verbose", "v", false, "Print rule, severity and field for each violation")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	return cmd
}

func runValidate(cmd *cobra.Command, a *app, args []string) error {
	target := compliance.TargetAll
	if len(args) > 0 {
		target = args[0]
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")

	spin := progress.NewSpinner(terminalCaps(cmd))
	if !asJSON {
		spin.Start(fmt.Sprintf("Validating %s", target))
	}
	agg, err := a.service.Validate(cmd.Context(), target)
	if err != nil {
		spin.Fail(fmt.Sprintf("Validating %s failed", target))
		return err
	}
	spin.Done(fmt.Sprintf("Validated %d documents", agg.Total))

	out := cmd.OutOrStdout()
	if asJSON {
		if err := shared.WriteJSON(out, agg); err != nil {
			return err
		}
	} else {
		if !quiet {
			printReports(out, a, agg.Reports, verbose)
		}
		printSummary(out, agg)
	}

	if len(agg.Violations) > 0 {
		return shared.NewExitError(shared.ExitValidationFailed)
	}
	return nil
}

// printReports lists every non-compliant document with its violations.
func printReports(out io.Writer, a *app, reports []*validation.Report, verbose bool) {
	for _, r := range reports {
		if len(r.Violations) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", shared.Red(shared.SymbolFail), shared.Bold(a.relative(r.Path)))
		for _, v := range r.Violations {
			if verbose {
				fmt.Fprint(out, indent(v.FormatFull(), "  "))
				continue
			}
			symbol := shared.Red(shared.SymbolFail)
			if v.Severity != validation.SeverityError {
				symbol = shared.Yellow(shared.SymbolWarn)
			}
			loc := ""
			if v.Line > 0 {
				loc = shared.Dim(fmt.Sprintf(" (line %d)", v.Line))
			}
			fmt.Fprintf(out, "    %s %s %s%s\n", symbol, shared.Cyan("["+v.RuleID+"]"), v.Message, loc)
		}
	}
}

func printSummary(out io.Writer, agg *validation.AggregateReport) {
	rate := fmt.Sprintf("%.1f%%", agg.ComplianceRate)
	symbol := shared.Green(shared.SymbolOK)
	if agg.Valid < agg.Total {
		rate = shared.Yellow(rate)
		symbol = shared.Red(shared.SymbolFail)
	} else {
		rate = shared.Green(rate)
	}
	noun := "documents"
	if agg.Total == 1 {
		noun = "document"
	}
	parts := []string{
		fmt.Sprintf("%s Compliance: %s", symbol, rate),
		fmt.Sprintf("(%d/%d %s valid, %d violations)", agg.Valid, agg.Total, noun, len(agg.Violations)),
	}
	fmt.Fprintln(out, strings.Join(parts, " "))
}

// indent prefixes every non-empty line of s with prefix.
func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	for i, line := range lines {
		if line != "" && line != "\n" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "")
}
