package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/health"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and configuration",
		Long: `Check that git is available, the repository root is a git repository, the
docs root exists, the rule file loads and the state directory is writable.`,
		Args:    cobra.NoArgs,
		GroupID: GroupGeneral,
		RunE:    withApp(runDoctor),
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

func runDoctor(cmd *cobra.Command, a *app, _ []string) error {
	report := health.RunHealthChecks(health.Inputs{
		RepoRoot:  a.cfg.RepoRoot,
		DocsRoot:  a.service.Root(),
		RulesFile: a.cfg.RulesFile,
		StateDir:  a.cfg.StateDir,
		Opener:    a.opener,
	})

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if err := shared.WriteJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), health.FormatReport(report))
	}

	if !report.Passed {
		return shared.NewExitError(shared.ExitValidationFailed)
	}
	return nil
}
