package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wchoi189/agentqms/internal/cli/shared"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Short:   "Print the loaded rule set",
		Long:    "Print the rule set in effect: the configured rules_file, or the embedded default.",
		Args:    cobra.NoArgs,
		GroupID: GroupInspection,
		RunE:    withApp(runRules),
	}
	cmd.Flags().Bool("json", false, "Print the rule set as JSON")
	return cmd
}

func runRules(cmd *cobra.Command, a *app, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return shared.WriteJSON(cmd.OutOrStdout(), a.rules)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(a.rules); err != nil {
		return err
	}
	return enc.Close()
}
