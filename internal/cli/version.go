package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/build"
	"github.com/wchoi189/agentqms/internal/cli/shared"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Display version information (v)",
		Long:    "Display version, commit, build date, and Go version information for agentqms",
		Args:    cobra.NoArgs,
		GroupID: GroupGeneral,
		Run: func(cmd *cobra.Command, _ []string) {
			plain, _ := cmd.Flags().GetBool("plain")
			printVersion(cmd, plain)
		},
	}
	cmd.Flags().Bool("plain", false, "Plain output without formatting")
	return cmd
}

func printVersion(cmd *cobra.Command, plain bool) {
	out := cmd.OutOrStdout()
	if plain {
		fmt.Fprintf(out, "agentqms %s\n", build.Version)
		fmt.Fprintf(out, "commit: %s\n", build.Commit)
		fmt.Fprintf(out, "built: %s\n", build.BuildDate)
		fmt.Fprintf(out, "go: %s\n", runtime.Version())
		fmt.Fprintf(out, "platform: %s\n", build.Platform())
		return
	}

	version := build.Version
	if build.IsDevBuild() {
		version += shared.Dim(" (development build)")
	}
	fmt.Fprintf(out, "%s %s\n", shared.Bold("agentqms"), shared.Cyan(version))
	fmt.Fprintf(out, "  %s %s\n", shared.Dim("commit  "), build.Commit)
	fmt.Fprintf(out, "  %s %s\n", shared.Dim("built   "), build.BuildDate)
	fmt.Fprintf(out, "  %s %s %s\n", shared.Dim("go      "), runtime.Version(), build.Platform())
}
