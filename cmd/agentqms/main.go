// agentqms - Artifact metadata compliance and auto-remediation

package main

import (
	"os"

	"github.com/wchoi189/agentqms/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
