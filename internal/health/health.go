// Package health runs environment checks for the doctor command: tooling on
// PATH, the repository, the docs root, the rule file and the state directory.
package health

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wchoi189/agentqms/internal/git"
	"github.com/wchoi189/agentqms/internal/rules"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	// Warning marks a failed check that does not prevent validation.
	Warning bool `json:"warning,omitempty"`
}

// HealthReport contains all health check results
type HealthReport struct {
	Checks []CheckResult `json:"checks"`
	Passed bool          `json:"passed"`
}

// Inputs are the configured locations to check.
type Inputs struct {
	RepoRoot  string
	DocsRoot  string
	RulesFile string
	StateDir  string
	Opener    git.Opener
	// LookPath resolves executables; nil selects exec.LookPath.
	LookPath func(string) (string, error)
}

// RunHealthChecks runs all health checks and returns a report. Warnings do
// not fail the report.
func RunHealthChecks(in Inputs) *HealthReport {
	report := &HealthReport{
		Checks: make([]CheckResult, 0, 5),
		Passed: true,
	}
	lookPath := in.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	opener := in.Opener
	if opener == nil {
		opener = &git.DefaultOpener{}
	}

	for _, check := range []CheckResult{
		CheckGit(lookPath),
		CheckRepository(opener, in.RepoRoot),
		CheckDocsRoot(in.DocsRoot),
		CheckRules(in.RulesFile),
		CheckStateDir(in.StateDir),
	} {
		report.Checks = append(report.Checks, check)
		if !check.Passed && !check.Warning {
			report.Passed = false
		}
	}
	return report
}

// CheckGit checks if Git is available. Without it fixes are written but
// never committed, so a missing binary is a warning.
func CheckGit(lookPath func(string) (string, error)) CheckResult {
	if _, err := lookPath("git"); err != nil {
		return CheckResult{
			Name:    "Git",
			Message: "Git not found in PATH; fixes will not be committed",
			Warning: true,
		}
	}
	return CheckResult{Name: "Git", Passed: true, Message: "Git found"}
}

// CheckRepository checks that the repository root is inside a git work tree.
func CheckRepository(opener git.Opener, repoRoot string) CheckResult {
	if !git.IsRepository(opener, repoRoot) {
		return CheckResult{
			Name:    "Repository",
			Message: fmt.Sprintf("%s is not a git repository; fixes will not be committed", repoRoot),
			Warning: true,
		}
	}
	return CheckResult{Name: "Repository", Passed: true, Message: fmt.Sprintf("git repository at %s", repoRoot)}
}

// CheckDocsRoot checks that the documents root is an existing directory.
func CheckDocsRoot(docsRoot string) CheckResult {
	info, err := os.Stat(docsRoot)
	switch {
	case err != nil:
		return CheckResult{Name: "Docs root", Message: fmt.Sprintf("%s: %v", docsRoot, err)}
	case !info.IsDir():
		return CheckResult{Name: "Docs root", Message: fmt.Sprintf("%s is not a directory", docsRoot)}
	}
	return CheckResult{Name: "Docs root", Passed: true, Message: docsRoot}
}

// CheckRules checks that the rule file loads and validates.
func CheckRules(rulesFile string) CheckResult {
	rs, err := rules.Load(rulesFile)
	if err != nil {
		return CheckResult{Name: "Rule set", Message: err.Error()}
	}
	source := rulesFile
	if source == "" {
		source = "embedded default"
	}
	return CheckResult{
		Name:    "Rule set",
		Passed:  true,
		Message: fmt.Sprintf("%s (%d categories: %s)", source, len(rs.Categories()), strings.Join(rs.Categories(), ", ")),
	}
}

// CheckStateDir checks that the fix journal directory can be written.
func CheckStateDir(stateDir string) CheckResult {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return CheckResult{Name: "State directory", Message: err.Error(), Warning: true}
	}
	f, err := os.CreateTemp(stateDir, ".doctor-*")
	if err != nil {
		return CheckResult{Name: "State directory", Message: fmt.Sprintf("%s is not writable: %v", stateDir, err), Warning: true}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return CheckResult{Name: "State directory", Passed: true, Message: filepath.Clean(stateDir)}
}

// FormatReport formats the health report for console output
func FormatReport(report *HealthReport) string {
	var sb strings.Builder
	for _, check := range report.Checks {
		switch {
		case check.Passed:
			fmt.Fprintf(&sb, "✓ %s: %s\n", check.Name, check.Message)
		case check.Warning:
			fmt.Fprintf(&sb, "⚠ %s: %s\n", check.Name, check.Message)
		default:
			fmt.Fprintf(&sb, "✗ Error: %s: %s\n", check.Name, check.Message)
		}
	}
	return sb.String()
}
