// Package testutil provides test utilities and helpers for agentqms tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// GitRepo is a throwaway git repository rooted in a test temp directory.
// Unlike a chdir-based fixture it never touches the process working
// directory, so tests using it can run in parallel.
type GitRepo struct {
	t   *testing.T
	dir string
}

// NewGitRepo initializes a repository with one commit containing README.md.
// Tests are skipped when the git binary is unavailable.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}

	r := &GitRepo{t: t, dir: dir}
	r.Git("init", "--quiet")
	r.Git("config", "user.email", "test@test.com")
	r.Git("config", "user.name", "Test")
	r.Git("config", "commit.gpgsign", "false")
	r.AddFile("README.md", "# Test Repo\n")
	r.CommitAll("Initial commit")
	return r
}

// Dir returns the repository root.
func (r *GitRepo) Dir() string {
	return r.dir
}

// AddFile writes a file relative to the repository root and returns its
// absolute path. The file is not staged.
func (r *GitRepo) AddFile(relativePath, content string) string {
	r.t.Helper()

	fullPath := filepath.Join(r.dir, relativePath)
	WriteFile(r.t, fullPath, content)
	return fullPath
}

// CommitAll stages and commits all changes.
func (r *GitRepo) CommitAll(message string) {
	r.t.Helper()

	r.Git("add", ".")
	r.Git("commit", "--quiet", "-m", message)
}

// LastMessage returns the subject line of HEAD.
func (r *GitRepo) LastMessage() string {
	r.t.Helper()
	return r.Git("log", "-1", "--format=%s")
}

// CommitCount returns the number of commits reachable from HEAD.
func (r *GitRepo) CommitCount() string {
	r.t.Helper()
	return r.Git("rev-list", "--count", "HEAD")
}

// Status returns the porcelain status of the working tree.
func (r *GitRepo) Status() string {
	r.t.Helper()
	return r.Git("status", "--porcelain")
}

// InstallHook writes an executable hook script, e.g. a failing pre-commit.
func (r *GitRepo) InstallHook(name, script string) {
	r.t.Helper()

	path := filepath.Join(r.dir, ".git", "hooks", name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		r.t.Fatalf("failed to write hook %s: %v", name, err)
	}
}

// Git runs a git command in the repository and returns trimmed stdout.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE=2025-01-01T00:00:00Z",
		"GIT_COMMITTER_DATE=2025-01-01T00:00:00Z",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return strings.TrimSpace(string(output))
}
