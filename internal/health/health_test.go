// Package health_test tests the doctor environment checks.
// Related: internal/health/health.go
// Tags: health, doctor, git, rules, state

package health

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wchoi189/agentqms/internal/testutil"
)

func foundGit(string) (string, error)   { return "/usr/bin/git", nil }
func missingGit(string) (string, error) { return "", errors.New("not found") }

func TestCheckGit(t *testing.T) {
	t.Parallel()

	ok := CheckGit(foundGit)
	assert.True(t, ok.Passed)
	assert.Equal(t, "Git found", ok.Message)

	missing := CheckGit(missingGit)
	assert.False(t, missing.Passed)
	assert.True(t, missing.Warning)
}

func TestCheckDocsRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := map[string]struct {
		path string
		want bool
	}{
		"directory": {path: dir, want: true},
		"file":      {path: file},
		"missing":   {path: filepath.Join(dir, "absent")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res := CheckDocsRoot(tc.path)
			assert.Equal(t, tc.want, res.Passed)
			assert.False(t, res.Warning)
		})
	}
}

func TestCheckRules(t *testing.T) {
	t.Parallel()

	def := CheckRules("")
	assert.True(t, def.Passed)
	assert.Contains(t, def.Message, "embedded default")
	assert.Contains(t, def.Message, "implementation_plan")

	bad := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("common:\n  date_pattern: '['\n"), 0o644))
	res := CheckRules(bad)
	assert.False(t, res.Passed)
	assert.NotEmpty(t, res.Message)
}

func TestCheckStateDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "state")
	res := CheckStateDir(dir)
	assert.True(t, res.Passed)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file should be removed")
}

func TestRunHealthChecks(t *testing.T) {
	t.Parallel()

	repo := testutil.NewGitRepo(t)
	docs := filepath.Join(repo.Dir(), "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))

	report := RunHealthChecks(Inputs{
		RepoRoot: repo.Dir(),
		DocsRoot: docs,
		StateDir: t.TempDir(),
		LookPath: foundGit,
	})
	require.Len(t, report.Checks, 5)
	assert.True(t, report.Passed)

	t.Run("warnings do not fail", func(t *testing.T) {
		t.Parallel()
		report := RunHealthChecks(Inputs{
			RepoRoot: t.TempDir(),
			DocsRoot: docs,
			StateDir: t.TempDir(),
			LookPath: missingGit,
		})
		assert.True(t, report.Passed)
		out := FormatReport(report)
		assert.Contains(t, out, "⚠ Git")
		assert.Contains(t, out, "⚠ Repository")
	})

	t.Run("missing docs root fails", func(t *testing.T) {
		t.Parallel()
		report := RunHealthChecks(Inputs{
			RepoRoot: repo.Dir(),
			DocsRoot: filepath.Join(repo.Dir(), "absent"),
			StateDir: t.TempDir(),
			LookPath: foundGit,
		})
		assert.False(t, report.Passed)
		assert.Contains(t, FormatReport(report), "✗ Error: Docs root")
	})
}
