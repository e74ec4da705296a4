// Package remediation_test tests single-field fixes, dry runs and commits.
// Related: internal/remediation/remediator.go, internal/remediation/locks.go
// Tags: remediation, autofix, dry-run, git, concurrency
package remediation

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wchoi189/agentqms/internal/frontmatter"
	"github.com/wchoi189/agentqms/internal/rules"
	"github.com/wchoi189/agentqms/internal/validation"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 0, 0, time.UTC)

type fakeCommitter struct {
	mu     sync.Mutex
	result bool
	calls  []string
}

func (f *fakeCommitter) CommitFile(_ context.Context, path, message string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filepath.Base(path)+": "+message)
	return f.result
}

func newTestRemediator(c Committer) *Remediator {
	return New(Options{Committer: c, Now: func() time.Time { return fixedNow }})
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readHeader(t *testing.T, path string) *frontmatter.Header {
	t.Helper()
	doc, err := frontmatter.Extract(path)
	require.NoError(t, err)
	return doc.Header
}

func TestFixViolation_TitleOnlyScenario(t *testing.T) {
	t.Parallel()

	rs, err := rules.Default()
	require.NoError(t, err)
	v, err := validation.New(rs, validation.Options{})
	require.NoError(t, err)

	path := writeDoc(t, "---\ntitle: X\n---\nbody\n")
	before := v.ValidateFile(path)
	assert.Equal(t, []string{validation.RuleMissingRequiredField, validation.RuleMissingRequiredField}, before.RuleIDs())

	r := newTestRemediator(nil)
	steps := []struct {
		field, value, message string
	}{
		{"date", "2025-03-04 05:06 (UTC)", "Fixed: Added missing date"},
		{"status", "draft", "Fixed: Added missing status (draft)"},
		{"category", "uncategorized", "Fixed: Added missing category"},
	}
	for _, step := range steps {
		res, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, step.message, res.Message)
		assert.Equal(t, step.field, res.Field)
		assert.False(t, res.GitCommitted)

		got, ok := readHeader(t, path).Get(step.field)
		require.True(t, ok)
		assert.Equal(t, step.value, got.String())
	}

	after := v.ValidateFile(path)
	assert.True(t, after.HasViolation(validation.RuleMissingRequiredField, "type"))
	assert.False(t, after.HasViolation(validation.RuleMissingRequiredField, "status"))
	assert.Equal(t, "body\n", string(mustBody(t, path)))
}

func TestFixViolation_FixedPoint(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, "---\ntitle: X\n---\n")
	r := newTestRemediator(nil)

	var applied []string
	for range 10 {
		res, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
		require.NoError(t, err)
		if !res.Success {
			assert.Contains(t, res.Message, "No automatic fix available for rule 'missing_required_field'")
			break
		}
		applied = append(applied, res.Field)
	}
	assert.Equal(t, []string{"date", "status", "category", "tags"}, applied)

	tags, ok := readHeader(t, path).Get("tags")
	require.True(t, ok)
	assert.Equal(t, frontmatter.KindList, tags.Kind())
	assert.Empty(t, tags.Items())

	before := readFile(t, path)
	res, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, before, readFile(t, path))
}

func TestFixViolation_DateLikeFieldSatisfiesSlot(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content   string
		wantField string
	}{
		"created present": {content: "---\ntitle: X\ncreated: 2024-01-01\n---\n", wantField: "status"},
		"updated present": {content: "---\ntitle: X\nupdated: 2024-01-01\n---\n", wantField: "status"},
		"null date still present": {content: "---\ntitle: X\ndate:\nstatus: draft\n---\n", wantField: "category"},
		"only tags missing": {content: "---\ndate: d\nstatus: s\ncategory: c\n---\n", wantField: "tags"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := writeDoc(t, tc.content)
			res, err := newTestRemediator(nil).FixViolation(context.Background(), path, validation.RuleMissingRequiredField, true)
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, tc.wantField, res.Field)
		})
	}
}

func TestFixViolation_InvalidStatus(t *testing.T) {
	t.Parallel()

	rs, err := rules.Parse([]byte("common:\n  required_fields: [title]\ntypes:\n  design:\n    allowed_statuses: [draft, active]\n"))
	require.NoError(t, err)
	v, err := validation.New(rs, validation.Options{})
	require.NoError(t, err)

	path := writeDoc(t, "---\ntitle: X\ntype: design\nstatus: bogus\n---\n")
	require.True(t, v.ValidateFile(path).HasViolation(validation.RuleInvalidStatus, "status"))

	res, err := newTestRemediator(nil).FixViolation(context.Background(), path, validation.RuleInvalidStatus, false)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Fixed: Reset invalid status to 'draft'", res.Message)

	report := v.ValidateFile(path)
	assert.False(t, report.HasViolation(validation.RuleInvalidStatus, ""))
	assert.Equal(t, "draft", report.Metadata["status"])
	assert.Equal(t, []string{"title", "type", "status"}, readHeader(t, path).Keys())
}

func TestFixViolation_DryRun(t *testing.T) {
	t.Parallel()

	content := "---\ntitle: X\ndate: 2024-01-01\n# keep me\nowner: {name: a}\n---\n# Body\n\ntext\n"
	path := writeDoc(t, content)
	committer := &fakeCommitter{result: true}
	r := newTestRemediator(committer)

	res, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, true)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.DryRun)
	assert.Equal(t, "Dry Run: Added missing status (draft)", res.Message)
	assert.Contains(t, res.Diff, "--- original")
	assert.Contains(t, res.Diff, "+++ fixed")
	assert.Contains(t, res.Diff, "+status: draft")
	assert.Contains(t, res.NewContent, "# Body\n\ntext\n")
	assert.Contains(t, res.NewContent, "owner:")

	assert.Equal(t, content, readFile(t, path), "dry run must not touch the file")
	assert.Empty(t, committer.calls)

	// the preview is exactly what a real fix writes
	applied, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
	require.NoError(t, err)
	assert.True(t, applied.Success)
	assert.Equal(t, res.NewContent, readFile(t, path))
}

func TestFixViolation_Commit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		commitOK bool
	}{
		"commit succeeds": {commitOK: true},
		"commit fails but fix stands": {commitOK: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := writeDoc(t, "---\ntitle: X\ndate: d\n---\n")
			committer := &fakeCommitter{result: tc.commitOK}

			res, err := newTestRemediator(committer).FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
			require.NoError(t, err)

			assert.True(t, res.Success)
			assert.Equal(t, tc.commitOK, res.GitCommitted)
			assert.Equal(t, []string{"doc.md: Added missing status (draft)"}, committer.calls)
			status, ok := readHeader(t, path).Get("status")
			require.True(t, ok)
			assert.Equal(t, "draft", status.String())
		})
	}
}

func TestFixViolation_Unfixable(t *testing.T) {
	t.Parallel()

	content := "---\ntitle: X\n---\n"
	path := writeDoc(t, content)
	committer := &fakeCommitter{result: true}

	res, err := newTestRemediator(committer).FixViolation(context.Background(), path, validation.RuleSchemaValidation, false)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "No automatic fix available for rule 'schema_validation' or field was already present.", res.Message)
	assert.Equal(t, content, readFile(t, path))
	assert.Empty(t, committer.calls)
}

func TestFixViolation_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.md")
	require.NoError(t, os.WriteFile(malformed, []byte("---\ntitle: X\n"), 0o644))

	tests := map[string]struct {
		path   string
		ruleID string
		check  func(t *testing.T, err error)
	}{
		"missing file": {
			path:   filepath.Join(dir, "absent.md"),
			ruleID: validation.RuleMissingRequiredField,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
				assert.ErrorIs(t, err, fs.ErrNotExist)
			},
		},
		"malformed header": {
			path:   malformed,
			ruleID: validation.RuleMissingRequiredField,
			check: func(t *testing.T, err error) {
				var pe *frontmatter.ParseError
				assert.True(t, errors.As(err, &pe))
				assert.Equal(t, 1, pe.Line)
			},
		},
		"empty rule id": {
			path:   malformed,
			ruleID: " ",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			},
		},
		"empty path": {
			ruleID: validation.RuleInvalidStatus,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res, err := newTestRemediator(nil).FixViolation(context.Background(), tc.path, tc.ruleID, false)
			require.Error(t, err)
			assert.Nil(t, res)
			tc.check(t, err)
		})
	}
}

func TestFixViolation_PreservesModeAndUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, "---\ntitle: X\npriority: 3\nowner:\n  name: a\n---\nbody")
	require.NoError(t, os.Chmod(path, 0o600))

	_, err := newTestRemediator(nil).FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	header := readHeader(t, path)
	assert.Equal(t, []string{"title", "priority", "owner", "date"}, header.Keys())
	priority, _ := header.Get("priority")
	assert.Equal(t, "!!int", priority.Tag())
	assert.Equal(t, "body", string(mustBody(t, path)))
}

func TestFixViolation_ByteOrderMarkDocument(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, "\ufeff---\ntitle: X\ntype: design\nstatus: draft\n---\nbody\n")

	result, err := newTestRemediator(nil).FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "date", result.Field)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "\ufeff---\ntitle: X\ntype: design\nstatus: draft\ndate: "), "got %q", content)
	assert.True(t, strings.HasSuffix(content, "\n---\nbody\n"), "got %q", content)
	assert.Equal(t, 2, strings.Count(content, "---"))
	assert.Equal(t, []string{"title", "type", "status", "date"}, readHeader(t, path).Keys())
}

func TestFixViolation_CustomDateFormat(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, "---\ntitle: X\n---\n")
	r := New(Options{DateFormat: "2006-01-02", Now: func() time.Time { return fixedNow }})

	_, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
	require.NoError(t, err)

	date, ok := readHeader(t, path).Get("date")
	require.True(t, ok)
	assert.Equal(t, "2025-03-04", date.String())
}

func TestFixViolation_ConcurrentSamePath(t *testing.T) {
	t.Parallel()

	path := writeDoc(t, "---\ntitle: X\n---\nbody\n")
	committer := &fakeCommitter{result: true}
	r := newTestRemediator(committer)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*FixResult, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.FixViolation(context.Background(), path, validation.RuleMissingRequiredField, false)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	fields := map[string]int{}
	for _, res := range results {
		require.NotNil(t, res)
		if res.Success {
			fields[res.Field]++
		}
	}
	assert.Equal(t, map[string]int{"date": 1, "status": 1, "category": 1, "tags": 1}, fields)
	assert.Len(t, committer.calls, 4)
	assert.Equal(t, []string{"title", "date", "status", "category", "tags"}, readHeader(t, path).Keys())
	assert.Equal(t, 0, r.locks.size())
}

func TestPathLocks_ReleaseShrinksTable(t *testing.T) {
	t.Parallel()

	locks := newPathLocks()
	releaseA := locks.acquire("a")
	releaseB := locks.acquire("b")
	assert.Equal(t, 2, locks.size())

	releaseA()
	releaseB()
	assert.Equal(t, 0, locks.size())
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func mustBody(t *testing.T, path string) []byte {
	t.Helper()
	doc, err := frontmatter.Extract(path)
	require.NoError(t, err)
	return doc.Body
}
