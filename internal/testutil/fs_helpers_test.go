// Package testutil_test tests filesystem and runner helpers used by fixtures.
// Related: internal/testutil/fs_helpers.go, internal/testutil/mock_runner.go
// Tags: testutil, helpers, fixtures, filesystem

package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDocContent(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts        []DocOption
		contains    []string
		notContains []string
	}{
		"defaults": {
			contains: []string{"---\ntitle: Test document\n", "status: draft\n", "Body text."},
		},
		"override keeps position": {
			opts:     []DocOption{WithField("title", "Other")},
			contains: []string{"---\ntitle: Other\ntype:"},
		},
		"removed field": {
			opts:        []DocOption{WithoutField("status")},
			notContains: []string{"status:"},
		},
		"extra field and body": {
			opts:     []DocOption{WithField("owner", "me"), WithBody("custom\n")},
			contains: []string{"tags: [test]\nowner: me\n---\ncustom\n"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := DocContent(tc.opts...)
			for _, want := range tc.contains {
				if !strings.Contains(got, want) {
					t.Errorf("content missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tc.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("content unexpectedly contains %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	tests := map[string]struct {
		path    string
		content string
	}{
		"simple file": {
			path:    filepath.Join(tmpDir, "test.md"),
			content: "test content",
		},
		"nested file": {
			path:    filepath.Join(tmpDir, "nested", "dir", "test.md"),
			content: "nested content",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			WriteFile(t, tc.path, tc.content)

			if !FileExists(tc.path) {
				t.Errorf("file was not created: %s", tc.path)
			}

			got := ReadFile(t, tc.path)
			if got != tc.content {
				t.Errorf("content mismatch: got %q, want %q", got, tc.content)
			}
		})
	}
}

func TestMockRunner(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	runner := NewMockRunnerBuilder(t).
		WithOutput("ok").
		WithError("fatal", boom).
		Build()

	out, err := runner.Run(context.Background(), "/repo", "add", "--", "a.md")
	if err != nil || string(out) != "ok" {
		t.Fatalf("first call: got %q, %v", out, err)
	}
	if _, err := runner.Run(context.Background(), "/repo", "commit"); !errors.Is(err, boom) {
		t.Fatalf("second call: got %v, want boom", err)
	}
	if _, err := runner.Run(context.Background(), "/repo", "status"); err != nil {
		t.Fatalf("exhausted queue should succeed, got %v", err)
	}

	runner.AssertCallCount(t, 3)
	runner.AssertCalled(t, "add -- a.md")
}

func TestMockRunner_DelayHonoursContext(t *testing.T) {
	t.Parallel()

	runner := NewMockRunnerBuilder(t).WithOutput("late").WithDelay(time.Minute).Build()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := runner.Run(ctx, "/repo", "commit")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}
