// Package watch_test tests debounced document revalidation.
// Related: internal/watch/watcher.go
// Tags: watch, fsnotify, debounce, fingerprint
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wchoi189/agentqms/internal/validation"
)

const waitTimeout = 3 * time.Second

// countingValidator reports every file as compliant and counts calls.
type countingValidator struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingValidator) ValidateFile(path string) *validation.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[path]++
	return &validation.Report{Path: path, IsCompliant: true, Violations: []validation.Violation{}}
}

func startWatcher(t *testing.T, root string, cfg Config) *Watcher {
	t.Helper()
	if cfg.Debounce == 0 {
		cfg.Debounce = 20 * time.Millisecond
	}
	w, err := New(root, &countingValidator{}, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for watch event")
	}
	return Event{}
}

func expectNoEvent(t *testing.T, w *Watcher, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(wait):
	}
}

func TestWatcher_CreateAndModify(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := startWatcher(t, root, Config{})
	path := filepath.Join(root, "plan.md")

	writeFile(t, path, "---\ntitle: A\n---\n")
	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, OpCreate, ev.Op)
	require.NotNil(t, ev.Report)
	assert.Equal(t, path, ev.Report.Path)

	writeFile(t, path, "---\ntitle: B\n---\n")
	ev = nextEvent(t, w)
	assert.Equal(t, OpModify, ev.Op)
}

func TestWatcher_UnchangedContentIsSkipped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "plan.md")
	writeFile(t, path, "same\n")

	w := startWatcher(t, root, Config{})

	writeFile(t, path, "same\n")
	expectNoEvent(t, w, 200*time.Millisecond)
}

func TestWatcher_IgnoredFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	w := startWatcher(t, root, Config{})

	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "node_modules", "readme.md"), "x")
	expectNoEvent(t, w, 200*time.Millisecond)
}

func TestWatcher_Globs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := startWatcher(t, root, Config{
		Include: []string{"plans/**"},
		Exclude: []string{"**/draft/**"},
	})

	writeFile(t, filepath.Join(root, "other", "x.md"), "x")
	writeFile(t, filepath.Join(root, "plans", "draft", "x.md"), "x")
	kept := filepath.Join(root, "plans", "x.md")
	writeFile(t, kept, "x")

	ev := nextEvent(t, w)
	assert.Equal(t, kept, ev.Path)
	expectNoEvent(t, w, 200*time.Millisecond)
	assert.Zero(t, w.DroppedEvents())
}

func TestNew_InvalidGlob(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), &countingValidator{}, Config{Exclude: []string{"[unclosed"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[unclosed")
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := startWatcher(t, root, Config{})

	path := filepath.Join(root, "nested", "deeper", "doc.md")
	writeFile(t, path, "---\ntitle: X\n---\n")

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, OpCreate, ev.Op)
}

func TestWatcher_Delete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "plan.md")
	writeFile(t, path, "content\n")
	w := startWatcher(t, root, Config{})

	require.NoError(t, os.Remove(path))
	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, OpDelete, ev.Op)
	assert.Nil(t, ev.Report)
}

func TestWatcher_BurstIsDebounced(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := startWatcher(t, root, Config{Debounce: 150 * time.Millisecond})
	path := filepath.Join(root, "plan.md")

	for _, content := range []string{"a", "ab", "abc"} {
		writeFile(t, path, content)
	}
	ev := nextEvent(t, w)
	assert.Equal(t, OpCreate, ev.Op)
	expectNoEvent(t, w, 400*time.Millisecond)
}

func TestWatcher_StartErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]func(t *testing.T) string{
		"missing root": func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "absent")
		},
		"root is a file": func(t *testing.T) string {
			path := filepath.Join(t.TempDir(), "file.md")
			writeFile(t, path, "x")
			return path
		},
	}

	for name, rootFn := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			w, err := New(rootFn(t), &countingValidator{}, Config{}, nil)
			require.NoError(t, err)
			defer w.Stop()
			assert.Error(t, w.Start(context.Background()))
		})
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := fingerprint([]byte("hello"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, fingerprint([]byte("hello")))
	assert.NotEqual(t, a, fingerprint([]byte("hello!")))
}
