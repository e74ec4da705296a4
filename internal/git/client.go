// Package git records remediated documents in the repository's history. Commits
// go through the git CLI so repository hooks and configuration apply; read-only
// lookups use go-git.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Defaults applied by NewClient.
const (
	DefaultMessagePrefix = "AgentQMS Auto-Fix: "
	DefaultTimeout       = 30 * time.Second
)

// pipeWaitDelay bounds how long Run waits for output pipes after git is
// killed. Hook children that inherited the pipes would otherwise hold it open.
const pipeWaitDelay = 2 * time.Second

// Runner executes a git subcommand in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct{}

// Run executes git with args in dir. Cancelling ctx kills git together with
// any hooks it started.
func (ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.WaitDelay = pipeWaitDelay
	killProcessGroupOnCancel(cmd)
	return cmd.CombinedOutput()
}

// ClientOptions configure a Client. Zero values select the defaults.
type ClientOptions struct {
	RepoRoot      string
	MessagePrefix string
	Timeout       time.Duration
	Runner        Runner
	Logger        *slog.Logger
}

// Client stages and commits individual files.
type Client struct {
	repoRoot string
	prefix   string
	timeout  time.Duration
	runner   Runner
	logger   *slog.Logger
}

// NewClient creates a Client for the repository at opts.RepoRoot.
func NewClient(opts ClientOptions) (*Client, error) {
	root := opts.RepoRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving repository root: %w", err)
	}

	c := &Client{
		repoRoot: abs,
		prefix:   opts.MessagePrefix,
		timeout:  opts.Timeout,
		runner:   opts.Runner,
		logger:   opts.Logger,
	}
	if c.prefix == "" {
		c.prefix = DefaultMessagePrefix
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// RepoRoot returns the absolute repository root.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// CommitFile stages path and commits it alone with the prefixed message.
// Failures of any kind are logged and reported as false.
func (c *Client) CommitFile(ctx context.Context, path, message string) bool {
	target, err := c.relPath(path)
	if err != nil {
		c.logger.Warn("commit skipped", "path", path, "error", err)
		return false
	}

	mu := repoLock(c.repoRoot)
	mu.Lock()
	defer mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if out, err := c.runner.Run(ctx, c.repoRoot, "add", "--", target); err != nil {
		c.logger.Warn("git add failed", "path", target, "error", err, "output", trimOutput(out))
		return false
	}

	out, err := c.runner.Run(ctx, c.repoRoot, "commit", "-m", c.prefix+message, "--", target)
	if err != nil {
		c.logger.Warn("git commit failed", "path", target, "error", err, "output", trimOutput(out))
		return false
	}

	c.logger.Info("committed fix", "path", target, "message", message)
	return true
}

// relPath expresses path relative to the repository root. Paths outside the
// repository are rejected.
func (c *Client) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root := c.repoRoot
	// compare resolved paths only when both resolve, e.g. a fresh file under a
	// symlinked temp dir does not
	resolvedAbs, errAbs := filepath.EvalSymlinks(abs)
	resolvedRoot, errRoot := filepath.EvalSymlinks(root)
	if errAbs == nil && errRoot == nil {
		abs, root = resolvedAbs, resolvedRoot
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", path, c.repoRoot)
	}
	return rel, nil
}

func trimOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}

// repoLocks serializes commits per repository root across all clients in
// the process.
var repoLocks sync.Map // map[string]*sync.Mutex

func repoLock(root string) *sync.Mutex {
	mu, _ := repoLocks.LoadOrStore(filepath.Clean(root), &sync.Mutex{})
	return mu.(*sync.Mutex)
}
