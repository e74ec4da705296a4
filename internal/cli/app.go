package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/compliance"
	"github.com/wchoi189/agentqms/internal/config"
	"github.com/wchoi189/agentqms/internal/git"
	"github.com/wchoi189/agentqms/internal/history"
	"github.com/wchoi189/agentqms/internal/metrics"
	"github.com/wchoi189/agentqms/internal/progress"
	"github.com/wchoi189/agentqms/internal/remediation"
	"github.com/wchoi189/agentqms/internal/rules"
	"github.com/wchoi189/agentqms/internal/validation"
)

// app holds the components a command needs, built from configuration.
type app struct {
	cfg       *config.Configuration
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	rules     *rules.RuleSet
	validator *validation.Validator
	service   *compliance.Service
	opener    git.Opener
}

// runFunc is the body of a command that needs the application components.
type runFunc func(cmd *cobra.Command, a *app, args []string) error

// withApp loads configuration, wires the components and writes the metrics
// textfile once fn returns.
func withApp(fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		runErr := fn(cmd, a, args)
		a.finish()
		return runErr
	}
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", compliance.ErrInvalidArgument, err)
	}
	if docsDir, _ := cmd.Flags().GetString("docs-dir"); docsDir != "" {
		cfg.DocsDir = docsDir
	}
	if rulesFile, _ := cmd.Flags().GetString("rules"); rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	shared.ApplyAutoCommitOverride(cmd, cfg)

	debug, _ := cmd.Flags().GetBool("debug")
	logger := newLogger(cmd, cfg.LogLevel, debug)
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		opener:   &git.DefaultOpener{},
	}
	a.metrics, err = metrics.New(a.registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	a.rules, err = rules.Load(cfg.RulesFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", compliance.ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", compliance.ErrInvalidArgument, err)
	}

	a.validator, err = validation.New(a.rules, validation.Options{
		Extensions:  cfg.Extensions,
		ExcludeDirs: cfg.ExcludeDirs,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		Workers:     cfg.Workers,
		Logger:      logger,
		Metrics:     a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", compliance.ErrInvalidArgument, err)
	}

	remediator := remediation.New(remediation.Options{
		Committer:  a.committer(),
		DateFormat: cfg.DateFormat,
		Logger:     logger,
		Metrics:    a.metrics,
	})

	a.service, err = compliance.New(compliance.Options{
		DocsRoot:   a.docsRoot(),
		Validator:  a.validator,
		Remediator: remediator,
		Journal:    history.NewWriter(cfg.StateDir, cfg.MaxHistory),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// docsRoot resolves docs_dir against repo_root unless it is absolute.
func (a *app) docsRoot() string {
	if filepath.IsAbs(a.cfg.DocsDir) {
		return a.cfg.DocsDir
	}
	return filepath.Join(a.cfg.RepoRoot, a.cfg.DocsDir)
}

// committer returns the git client used to record fixes, or nil when
// auto-commit is off or the repository root is not a git repository.
func (a *app) committer() remediation.Committer {
	if !a.cfg.AutoCommit {
		return nil
	}
	if !git.IsRepository(a.opener, a.cfg.RepoRoot) {
		a.logger.Debug("not a git repository, fixes will not be committed", "repo_root", a.cfg.RepoRoot)
		return nil
	}
	client, err := git.NewClient(git.ClientOptions{
		RepoRoot:      a.cfg.RepoRoot,
		MessagePrefix: a.cfg.CommitPrefix,
		Timeout:       a.cfg.GitTimeoutDuration(),
		Logger:        a.logger,
	})
	if err != nil {
		a.logger.Warn("git client unavailable", "error", err)
		return nil
	}
	return client
}

// relative expresses an absolute path under the docs root for display.
func (a *app) relative(path string) string {
	if rel, err := filepath.Rel(a.service.Root(), path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func (a *app) finish() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.MetricsFile, a.registry); err != nil {
		a.logger.Warn("failed to write metrics", "path", a.cfg.MetricsFile, "error", err)
	}
}

// terminalCaps inspects stdout, reporting no capabilities when output is
// redirected to something other than the process stdout.
func terminalCaps(cmd *cobra.Command) progress.TerminalCapabilities {
	if f, ok := cmd.OutOrStdout().(*os.File); ok && f == os.Stdout {
		return progress.DetectTerminalCapabilities(f)
	}
	return progress.TerminalCapabilities{}
}

func newLogger(cmd *cobra.Command, level string, debug bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}
