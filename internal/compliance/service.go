// Package compliance is the programmatic surface of agentqms. It resolves
// targets relative to the documents root and dispatches to the validator,
// the remediator, corpus statistics and the fix journal.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wchoi189/agentqms/internal/history"
	"github.com/wchoi189/agentqms/internal/remediation"
	"github.com/wchoi189/agentqms/internal/stats"
	"github.com/wchoi189/agentqms/internal/validation"
)

// TargetAll selects the whole documents root.
const TargetAll = "all"

// Errors returned by Service. They match the remediation sentinels, so
// errors.Is works with either.
var (
	ErrNotFound        = remediation.ErrNotFound
	ErrInvalidArgument = remediation.ErrInvalidArgument
)

// Recorder appends fix attempts to a journal.
type Recorder interface {
	Record(entry history.Entry) (history.Entry, error)
}

// Options wire a Service.
type Options struct {
	// DocsRoot is the directory targets are resolved against.
	DocsRoot   string
	Validator  *validation.Validator
	Remediator *remediation.Remediator
	// Journal is optional.
	Journal Recorder
	Logger  *slog.Logger
}

// Service validates and fixes documents under one documents root.
type Service struct {
	root       string
	validator  *validation.Validator
	remediator *remediation.Remediator
	journal    Recorder
	logger     *slog.Logger
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.DocsRoot == "" {
		return nil, errors.New("compliance: docs root is required")
	}
	if opts.Validator == nil || opts.Remediator == nil {
		return nil, errors.New("compliance: validator and remediator are required")
	}
	root, err := filepath.Abs(opts.DocsRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving docs root: %w", err)
	}
	s := &Service{
		root:       root,
		validator:  opts.Validator,
		remediator: opts.Remediator,
		journal:    opts.Journal,
		logger:     opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Root returns the absolute documents root.
func (s *Service) Root() string {
	return s.root
}

// Resolve maps a target to an absolute path under the documents root.
// TargetAll maps to the root itself. Empty targets, absolute paths and
// paths escaping the root are rejected.
func (s *Service) Resolve(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: empty target", ErrInvalidArgument)
	}
	if target == TargetAll {
		return s.root, nil
	}
	if filepath.IsAbs(target) || strings.HasPrefix(target, "/") {
		return "", fmt.Errorf("%w: target must be relative to the docs root: %s", ErrInvalidArgument, target)
	}
	for _, part := range strings.Split(filepath.ToSlash(target), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: target escapes the docs root: %s", ErrInvalidArgument, target)
		}
	}
	return filepath.Join(s.root, filepath.Clean(target)), nil
}

// Validate validates target: TargetAll, a document or a directory. A single
// document produces a one-file aggregate.
func (s *Service) Validate(ctx context.Context, target string) (*validation.AggregateReport, error) {
	path, info, err := s.stat(target)
	if err != nil {
		return nil, err
	}

	switch {
	case info.IsDir():
		return s.validator.ValidateDirectory(ctx, path)
	case info.Mode().IsRegular():
		return validation.NewAggregate([]*validation.Report{s.validator.ValidateFile(path)}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported target kind: %s", ErrInvalidArgument, target)
	}
}

// Fix applies the fix for ruleID to the document named by target. Applied
// and unfixable attempts are journaled unless dryRun is set; journal errors
// are logged and never fail the fix.
func (s *Service) Fix(ctx context.Context, target, ruleID string, dryRun bool) (*remediation.FixResult, error) {
	if target == TargetAll {
		return nil, fmt.Errorf("%w: fix requires a document path", ErrInvalidArgument)
	}
	path, info, err := s.stat(target)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: fix target is not a document: %s", ErrInvalidArgument, target)
	}

	result, err := s.remediator.FixViolation(ctx, path, ruleID, dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		s.record(target, result)
	}
	return result, nil
}

// Stats collects corpus statistics for TargetAll or a directory.
func (s *Service) Stats(ctx context.Context, target string, opts stats.Options) (*stats.Summary, error) {
	path, info, err := s.stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: stats target is not a directory: %s", ErrInvalidArgument, target)
	}
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	return stats.Collect(ctx, s.validator, path, opts)
}

func (s *Service) stat(target string) (string, os.FileInfo, error) {
	path, err := s.Resolve(target)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return "", nil, fmt.Errorf("stat %s: %w", target, err)
	}
	return path, info, nil
}

func (s *Service) record(target string, result *remediation.FixResult) {
	if s.journal == nil {
		return
	}
	_, err := s.journal.Record(history.Entry{
		Path:         filepath.ToSlash(filepath.Clean(target)),
		RuleID:       result.RuleID,
		Field:        result.Field,
		Message:      result.Message,
		Success:      result.Success,
		GitCommitted: result.GitCommitted,
	})
	if err != nil {
		s.logger.Warn("failed to record fix", "target", target, "error", err)
	}
}
