// Package remediation applies automatic fixes for header violations. Each fix
// changes at most one field, so repeated fixes converge one step at a time and
// every step can be validated and committed on its own.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/wchoi189/agentqms/internal/frontmatter"
	"github.com/wchoi189/agentqms/internal/metrics"
	"github.com/wchoi189/agentqms/internal/validation"
)

// DefaultDateFormat is the Go time layout used for generated dates.
const DefaultDateFormat = "2006-01-02 15:04 (MST)"

// Default values written by fixes.
const (
	DefaultStatus   = "draft"
	DefaultCategory = "uncategorized"
)

var (
	// ErrNotFound is returned when the document to fix does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidArgument is returned for malformed fix requests.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Committer records a written file in version control. Implementations
// report failure as false and never return errors.
type Committer interface {
	CommitFile(ctx context.Context, path, message string) bool
}

// FixResult is the outcome of one fix attempt.
type FixResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RuleID  string `json:"rule_id"`
	// Field is the header key that was set, empty when nothing applied.
	Field        string `json:"field,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
	Diff         string `json:"diff,omitempty"`
	NewContent   string `json:"new_content,omitempty"`
	GitCommitted bool   `json:"git_committed"`
}

// Options configure a Remediator.
type Options struct {
	// Committer is optional; without one fixes are written but not committed.
	Committer Committer
	// DateFormat is a Go time layout; empty selects DefaultDateFormat.
	DateFormat string
	// Now is the clock used for generated dates; nil selects time.Now.
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Remediator applies fixes. It is safe for concurrent use: fixes to the same
// path are serialized from read to commit.
type Remediator struct {
	committer  Committer
	dateFormat string
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
	locks      *pathLocks
}

// New creates a Remediator.
func New(opts Options) *Remediator {
	r := &Remediator{
		committer:  opts.Committer,
		dateFormat: opts.DateFormat,
		now:        opts.Now,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		locks:      newPathLocks(),
	}
	if r.dateFormat == "" {
		r.dateFormat = DefaultDateFormat
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// change is a single-field header edit.
type change struct {
	field   string
	value   frontmatter.Value
	message string
}

// FixViolation applies the fix for ruleID to the document at path. Unfixable
// requests return a result with Success false; errors are reserved for bad
// arguments, missing or malformed documents, and storage failures.
func (r *Remediator) FixViolation(ctx context.Context, path, ruleID string, dryRun bool) (*FixResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	if strings.TrimSpace(ruleID) == "" {
		return nil, fmt.Errorf("%w: empty rule id", ErrInvalidArgument)
	}

	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	release := r.locks.acquire(filepath.Clean(key))
	defer release()

	original, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := frontmatter.Parse(original)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	result := &FixResult{RuleID: ruleID, DryRun: dryRun}

	ch, ok := r.plan(doc.Header, ruleID)
	if !ok {
		result.Message = fmt.Sprintf("No automatic fix available for rule '%s' or field was already present.", ruleID)
		r.metrics.ObserveFix(ruleID, metrics.OutcomeUnfixable)
		r.logger.Debug("no fix applicable", "path", path, "rule_id", ruleID)
		return result, nil
	}

	doc.Header.Set(ch.field, ch.value)
	updated, err := doc.Serialize()
	if err != nil {
		r.metrics.ObserveFix(ruleID, metrics.OutcomeError)
		return nil, fmt.Errorf("serializing %s: %w", path, err)
	}

	result.Success = true
	result.Field = ch.field

	if dryRun {
		diff, err := unifiedDiff(original, updated)
		if err != nil {
			r.metrics.ObserveFix(ruleID, metrics.OutcomeError)
			return nil, err
		}
		result.Message = "Dry Run: " + ch.message
		result.Diff = diff
		result.NewContent = string(updated)
		r.metrics.ObserveFix(ruleID, metrics.OutcomeDryRun)
		return result, nil
	}

	if err := frontmatter.Write(path, doc); err != nil {
		r.metrics.ObserveFix(ruleID, metrics.OutcomeError)
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	result.Message = "Fixed: " + ch.message
	r.metrics.ObserveFix(ruleID, metrics.OutcomeApplied)
	r.logger.Info("fix applied", "path", path, "rule_id", ruleID, "field", ch.field)

	if r.committer != nil {
		result.GitCommitted = r.committer.CommitFile(ctx, path, ch.message)
		r.metrics.ObserveCommit(result.GitCommitted)
	}
	return result, nil
}

// plan picks the single edit for ruleID, or reports that none applies.
func (r *Remediator) plan(header *frontmatter.Header, ruleID string) (change, bool) {
	switch ruleID {
	case validation.RuleMissingRequiredField:
		switch {
		case !header.HasAny("date", "created", "updated"):
			return change{"date", frontmatter.Scalar(r.now().Format(r.dateFormat)), "Added missing date"}, true
		case !header.Has("status"):
			return change{"status", frontmatter.Scalar(DefaultStatus), "Added missing status (draft)"}, true
		case !header.Has("category"):
			return change{"category", frontmatter.Scalar(DefaultCategory), "Added missing category"}, true
		case !header.Has("tags"):
			return change{"tags", frontmatter.List(), "Added missing tags"}, true
		}
	case validation.RuleInvalidStatus:
		return change{"status", frontmatter.Scalar(DefaultStatus), "Reset invalid status to 'draft'"}, true
	}
	return change{}, false
}

func unifiedDiff(original, updated []byte) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(updated)),
		FromFile: "original",
		ToFile:   "fixed",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}
	return strings.TrimRight(diff, "\n"), nil
}
