// Package validation checks document headers against the rule set and
// aggregates per-file reports into corpus-wide compliance results.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wchoi189/agentqms/internal/frontmatter"
	"github.com/wchoi189/agentqms/internal/metrics"
	"github.com/wchoi189/agentqms/internal/rules"
)

// dateFields are checked against the rule set's optional date pattern.
var dateFields = []string{"date", "created"}

// Default discovery settings.
var (
	DefaultExtensions  = []string{".md"}
	DefaultExcludeDirs = []string{".git", "node_modules"}
)

// Options tune document discovery and concurrency.
type Options struct {
	// Extensions selects documents by file extension (case-insensitive).
	Extensions []string
	// ExcludeDirs are directory names skipped at any depth.
	ExcludeDirs []string
	// Include and Exclude are doublestar globs matched against the path
	// relative to the scan root.
	Include []string
	Exclude []string
	// Workers bounds concurrent file validations; <= 0 means runtime.NumCPU().
	Workers int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Validator checks documents against a rule set. It is safe for concurrent
// use; the rule set is never mutated.
type Validator struct {
	rules       *rules.RuleSet
	extensions  map[string]bool
	excludeDirs map[string]bool
	include     []string
	exclude     []string
	workers     int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// New creates a Validator. Invalid glob patterns are rejected.
func New(rs *rules.RuleSet, opts Options) (*Validator, error) {
	if rs == nil {
		return nil, errors.New("validation: rule set is required")
	}

	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	dirs := opts.ExcludeDirs
	if dirs == nil {
		dirs = DefaultExcludeDirs
	}

	v := &Validator{
		rules:       rs,
		extensions:  make(map[string]bool, len(exts)),
		excludeDirs: make(map[string]bool, len(dirs)),
		include:     opts.Include,
		exclude:     opts.Exclude,
		workers:     opts.Workers,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		v.extensions[strings.ToLower(ext)] = true
	}
	for _, d := range dirs {
		v.excludeDirs[d] = true
	}
	if v.workers <= 0 {
		v.workers = runtime.NumCPU()
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// Rules returns the rule set the validator checks against.
func (v *Validator) Rules() *rules.RuleSet {
	return v.rules
}

// ValidateFile validates a single document. It never fails: unreadable or
// malformed documents are reported as violations.
func (v *Validator) ValidateFile(path string) *Report {
	report := newReport(path)
	defer func() {
		report.IsCompliant = len(report.Violations) == 0
		v.metrics.ObserveDocument(report.IsCompliant, report.RuleIDs())
	}()

	doc, err := frontmatter.Extract(path)
	if err != nil {
		report.add(extractionViolation(err))
		v.logger.Debug("document unreadable", "path", path, "error", err)
		return report
	}

	v.checkHeader(doc.Header, report)
	report.Metadata = doc.Header.Snapshot()
	return report
}

func (v *Validator) checkHeader(header *frontmatter.Header, report *Report) {
	for _, field := range HeaderSchema {
		value, ok := header.Get(field.Name)
		if !ok {
			continue
		}
		if msg := field.checkShape(value); msg != "" {
			report.add(Violation{
				RuleID:   RuleSchemaValidation,
				Message:  msg,
				Severity: SeverityError,
				Field:    field.Name,
				Line:     header.Line(field.Name),
			})
		}
	}

	for _, field := range v.rules.CommonRequired() {
		if !header.Has(field) {
			report.add(Violation{
				RuleID:   RuleMissingRequiredField,
				Message:  fmt.Sprintf("Missing required field: %s", field),
				Severity: SeverityError,
				Field:    field,
			})
		}
	}

	v.checkCategory(header, report)
	v.checkDates(header, report)
}

func (v *Validator) checkCategory(header *frontmatter.Header, report *Report) {
	typeValue, _ := header.Get("type")
	if typeValue.Kind() != frontmatter.KindScalar {
		return
	}
	category := typeValue.String()
	typeRules, ok := v.rules.ForType(category)
	if !ok {
		return
	}

	for _, field := range typeRules.RequiredFields {
		if !header.Has(field) {
			report.add(Violation{
				RuleID:   RuleMissingRequiredField,
				Message:  fmt.Sprintf("Missing required field for type '%s': %s", category, field),
				Severity: SeverityError,
				Field:    field,
			})
		}
	}

	if len(typeRules.AllowedStatuses) == 0 {
		return
	}
	status, _ := header.Get("status")
	if status.Kind() != frontmatter.KindScalar || status.String() == "" {
		return
	}
	if !typeRules.AllowsStatus(status.String()) {
		report.add(Violation{
			RuleID: RuleInvalidStatus,
			Message: fmt.Sprintf("Status '%s' not allowed for type '%s'. Allowed: %s",
				status.String(), category, strings.Join(typeRules.AllowedStatuses, ", ")),
			Severity: SeverityError,
			Field:    "status",
			Line:     header.Line("status"),
		})
	}
}

func (v *Validator) checkDates(header *frontmatter.Header, report *Report) {
	pattern := v.rules.DatePattern()
	if pattern == nil {
		return
	}
	for _, field := range dateFields {
		value, _ := header.Get(field)
		if value.Kind() != frontmatter.KindScalar {
			continue
		}
		if !pattern.MatchString(value.String()) {
			report.add(Violation{
				RuleID:   RuleInvalidDateFormat,
				Message:  fmt.Sprintf("Field '%s': '%s' does not match %s", field, value.String(), v.rules.Common.DatePattern),
				Severity: SeverityWarning,
				Field:    field,
				Line:     header.Line(field),
			})
		}
	}
}

func extractionViolation(err error) Violation {
	if errors.Is(err, fs.ErrNotExist) {
		return Violation{
			RuleID:   RuleFileNotFound,
			Message:  "File does not exist",
			Severity: SeverityError,
		}
	}

	var pe *frontmatter.ParseError
	if errors.As(err, &pe) {
		return Violation{
			RuleID:   RuleParseError,
			Message:  fmt.Sprintf("Failed to parse frontmatter: %s", pe.Error()),
			Severity: SeverityError,
			Line:     pe.Line,
		}
	}

	return Violation{
		RuleID:   RuleParseError,
		Message:  fmt.Sprintf("Failed to read file: %v", err),
		Severity: SeverityError,
	}
}
