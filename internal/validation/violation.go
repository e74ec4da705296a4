package validation

import (
	"fmt"
	"strings"
)

// Severity grades a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule ids reported in violations. They are stable and consumed by tooling.
const (
	RuleFileNotFound         = "file_not_found"
	RuleParseError           = "parse_error"
	RuleSchemaValidation     = "schema_validation"
	RuleMissingRequiredField = "missing_required_field"
	RuleInvalidStatus        = "invalid_status"
	RuleInvalidDateFormat    = "invalid_date_format"
)

// Violation is a single rule failure found in a document.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	// Field names the header key involved, when there is one.
	Field string `json:"field,omitempty"`
	// Line is the 1-based document line of the offending value, 0 if unknown.
	Line int `json:"line,omitempty"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	var sb strings.Builder
	if v.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", v.Line)
	}
	fmt.Fprintf(&sb, "[%s] %s", v.RuleID, v.Message)
	return sb.String()
}

// FormatFull returns a detailed multi-line rendering for terminal output.
func (v Violation) FormatFull() string {
	var sb strings.Builder
	if v.Line > 0 {
		fmt.Fprintf(&sb, "  Line %d\n", v.Line)
	}
	fmt.Fprintf(&sb, "  Rule: %s (%s)\n", v.RuleID, v.Severity)
	if v.Field != "" {
		fmt.Fprintf(&sb, "  Field: %s\n", v.Field)
	}
	fmt.Fprintf(&sb, "  Error: %s\n", v.Message)
	return sb.String()
}

// Report is the validation outcome for one document.
type Report struct {
	Path        string      `json:"file_path"`
	IsCompliant bool        `json:"is_compliant"`
	Violations  []Violation `json:"violations"`
	// Metadata is a snapshot of the parsed header, nil when unreadable.
	Metadata map[string]any `json:"metadata,omitempty"`
}

func newReport(path string) *Report {
	return &Report{Path: path, Violations: []Violation{}}
}

func (r *Report) add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// HasViolation reports whether the report contains a violation with ruleID,
// optionally restricted to field.
func (r *Report) HasViolation(ruleID, field string) bool {
	for _, v := range r.Violations {
		if v.RuleID == ruleID && (field == "" || v.Field == field) {
			return true
		}
	}
	return false
}

// RuleIDs returns the rule id of every violation in report order.
func (r *Report) RuleIDs() []string {
	ids := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		ids = append(ids, v.RuleID)
	}
	return ids
}
