// Package rules loads the declarative artifact rule set: globally required
// header fields plus per-category required fields and allowed status values.
// A RuleSet is loaded once at startup and treated as read-only afterwards.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed default_rules.yaml
var defaultRules []byte

// CommonRules apply to every document.
type CommonRules struct {
	RequiredFields []string `koanf:"required_fields" yaml:"required_fields" json:"required_fields" validate:"dive,required"`
	// DatePattern optionally constrains the format of date/created values.
	DatePattern string `koanf:"date_pattern" yaml:"date_pattern,omitempty" json:"date_pattern,omitempty"`
}

// TypeRules apply to documents whose `type` header names the category.
type TypeRules struct {
	RequiredFields  []string `koanf:"required_fields" yaml:"required_fields,omitempty" json:"required_fields,omitempty" validate:"dive,required"`
	AllowedStatuses []string `koanf:"allowed_statuses" yaml:"allowed_statuses,omitempty" json:"allowed_statuses,omitempty" validate:"dive,required"`
}

// AllowsStatus reports whether status is permitted. Categories without an
// allowed_statuses list accept any status.
func (t TypeRules) AllowsStatus(status string) bool {
	if len(t.AllowedStatuses) == 0 {
		return true
	}
	return slices.Contains(t.AllowedStatuses, status)
}

// RuleSet is the full two-level rule table.
type RuleSet struct {
	Common CommonRules          `koanf:"common" yaml:"common" json:"common"`
	Types  map[string]TypeRules `koanf:"types" yaml:"types" json:"types" validate:"dive,keys,required,endkeys"`

	datePattern *regexp.Regexp
}

// Load reads the rule file at path. An empty path selects the embedded
// default rule set.
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Default()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("rule file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load rule file %s: %w", path, err)
	}
	return fromKoanf(k)
}

// Default returns the embedded default rule set.
func Default() (*RuleSet, error) {
	return Parse(defaultRules)
}

// Parse builds a rule set from YAML bytes.
func Parse(data []byte) (*RuleSet, error) {
	k := koanf.New(".")
	if err := k.Load(bytesProvider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*RuleSet, error) {
	var rs RuleSet
	if err := k.Unmarshal("common", &rs.Common); err != nil {
		return nil, fmt.Errorf("failed to unmarshal common rules: %w", err)
	}

	// artifact_types is the legacy name of the types section.
	typesKey := "types"
	if !k.Exists(typesKey) && k.Exists("artifact_types") {
		typesKey = "artifact_types"
	}
	if err := k.Unmarshal(typesKey, &rs.Types); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s rules: %w", typesKey, err)
	}
	if rs.Types == nil {
		rs.Types = map[string]TypeRules{}
	}

	validate := validator.New()
	if err := validate.Struct(rs); err != nil {
		return nil, fmt.Errorf("rule set validation failed: %w", err)
	}

	if rs.Common.DatePattern != "" {
		// anchored at the start only: "\d{4}" accepts "2024-01-01 10:00"
		re, err := regexp.Compile(`^(?:` + rs.Common.DatePattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("invalid common.date_pattern: %w", err)
		}
		rs.datePattern = re
	}

	return &rs, nil
}

// CommonRequired returns the globally required fields in rule-file order.
func (rs *RuleSet) CommonRequired() []string {
	return rs.Common.RequiredFields
}

// ForType returns the rules for a category.
func (rs *RuleSet) ForType(category string) (TypeRules, bool) {
	t, ok := rs.Types[category]
	return t, ok
}

// DatePattern returns the compiled date pattern, anchored at the start of the
// value, or nil when unset.
func (rs *RuleSet) DatePattern() *regexp.Regexp {
	return rs.datePattern
}

// Categories returns the configured category names, sorted.
func (rs *RuleSet) Categories() []string {
	names := make([]string, 0, len(rs.Types))
	for name := range rs.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("rules: bytesProvider does not support Read()")
}
