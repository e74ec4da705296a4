package frontmatter

import (
	"gopkg.in/yaml.v3"
)

// ValueKind classifies a header value.
type ValueKind int

const (
	// KindAbsent is the kind of a zero Value (field not present).
	KindAbsent ValueKind = iota
	// KindNull is an explicit YAML null (`status:` or `status: ~`).
	KindNull
	// KindScalar is a single string, number, bool or timestamp.
	KindScalar
	// KindList is a sequence whose items are all scalars.
	KindList
	// KindOther covers nested mappings, nested sequences and aliases.
	// Such values are preserved verbatim but never produced by fixes.
	KindOther
)

// String returns a human-readable kind name used in violation messages.
func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	default:
		return "object"
	}
}

// Value wraps a YAML node holding one header field value.
type Value struct {
	node *yaml.Node
}

// Scalar returns a string scalar value.
func Scalar(s string) Value {
	return Value{node: &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}}
}

// List returns a list-of-scalars value. An empty list serializes as `[]`.
func List(items ...string) Value {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(items) == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, item := range items {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
	}
	return Value{node: seq}
}

// Kind reports which variant the value holds.
func (v Value) Kind() ValueKind {
	if v.node == nil {
		return KindAbsent
	}
	switch v.node.Kind {
	case yaml.ScalarNode:
		if v.node.ShortTag() == "!!null" {
			return KindNull
		}
		return KindScalar
	case yaml.SequenceNode:
		for _, item := range v.node.Content {
			if item.Kind != yaml.ScalarNode {
				return KindOther
			}
		}
		return KindList
	default:
		return KindOther
	}
}

// String returns the raw text of a scalar value, or "" for any other kind.
func (v Value) String() string {
	if v.Kind() != KindScalar {
		return ""
	}
	return v.node.Value
}

// Items returns the raw text of each list item, or nil for non-list values.
func (v Value) Items() []string {
	if v.Kind() != KindList {
		return nil
	}
	items := make([]string, 0, len(v.node.Content))
	for _, item := range v.node.Content {
		items = append(items, item.Value)
	}
	return items
}

// Truthy mirrors the loose "field is set" check used by corpus statistics:
// absent, null, empty strings, false and empty lists are not truthy.
func (v Value) Truthy() bool {
	switch v.Kind() {
	case KindScalar:
		return v.node.Value != "" && !(v.node.Tag == "!!bool" && v.node.Value == "false")
	case KindList:
		return len(v.node.Content) > 0
	case KindOther:
		return true
	default:
		return false
	}
}

// Tag returns the resolved YAML tag (e.g. "!!str", "!!int").
func (v Value) Tag() string {
	if v.node == nil {
		return ""
	}
	return v.node.ShortTag()
}

// Interface decodes the value into plain Go types for report snapshots.
func (v Value) Interface() any {
	if v.node == nil {
		return nil
	}
	var out any
	if err := v.node.Decode(&out); err != nil {
		return v.node.Value
	}
	return out
}

// Equal reports whether two values decode to the same data.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindAbsent, KindNull:
		return true
	case KindScalar:
		return v.node.Value == other.node.Value
	case KindList:
		a, b := v.Items(), other.Items()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	default:
		ea, errA := yaml.Marshal(v.node)
		eb, errB := yaml.Marshal(other.node)
		return errA == nil && errB == nil && string(ea) == string(eb)
	}
}
