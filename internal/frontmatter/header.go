package frontmatter

import (
	"gopkg.in/yaml.v3"
)

// entry is one key/value pair of a header, keeping the original key node so
// comments and quoting survive a rewrite.
type entry struct {
	key   *yaml.Node
	value *yaml.Node
}

// Header is the ordered field mapping of a document's frontmatter block.
// Field order is preserved across Parse and Serialize; new fields are appended.
type Header struct {
	entries    []entry
	index      map[string]int
	lineOffset int

	headComment string
	footComment string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return len(h.entries)
}

// Keys returns field names in document order.
func (h *Header) Keys() []string {
	keys := make([]string, len(h.entries))
	for i, e := range h.entries {
		keys[i] = e.key.Value
	}
	return keys
}

// Has reports whether the field is present (including explicit nulls).
func (h *Header) Has(key string) bool {
	_, ok := h.index[key]
	return ok
}

// HasAny reports whether at least one of the fields is present.
func (h *Header) HasAny(keys ...string) bool {
	for _, key := range keys {
		if h.Has(key) {
			return true
		}
	}
	return false
}

// Get returns the field value and whether it is present.
func (h *Header) Get(key string) (Value, bool) {
	i, ok := h.index[key]
	if !ok {
		return Value{}, false
	}
	return Value{node: h.entries[i].value}, true
}

// Line returns the 1-based document line of the field's value, or 0 when the
// field was not read from a document.
func (h *Header) Line(key string) int {
	i, ok := h.index[key]
	if !ok || h.entries[i].value.Line == 0 {
		return 0
	}
	return h.entries[i].value.Line + h.lineOffset
}

// Set replaces the value of an existing field in place or appends a new field.
func (h *Header) Set(key string, v Value) {
	node := v.node
	if node == nil {
		node = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	if i, ok := h.index[key]; ok {
		h.entries[i].value = node
		return
	}
	h.index[key] = len(h.entries)
	h.entries = append(h.entries, entry{
		key:   &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value: node,
	})
}

// Snapshot decodes the header into a plain map for reports.
func (h *Header) Snapshot() map[string]any {
	snap := make(map[string]any, len(h.entries))
	for _, e := range h.entries {
		snap[e.key.Value] = Value{node: e.value}.Interface()
	}
	return snap
}

// Equal reports whether both headers hold the same fields with equal values.
// Field order is not significant.
func (h *Header) Equal(other *Header) bool {
	if h.Len() != other.Len() {
		return false
	}
	for _, key := range h.Keys() {
		a, _ := h.Get(key)
		b, ok := other.Get(key)
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// mappingNode builds the YAML mapping node for serialization.
func (h *Header) mappingNode() *yaml.Node {
	m := &yaml.Node{
		Kind:        yaml.MappingNode,
		Tag:         "!!map",
		HeadComment: h.headComment,
		FootComment: h.footComment,
	}
	for _, e := range h.entries {
		m.Content = append(m.Content, e.key, e.value)
	}
	return m
}
