package validation

import (
	"fmt"

	"github.com/wchoi189/agentqms/internal/frontmatter"
)

// FieldType represents the expected shape of a header value.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeArray  FieldType = "array"
)

// SchemaField defines the shape of a well-known header field. Absent fields
// are never shape-checked; presence is the rule set's concern.
type SchemaField struct {
	Name        string
	Type        FieldType
	NotNull     bool
	Description string
}

// HeaderSchema lists the well-known header fields in the order their shape
// violations are reported.
var HeaderSchema = []SchemaField{
	{Name: "type", Type: FieldTypeString, NotNull: true, Description: "Document category"},
	{Name: "title", Type: FieldTypeString, NotNull: true, Description: "Human-readable title"},
	{Name: "status", Type: FieldTypeString, NotNull: true, Description: "Lifecycle status"},
	{Name: "category", Type: FieldTypeString, Description: "Free-form grouping"},
	{Name: "tags", Type: FieldTypeArray, Description: "List of tags"},
	{Name: "date", Type: FieldTypeString, Description: "Document date"},
	{Name: "created", Type: FieldTypeString, Description: "Creation date"},
	{Name: "updated", Type: FieldTypeString, Description: "Last update date"},
}

// checkShape returns a message describing why v does not fit field, or "".
func (f SchemaField) checkShape(v frontmatter.Value) string {
	kind := v.Kind()
	switch f.Type {
	case FieldTypeArray:
		if kind != frontmatter.KindList {
			return fmt.Sprintf("Field '%s': must be a list of strings, got %s", f.Name, kind)
		}
	default:
		if kind == frontmatter.KindNull && !f.NotNull {
			return ""
		}
		if kind != frontmatter.KindScalar {
			return fmt.Sprintf("Field '%s': must be a string, got %s", f.Name, kind)
		}
	}
	return ""
}
