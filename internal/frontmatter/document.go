// Package frontmatter extracts and writes the YAML metadata header of Markdown
// artifacts. A document is a header block delimited by "---" lines followed by a
// free-form body; documents without a leading "---" line have an empty header.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// utf8BOM is the byte order mark some editors put before the first line.
var utf8BOM = []byte("\ufeff")

// Document is a parsed artifact: its header and the untouched body bytes.
type Document struct {
	Header *Header
	Body   []byte
	// HasHeader is false when the source had no frontmatter block at all.
	HasHeader bool
	// BOM records a leading UTF-8 byte order mark; Serialize writes it back.
	BOM bool
}

// ParseError reports a frontmatter block that exists but cannot be read as a
// YAML mapping.
type ParseError struct {
	Line    int // 1-based document line, 0 when unknown
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extract reads and parses the document at path. A missing file yields an
// error matching fs.ErrNotExist; a malformed header yields *ParseError.
func Extract(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse splits content into header and body. A leading byte order mark is
// kept out of both and recorded on the Document.
func Parse(content []byte) (*Document, error) {
	bom := bytes.HasPrefix(content, utf8BOM)
	content = bytes.TrimPrefix(content, utf8BOM)

	first, rest, _ := cutLine(content)
	if !isDelimiter(first, false) {
		return &Document{Header: NewHeader(), Body: content, BOM: bom}, nil
	}

	yamlStart := len(content) - len(rest)
	for remaining := rest; len(remaining) > 0; {
		lineStart := len(content) - len(remaining)
		line, next, _ := cutLine(remaining)
		if isDelimiter(line, true) {
			header, err := parseHeader(content[yamlStart:lineStart])
			if err != nil {
				return nil, err
			}
			return &Document{Header: header, Body: next, HasHeader: true, BOM: bom}, nil
		}
		remaining = next
	}

	return nil, &ParseError{Line: 1, Message: "unterminated frontmatter block: missing closing '---'"}
}

// Serialize renders the document with a canonical header block. The body is
// written back byte for byte.
func (d *Document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if d.BOM {
		buf.Write(utf8BOM)
	}
	buf.WriteString(delimiter + "\n")
	if d.Header.Len() > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.Header.mappingNode()); err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
	}
	buf.WriteString(delimiter + "\n")
	buf.Write(d.Body)
	return buf.Bytes(), nil
}

// Write serializes doc and atomically replaces the file at path, keeping its
// permission bits.
func Write(path string, doc *Document) error {
	data, err := doc.Serialize()
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// parseHeader decodes the YAML between the delimiters. The block starts on
// document line 2, so node lines are shifted by one.
func parseHeader(block []byte) (*Header, error) {
	const lineOffset = 1

	header := NewHeader()
	header.lineOffset = lineOffset

	if len(bytes.TrimSpace(block)) == 0 {
		return header, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		line := extractLine(err.Error())
		if line > 0 {
			line += lineOffset
		}
		return nil, &ParseError{Line: line, Message: cleanYAMLError(err.Error()), Err: err}
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return header, nil
	}
	mapping := root.Content[0]
	header.headComment = joinComments(root.HeadComment, mapping.HeadComment)
	header.footComment = joinComments(mapping.FootComment, root.FootComment)

	if mapping.Kind == yaml.ScalarNode && mapping.ShortTag() == "!!null" {
		return header, nil
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Line:    mapping.Line + lineOffset,
			Message: fmt.Sprintf("frontmatter must be a mapping, got %s", kindName(mapping.Kind)),
		}
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if header.Has(key.Value) {
			return nil, &ParseError{
				Line:    key.Line + lineOffset,
				Message: fmt.Sprintf("duplicate key %q", key.Value),
			}
		}
		header.index[key.Value] = len(header.entries)
		header.entries = append(header.entries, entry{key: key, value: value})
	}
	return header, nil
}

// cutLine returns the first line of b without its terminator and the bytes
// after it. found is false when b has no newline.
func cutLine(b []byte) (line, rest []byte, found bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, nil, false
}

func isDelimiter(line []byte, closing bool) bool {
	s := strings.TrimRight(string(line), " \t\r")
	if s == delimiter {
		return true
	}
	return closing && s == "..."
}

func joinComments(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n\n" + b
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unknown node"
	}
}

// extractLine pulls the line number out of a yaml.v3 error such as
// "yaml: line 5: could not find expected ':'". Returns 0 if absent.
func extractLine(errMsg string) int {
	var l int
	if n, _ := fmt.Sscanf(errMsg, "yaml: line %d:", &l); n == 1 {
		return l
	}
	return 0
}

// cleanYAMLError strips the "yaml: line X:" prefix.
func cleanYAMLError(errMsg string) string {
	if strings.HasPrefix(errMsg, "yaml:") {
		if idx := strings.LastIndex(errMsg, ": "); idx > 0 {
			return errMsg[idx+2:]
		}
	}
	return errMsg
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
