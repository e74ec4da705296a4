package stats

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// BrokenLink is a relative link whose target does not exist.
type BrokenLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Line   int    `json:"line,omitempty"`
}

// The goldmark parser configuration never changes, and Parse creates
// per-call state, so one instance is shared.
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParserInstance
}

// linkRef is a link destination and the body line it appears on.
type linkRef struct {
	dest string
	line int
}

// extractLinks returns the destinations of every link and image in body.
func extractLinks(body []byte) []linkRef {
	if len(body) == 0 {
		return nil
	}
	document := getMarkdownParser().Parser().Parse(text.NewReader(body))

	var refs []linkRef
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest []byte
		switch n := node.(type) {
		case *ast.Link:
			dest = n.Destination
		case *ast.Image:
			dest = n.Destination
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		default:
			return ast.WalkContinue, nil
		}
		refs = append(refs, linkRef{dest: string(dest), line: lineOf(body, node)})
		return ast.WalkSkipChildren, nil
	})
	return refs
}

// lineOf returns the 1-based body line of the first text segment under node.
func lineOf(source []byte, node ast.Node) int {
	for c := node.FirstChild(); c != nil; c = c.FirstChild() {
		if t, ok := c.(*ast.Text); ok {
			return 1 + strings.Count(string(source[:t.Segment.Start]), "\n")
		}
	}
	return 0
}

// localTarget reports whether dest points into the corpus and returns its
// path without query or fragment.
func localTarget(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// resolves reports whether a link found in doc resolves to an existing path.
// Root-relative destinations ("/x.md") resolve against root.
func resolves(root, doc, target string) bool {
	var path string
	if strings.HasPrefix(target, "/") {
		path = filepath.Join(root, filepath.FromSlash(target))
	} else {
		path = filepath.Join(filepath.Dir(doc), filepath.FromSlash(target))
	}
	_, err := os.Stat(path)
	return err == nil
}
