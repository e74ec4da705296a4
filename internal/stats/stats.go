// Package stats computes corpus-level statistics over the document tree:
// document counts per category, header completeness percentages and the
// health of relative links between documents.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wchoi189/agentqms/internal/frontmatter"
)

// UnknownType is the distribution bucket for documents without a type.
const UnknownType = "unknown"

// Discoverer lists the documents under a root.
type Discoverer interface {
	Discover(ctx context.Context, root string) ([]string, error)
}

// Options tune a Collect run.
type Options struct {
	Workers int
	Logger  *slog.Logger
}

// TypeCount is the number of documents of one category.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Summary holds the corpus statistics. Percentages are truncated integers.
type Summary struct {
	TotalDocs         int          `json:"total_docs"`
	Distribution      []TypeCount  `json:"distribution"`
	SchemaCompliance  int          `json:"schema_compliance"`
	TimestampAccuracy int          `json:"timestamp_accuracy"`
	BranchIntegration int          `json:"branch_integration"`
	LinksChecked      int          `json:"links_checked"`
	BrokenLinks       int          `json:"broken_links"`
	ReferenceHealth   int          `json:"reference_health"`
	ParseFailures     int          `json:"parse_failures"`
	Broken            []BrokenLink `json:"broken,omitempty"`
}

// docStats is the per-document contribution to a Summary.
type docStats struct {
	parsed     bool
	docType    string
	schemaOK   bool
	hasDate    bool
	hasBranch  bool
	linksTotal int
	broken     []BrokenLink
}

// Collect computes statistics for every document d discovers under root.
func Collect(ctx context.Context, d Discoverer, root string, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths, err := d.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	results := make([]docStats, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = inspect(root, path, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collecting stats for %s: %w", root, err)
	}

	return summarize(results), nil
}

func inspect(root, path string, logger *slog.Logger) docStats {
	doc, err := frontmatter.Extract(path)
	if err != nil {
		logger.Debug("skipping unreadable document", "path", path, "error", err)
		return docStats{}
	}

	h := doc.Header
	s := docStats{parsed: true, docType: UnknownType}
	if t, ok := h.Get("type"); ok && t.Kind() == frontmatter.KindScalar && t.String() != "" {
		s.docType = t.String()
	}
	s.schemaOK = truthy(h, "title") && truthy(h, "type") && truthy(h, "status")
	s.hasDate = truthy(h, "date") || truthy(h, "created")
	s.hasBranch = truthy(h, "branch_name")

	for _, ref := range extractLinks(doc.Body) {
		target, ok := localTarget(ref.dest)
		if !ok {
			continue
		}
		s.linksTotal++
		if !resolves(root, path, target) {
			s.broken = append(s.broken, BrokenLink{Source: path, Target: ref.dest, Line: ref.line})
		}
	}
	return s
}

func truthy(h *frontmatter.Header, key string) bool {
	v, _ := h.Get(key)
	return v.Truthy()
}

func summarize(results []docStats) *Summary {
	sum := &Summary{
		TotalDocs:    len(results),
		Distribution: []TypeCount{},
	}
	if sum.TotalDocs == 0 {
		return sum
	}

	counts := map[string]int{}
	var schemaOK, hasDate, hasBranch int
	for _, r := range results {
		if !r.parsed {
			sum.ParseFailures++
			continue
		}
		counts[r.docType]++
		if r.schemaOK {
			schemaOK++
		}
		if r.hasDate {
			hasDate++
		}
		if r.hasBranch {
			hasBranch++
		}
		sum.LinksChecked += r.linksTotal
		sum.Broken = append(sum.Broken, r.broken...)
	}

	for t, n := range counts {
		sum.Distribution = append(sum.Distribution, TypeCount{Type: t, Count: n})
	}
	sort.Slice(sum.Distribution, func(i, j int) bool {
		return sum.Distribution[i].Type < sum.Distribution[j].Type
	})

	sum.SchemaCompliance = percent(schemaOK, sum.TotalDocs)
	sum.TimestampAccuracy = percent(hasDate, sum.TotalDocs)
	sum.BranchIntegration = percent(hasBranch, sum.TotalDocs)
	sum.BrokenLinks = len(sum.Broken)
	sum.ReferenceHealth = 100
	if sum.LinksChecked > 0 {
		sum.ReferenceHealth = percent(sum.LinksChecked-sum.BrokenLinks, sum.LinksChecked)
	}
	return sum
}

func percent(n, total int) int {
	return n * 100 / total
}
