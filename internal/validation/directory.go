package validation

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// AggregateReport summarizes the validation of a set of documents.
type AggregateReport struct {
	ComplianceRate float64         `json:"compliance_rate"`
	Total          int             `json:"total_files"`
	Valid          int             `json:"valid_files"`
	Violations     []FileViolation `json:"violations"`
	// Reports holds the per-file reports sorted by path.
	Reports []*Report `json:"-"`
}

// FileViolation is a violation tagged with the document it was found in.
type FileViolation struct {
	File string `json:"file"`
	Path string `json:"path"`
	Violation
}

// NewAggregate builds an aggregate from per-file reports. Reports are sorted
// by path so the result is deterministic for an unchanged corpus.
func NewAggregate(reports []*Report) *AggregateReport {
	sorted := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	agg := &AggregateReport{
		ComplianceRate: 100,
		Total:          len(sorted),
		Violations:     []FileViolation{},
		Reports:        sorted,
	}
	for _, r := range sorted {
		if r.IsCompliant {
			agg.Valid++
		}
		for _, v := range r.Violations {
			agg.Violations = append(agg.Violations, FileViolation{
				File:      filepath.Base(r.Path),
				Path:      r.Path,
				Violation: v,
			})
		}
	}
	if agg.Total > 0 {
		agg.ComplianceRate = float64(agg.Valid) / float64(agg.Total) * 100
	}
	return agg
}

// ValidateDirectory validates every document under root. Individual document
// failures become violations; only a missing or non-directory root, or a
// cancelled context, returns an error.
func (v *Validator) ValidateDirectory(ctx context.Context, root string) (*AggregateReport, error) {
	start := time.Now()

	paths, err := v.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	reports := make([]*Report, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = v.ValidateFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", root, err)
	}

	agg := NewAggregate(reports)
	elapsed := time.Since(start)
	v.metrics.ObserveScan(elapsed)
	v.logger.Info("directory validated",
		"root", root,
		"total", agg.Total,
		"valid", agg.Valid,
		"violations", len(agg.Violations),
		"duration", elapsed)
	return agg, nil
}

// Discover returns the documents under root in lexical path order.
func (v *Validator) Discover(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			v.logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && v.excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if v.matches(root, path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}

// matches applies the extension filter and the include/exclude globs.
func (v *Validator) matches(root, path string) bool {
	if !v.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	if len(v.include) > 0 && !matchAny(v.include, rel) {
		return false
	}
	return !matchAny(v.exclude, rel)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
