// Package watch revalidates documents as they change on disk. File system
// events are debounced and deduplicated by content fingerprint, so editors
// that write a file several times produce one report.
package watch

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"

	"github.com/wchoi189/agentqms/internal/validation"
)

const (
	// DefaultDebounce is how long changes accumulate before revalidation.
	DefaultDebounce = 300 * time.Millisecond

	eventChannelBuffer = 256
)

// Op is the kind of change observed for a document.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Event reports a changed document. Report is nil for deletions.
type Event struct {
	Path   string
	Op     Op
	Report *validation.Report
}

// FileValidator validates a single document.
type FileValidator interface {
	ValidateFile(path string) *validation.Report
}

// Config tunes which files are watched and how changes are batched.
type Config struct {
	Extensions  []string
	ExcludeDirs []string
	// Include and Exclude are doublestar globs matched against the path
	// relative to the watched root, as in directory validation.
	Include  []string
	Exclude  []string
	Debounce time.Duration
}

// Watcher watches a document tree and emits a validation report for every
// document whose content changed.
type Watcher struct {
	root       string
	validator  FileValidator
	debounce   time.Duration
	extensions map[string]bool
	excludes   map[string]bool
	include    []string
	exclude    []string
	fsw        *fsnotify.Watcher
	logger     *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	events  chan Event
	dropped atomic.Int64
}

// New creates a Watcher for root. Call Start to begin watching.
func New(root string, v FileValidator, cfg Config, logger *slog.Logger) (*Watcher, error) {
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		root:       root,
		validator:  v,
		debounce:   cfg.Debounce,
		extensions: make(map[string]bool),
		excludes:   make(map[string]bool),
		include:    cfg.Include,
		exclude:    cfg.Exclude,
		fsw:        fsw,
		logger:     logger,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		events:     make(chan Event, eventChannelBuffer),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = validation.DefaultExtensions
	}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extensions[strings.ToLower(ext)] = true
	}
	dirs := cfg.ExcludeDirs
	if dirs == nil {
		dirs = validation.DefaultExcludeDirs
	}
	for _, d := range dirs {
		w.excludes[d] = true
	}
	return w, nil
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

// Start adds watches for the tree, records fingerprints of the existing
// documents and begins processing events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: w.root, Err: fs.ErrInvalid}
	}

	if err := w.addTree(w.root, true); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("document watcher started", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// addTree watches every non-excluded directory under dir. When prime is set
// existing documents are fingerprinted without emitting events; otherwise
// they are queued, since files created with a new directory may predate its
// watch.
func (w *Watcher) addTree(dir string, prime bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}

		if d.IsDir() {
			if path != w.root && w.excludes[d.Name()] {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
			return nil
		}

		if !w.isDocument(path) || !w.selected(path) {
			return nil
		}
		if prime {
			if content, err := os.ReadFile(path); err == nil {
				w.setHash(path, fingerprint(content))
			}
			return nil
		}
		w.queue(path, fsnotify.Create)
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.isDocument(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !w.excludes[filepath.Base(path)] {
				if err := w.addTree(path, false); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}
	if w.inExcludedDir(path) || !w.selected(path) {
		return
	}
	w.queue(path, event.Op)
}

func (w *Watcher) queue(path string, op fsnotify.Op) {
	w.pendingMu.Lock()
	w.pending[path] |= op
	w.pendingMu.Unlock()
}

// flushPending validates every document that changed since the last flush,
// in path order.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(toProcess))
	for p := range toProcess {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}

		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				if w.deleteHash(path) {
					w.sendEvent(Event{Path: path, Op: OpDelete})
				}
				continue
			}
			w.logger.Warn("failed to read changed document", "path", path, "error", err)
			continue
		}

		newHash := fingerprint(content)
		oldHash, hadHash := w.getHash(path)
		if hadHash && oldHash == newHash {
			continue
		}
		w.setHash(path, newHash)

		op := OpModify
		if !hadHash {
			op = OpCreate
		}
		w.sendEvent(Event{Path: path, Op: op, Report: w.validator.ValidateFile(path)})
	}
}

func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("document revalidated", "path", event.Path, "op", event.Op)
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("event channel full, dropping event", "path", event.Path, "total_dropped", dropped)
	}
}

func (w *Watcher) isDocument(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// selected applies the include and exclude globs to path.
func (w *Watcher) selected(path string) bool {
	if len(w.include) == 0 && len(w.exclude) == 0 {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if len(w.include) > 0 && !matchAny(w.include, rel) {
		return false
	}
	return !matchAny(w.exclude, rel)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) inExcludedDir(path string) bool {
	rel, err := filepath.Rel(w.root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.excludes[part] {
			return true
		}
	}
	return false
}

func (w *Watcher) getHash(path string) (string, bool) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	h, ok := w.hashes[path]
	return h, ok
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) deleteHash(path string) bool {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	_, ok := w.hashes[path]
	delete(w.hashes, path)
	return ok
}

func fingerprint(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
