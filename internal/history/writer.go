package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer provides thread-safe journal logging with automatic pruning.
type Writer struct {
	// StateDir is the directory containing the journal file.
	StateDir string
	// MaxEntries is the maximum number of entries to retain.
	MaxEntries int

	mu  sync.Mutex
	now func() time.Time
}

// NewWriter creates a new journal writer.
func NewWriter(stateDir string, maxEntries int) *Writer {
	return &Writer{
		StateDir:   stateDir,
		MaxEntries: maxEntries,
		now:        time.Now,
	}
}

// Record appends entry to the journal, assigning an ID and timestamp when
// unset, and prunes the oldest entries beyond MaxEntries.
func (w *Writer) Record(entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = w.clock().UTC()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	journal, err := Load(w.StateDir)
	if err != nil {
		return entry, fmt.Errorf("loading fix journal: %w", err)
	}

	journal.Entries = append(journal.Entries, entry)

	// Prune oldest entries if over limit
	if w.MaxEntries > 0 && len(journal.Entries) > w.MaxEntries {
		excess := len(journal.Entries) - w.MaxEntries
		journal.Entries = journal.Entries[excess:]
	}

	if err := Save(w.StateDir, journal); err != nil {
		return entry, fmt.Errorf("saving fix journal: %w", err)
	}

	return entry, nil
}

func (w *Writer) clock() time.Time {
	if w.now == nil {
		return time.Now()
	}
	return w.now()
}
