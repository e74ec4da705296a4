// Package history keeps a journal of applied fixes in the state directory so
// users can audit what the remediator changed and whether it was committed.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// JournalFileName is the name of the fix journal file.
	JournalFileName = "fixes.yaml"
	// BackupSuffix is the suffix for backup files when corruption is detected.
	BackupSuffix = ".backup"
)

// Entry records one applied (non dry-run) fix attempt.
type Entry struct {
	// ID is a random UUID.
	ID        string    `yaml:"id" json:"id"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Path      string    `yaml:"path" json:"path"`
	RuleID    string    `yaml:"rule_id" json:"rule_id"`
	// Field is the header key that was set, empty for unfixable attempts.
	Field        string `yaml:"field,omitempty" json:"field,omitempty"`
	Message      string `yaml:"message" json:"message"`
	Success      bool   `yaml:"success" json:"success"`
	GitCommitted bool   `yaml:"git_committed" json:"git_committed"`
}

// Journal represents the YAML file containing all entries.
type Journal struct {
	// Entries is ordered oldest first.
	Entries []Entry `yaml:"entries"`
}

// DefaultStateDir returns ~/.agentqms/state.
func DefaultStateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".agentqms", "state"), nil
}

// Load loads the journal from the given state directory.
// Returns an empty journal if the file doesn't exist.
// Handles corrupted files by backing them up and starting fresh.
func Load(stateDir string) (*Journal, error) {
	journalPath := filepath.Join(stateDir, JournalFileName)

	data, err := os.ReadFile(journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Journal{Entries: []Entry{}}, nil
		}
		return nil, fmt.Errorf("reading fix journal: %w", err)
	}

	var journal Journal
	if err := yaml.Unmarshal(data, &journal); err != nil {
		if backupErr := backupCorruptedFile(journalPath); backupErr != nil {
			return nil, fmt.Errorf("backing up corrupted fix journal: %w", backupErr)
		}
		return &Journal{Entries: []Entry{}}, nil
	}

	if journal.Entries == nil {
		journal.Entries = []Entry{}
	}

	return &journal, nil
}

// backupCorruptedFile renames a corrupted file with a .backup suffix.
func backupCorruptedFile(path string) error {
	backupPath := path + BackupSuffix
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("renaming corrupted file to backup: %w", err)
	}
	return nil
}

// Save writes the journal to the given state directory using atomic writes.
// Creates parent directories if needed.
func Save(stateDir string, journal *Journal) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(journal)
	if err != nil {
		return fmt.Errorf("marshaling fix journal: %w", err)
	}

	journalPath := filepath.Join(stateDir, JournalFileName)
	tmpPath := journalPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp fix journal: %w", err)
	}

	if err := os.Rename(tmpPath, journalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp fix journal: %w", err)
	}

	return nil
}

// Clear removes all entries from the journal.
func Clear(stateDir string) error {
	return Save(stateDir, &Journal{Entries: []Entry{}})
}

// Filter selects journal entries. Zero fields match everything.
type Filter struct {
	// Path matches entries whose path equals or ends with this value.
	Path   string
	RuleID string
	// Limit caps the number of returned entries; <= 0 means no limit.
	Limit int
}

// Query returns the entries matching f, newest first.
func (j *Journal) Query(f Filter) []Entry {
	var out []Entry
	for i := len(j.Entries) - 1; i >= 0; i-- {
		e := j.Entries[i]
		if f.RuleID != "" && e.RuleID != f.RuleID {
			continue
		}
		if f.Path != "" && !matchesPath(e.Path, f.Path) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func matchesPath(entryPath, want string) bool {
	entryPath = filepath.ToSlash(filepath.Clean(entryPath))
	want = filepath.ToSlash(filepath.Clean(want))
	if entryPath == want {
		return true
	}
	return len(entryPath) > len(want) &&
		entryPath[len(entryPath)-len(want)-1] == '/' &&
		entryPath[len(entryPath)-len(want):] == want
}
