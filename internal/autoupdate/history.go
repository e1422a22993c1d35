// Package autoupdate provides the persisted staging history.
package autoupdate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Error variables for history errors
var (
	// ErrHistoryCorrupted is returned when the history file cannot be parsed
	ErrHistoryCorrupted = errors.New("history file is corrupted")
)

// MaxHistoryEntries bounds the history file; older entries are dropped first
const MaxHistoryEntries = 500

// StageStatus is the outcome of one package in one run
type StageStatus string

// Stage status constants
const (
	// StatusStaged indicates a new build directory was created
	StatusStaged StageStatus = "staged"
	// StatusSkipped indicates the build already existed
	StatusSkipped StageStatus = "skipped"
	// StatusFailed indicates the version check or staging failed
	StatusFailed StageStatus = "failed"
)

// HistoryEntry records one package outcome of a run
type HistoryEntry struct {
	RunID   string      `json:"run_id"`
	BuildID string      `json:"build_id,omitempty"`
	Package string      `json:"package"`
	Version string      `json:"version,omitempty"`
	Status  StageStatus `json:"status"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}

// historyFile represents the JSON structure stored on disk
type historyFile struct {
	Entries []HistoryEntry `json:"entries"`
}

// History is the append-only record of staging outcomes, oldest first.
// It is persisted after every append and safe for concurrent use.
type History struct {
	entries []HistoryEntry
	path    string
	mu      sync.RWMutex
	nowFunc func() time.Time
}

// HistoryOption is a functional option for configuring History
type HistoryOption func(*History)

// WithHistoryNowFunc sets a custom time function for testing
func WithHistoryNowFunc(fn func() time.Time) HistoryOption {
	return func(h *History) {
		h.nowFunc = fn
	}
}

// OpenHistory creates or loads history.json in stateDir.
// A corrupted file is treated as empty and replaced on the next append.
func OpenHistory(stateDir string, opts ...HistoryOption) (*History, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	h := &History{
		path:    filepath.Join(stateDir, "history.json"),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.load(); err != nil && !os.IsNotExist(err) {
		h.entries = nil
	}
	return h, nil
}

// Path returns the file the history is persisted to
func (h *History) Path() string {
	return h.path
}

func (h *History) load() error {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return err
	}

	var hf historyFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryCorrupted, err)
	}
	h.entries = hf.Entries
	return nil
}

// Append records entries and saves the history.
// Entries without a timestamp get the current time.
func (h *History) Append(entries ...HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range entries {
		if e.At.IsZero() {
			e.At = h.nowFunc()
		}
		h.entries = append(h.entries, e)
	}
	if over := len(h.entries) - MaxHistoryEntries; over > 0 {
		h.entries = append([]HistoryEntry(nil), h.entries[over:]...)
	}
	return h.saveUnsafe()
}

// List returns a copy of all entries, oldest first
func (h *History) List() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]HistoryEntry(nil), h.entries...)
}

// Last returns up to n most recent entries, oldest first. n <= 0 returns all.
func (h *History) Last(n int) []HistoryEntry {
	all := h.List()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// saveUnsafe persists the history. Caller must hold the write lock.
func (h *History) saveUnsafe() error {
	data, err := json.MarshalIndent(historyFile{Entries: h.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename history file: %w", err)
	}
	return nil
}
