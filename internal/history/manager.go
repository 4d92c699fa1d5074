// Package history keeps a record of completed installer jobs on disk so the
// outcome of past installs survives a restart.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Record describes one finished job.
type Record struct {
	Queued   time.Time `json:"queued"`
	Finished time.Time `json:"finished"`
	ID       string    `json:"id"`
	Action   string    `json:"action"`
	Tool     string    `json:"tool"`
	Targets  []string  `json:"targets"`
	State    string    `json:"state"`
	ExitCode int       `json:"exit_code"`
	// OutputTail holds the last lines of merged output, enough to diagnose
	// a failure without keeping whole logs around.
	OutputTail []string `json:"output_tail,omitempty"`
}

// Manager handles the on-disk job history.
type Manager struct {
	historyPath string
	records     map[string]*Record
	mu          sync.Mutex
}

// NewManager creates a history manager storing records under
// dataDir/history.
func NewManager(dataDir string) *Manager {
	return &Manager{
		historyPath: filepath.Join(dataDir, "history"),
		records:     make(map[string]*Record),
	}
}

// Initialize sets up the history directory and loads existing records.
func (m *Manager) Initialize() error {
	if err := os.MkdirAll(m.historyPath, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	return m.loadRecords()
}

// Append stores a finished job record and writes it to disk.
func (m *Manager) Append(record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.ID] = &record
	return m.saveRecord(&record)
}

// Get returns a record by job ID.
func (m *Manager) Get(id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[id]
	if !exists {
		return nil, fmt.Errorf("history record not found: %s", id)
	}
	return record, nil
}

// List returns all records, most recently finished first.
func (m *Manager) List() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]*Record, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Finished.After(records[j].Finished)
	})

	return records
}

// Prune deletes all but the keep most recent records.
func (m *Manager) Prune(keep int) error {
	records := m.List()
	if len(records) <= keep {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range records[keep:] {
		delete(m.records, record.ID)
		path := filepath.Join(m.historyPath, record.ID+".json")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (m *Manager) loadRecords() error {
	entries, err := os.ReadDir(m.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No history yet
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.historyPath, entry.Name()))
		if err != nil {
			continue // Skip bad files
		}

		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			continue // Skip bad JSON
		}

		m.records[record.ID] = &record
	}

	return nil
}

func (m *Manager) saveRecord(record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.historyPath, record.ID+".json"), data, 0o644)
}
