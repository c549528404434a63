package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	DefaultStorageFileName = ".wton-stake-runs.json"
)

// Storage handles persistence of runs
type Storage struct {
	filePath string
	mu       sync.RWMutex
	runs     map[string]*Run
}

// RunStorage represents the JSON structure for storage
type RunStorage struct {
	Runs map[string]*Run `json:"runs"`
}

// NewStorage creates a new storage instance
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		runs:     make(map[string]*Run),
	}

	// A missing file is created on first save
	if err := storage.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}

	return storage, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var runStorage RunStorage
	if err := json.Unmarshal(data, &runStorage); err != nil {
		return fmt.Errorf("failed to unmarshal runs: %w", err)
	}

	s.runs = runStorage.Runs
	if s.runs == nil {
		s.runs = make(map[string]*Run)
	}

	return nil
}

// saveLocked writes runs to the storage file. Callers hold s.mu.
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(RunStorage{Runs: s.runs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runs: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Create adds a new run to storage
func (s *Storage) Create(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run '%s' already exists", run.ID)
	}

	s.runs[run.ID] = run.clone()
	return s.saveLocked()
}

// Get retrieves a copy of a run by ID
func (s *Storage) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run '%s' not found", id)
	}

	return run.clone(), nil
}

// Update applies fn to a stored run and persists the result
func (s *Storage) Update(id string, fn func(run *Run) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("run '%s' not found", id)
	}

	updated := run.clone()
	if err := fn(updated); err != nil {
		return err
	}

	s.runs[id] = updated
	return s.saveLocked()
}

// Delete removes a run from storage
func (s *Storage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("run '%s' not found", id)
	}

	delete(s.runs, id)
	return s.saveLocked()
}

// List returns copies of all runs, newest first
func (s *Storage) List() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run.clone())
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Started.After(runs[j].Started)
	})

	return runs
}

// Count returns the total number of runs
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.runs)
}

// GetFilePath returns the storage file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}
