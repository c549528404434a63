package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manager provides high-level operations on the run journal
type Manager struct {
	storage *Storage
}

// NewManager creates a new run manager
func NewManager(storagePath string) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	return &Manager{
		storage: storage,
	}, nil
}

// StartRun records a new run in progress
func (m *Manager) StartRun(chainID int64, account, layer2 string) (*Run, error) {
	run := &Run{
		ID:      uuid.New().String(),
		Started: time.Now(),
		Status:  RunRunning,
		ChainID: chainID,
		Account: account,
		Layer2:  layer2,
		Steps:   []Step{},
	}

	if err := m.storage.Create(run); err != nil {
		return nil, err
	}

	return run, nil
}

// RecordStep appends a step to a run
func (m *Manager) RecordStep(id string, step Step) error {
	return m.storage.Update(id, func(run *Run) error {
		if !run.IsRunning() {
			return fmt.Errorf("run '%s' is already %s", id, run.Status)
		}
		if step.Timestamp.IsZero() {
			step.Timestamp = time.Now()
		}
		run.Steps = append(run.Steps, step)
		return nil
	})
}

// SetLayer2 records the layer2 a run stakes against
func (m *Manager) SetLayer2(id, layer2 string) error {
	return m.storage.Update(id, func(run *Run) error {
		run.Layer2 = layer2
		return nil
	})
}

// FinishRun marks a run as finished with status
func (m *Manager) FinishRun(id string, status RunStatus) error {
	if status == RunRunning {
		return fmt.Errorf("cannot finish run '%s' as %s", id, status)
	}

	return m.storage.Update(id, func(run *Run) error {
		now := time.Now()
		run.Finished = &now
		run.Status = status
		return nil
	})
}

// GetRun retrieves a run by ID or by a unique ID prefix
func (m *Manager) GetRun(id string) (*Run, error) {
	if run, err := m.storage.Get(id); err == nil {
		return run, nil
	}

	var match *Run
	for _, run := range m.storage.List() {
		if strings.HasPrefix(run.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run prefix '%s' is ambiguous", id)
			}
			match = run
		}
	}

	if match == nil || id == "" {
		return nil, fmt.Errorf("run '%s' not found", id)
	}
	return match, nil
}

// ListRuns returns all runs, newest first
func (m *Manager) ListRuns() []*Run {
	return m.storage.List()
}

// LatestRun returns the most recently started run
func (m *Manager) LatestRun() (*Run, error) {
	runs := m.storage.List()
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs recorded")
	}
	return runs[0], nil
}

// DeleteRun removes a run. A run still in progress is only removed with force.
func (m *Manager) DeleteRun(id string, force bool) error {
	run, err := m.GetRun(id)
	if err != nil {
		return err
	}

	if run.IsRunning() && !force {
		return fmt.Errorf("cannot delete run '%s' while it is running, use --force for stale runs", run.ID)
	}

	return m.storage.Delete(run.ID)
}

// GetStorage returns the storage instance
func (m *Manager) GetStorage() *Storage {
	return m.storage
}
