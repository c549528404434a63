package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	return m, path
}

func TestManager_RunLifecycle(t *testing.T) {
	m, path := newTestManager(t)

	run, err := m.StartRun(31337, "0xabc", "")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, RunRunning, run.Status)

	require.NoError(t, m.RecordStep(run.ID, Step{Phase: PhaseSwap, Name: "wrap", Status: StepSucceeded}))
	require.NoError(t, m.SetLayer2(run.ID, "0xf3B17FDB808c7d0Df9ACd24dA34700ce069007DF"))
	require.NoError(t, m.FinishRun(run.ID, RunCompleted))

	// Reload from disk
	reloaded, err := NewManager(path)
	require.NoError(t, err)

	got, err := reloaded.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.NotNil(t, got.Finished)
	assert.Equal(t, "0xf3B17FDB808c7d0Df9ACd24dA34700ce069007DF", got.Layer2)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "wrap", got.Steps[0].Name)
	assert.False(t, got.Steps[0].Timestamp.IsZero())
}

func TestManager_RecordStepAfterFinish(t *testing.T) {
	m, _ := newTestManager(t)

	run, err := m.StartRun(1, "0xabc", "")
	require.NoError(t, err)
	require.NoError(t, m.FinishRun(run.ID, RunFailed))

	err = m.RecordStep(run.ID, Step{Name: "late"})
	assert.Error(t, err)
}

func TestManager_FinishRunAsRunning(t *testing.T) {
	m, _ := newTestManager(t)

	run, err := m.StartRun(1, "0xabc", "")
	require.NoError(t, err)
	assert.Error(t, m.FinishRun(run.ID, RunRunning))
}

func TestManager_GetRunByPrefix(t *testing.T) {
	m, _ := newTestManager(t)

	run, err := m.StartRun(1, "0xabc", "")
	require.NoError(t, err)

	got, err := m.GetRun(run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	_, err = m.GetRun("")
	assert.Error(t, err)

	_, err = m.GetRun("zzzz")
	assert.Error(t, err)
}

func TestManager_ListAndLatest(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.LatestRun()
	assert.Error(t, err)

	first, err := m.StartRun(1, "0xabc", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := m.StartRun(1, "0xabc", "")
	require.NoError(t, err)

	runs := m.ListRuns()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	latest, err := m.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestManager_DeleteRun(t *testing.T) {
	m, _ := newTestManager(t)

	run, err := m.StartRun(1, "0xabc", "")
	require.NoError(t, err)

	err = m.DeleteRun(run.ID, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "while it is running")

	require.NoError(t, m.DeleteRun(run.ID, true))
	assert.Equal(t, 0, m.GetStorage().Count())

	assert.Error(t, m.DeleteRun(run.ID, true))
}

func TestStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewStorage(path)
	assert.Error(t, err)
}

func TestStorage_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.json")

	s, err := NewStorage(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, path, s.GetFilePath())

	require.NoError(t, s.Create(&Run{ID: "one", Status: RunRunning}))
	_, err = os.Stat(path)
	assert.NoError(t, err)

	assert.Error(t, s.Create(&Run{ID: "one"}))
}

func TestStorage_GetReturnsCopy(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, err)
	require.NoError(t, s.Create(&Run{ID: "one", Status: RunRunning}))

	run, err := s.Get("one")
	require.NoError(t, err)
	run.Status = RunFailed

	again, err := s.Get("one")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, again.Status)
}
