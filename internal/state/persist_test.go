package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_NoTempFileLeftBehind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json")

	require.NoError(t, writeAtomic(path, map[string]string{"a": "b"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not survive a successful write")
}

func TestSaveCheckpoint_And_LoadCheckpoint_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := New("T-1", dir, 20)
	s.RecordPhase(PhaseSummary{Name: "phase0", CostUSD: 1.5, Turns: 3})
	s.SetPhase("interrogate")
	require.NoError(t, s.SaveCheckpoint())

	phase, cost, phases, err := LoadCheckpoint(dir)
	require.NoError(t, err)
	assert.Equal(t, "interrogate", phase)
	assert.Equal(t, 1.5, cost)
	require.Len(t, phases, 1)
	assert.Equal(t, "phase0", phases[0].Name)
}

func TestLoadCheckpoint_MissingFile(t *testing.T) {
	t.Parallel()

	_, _, _, err := LoadCheckpoint(t.TempDir())
	assert.Error(t, err)
}

func TestAppendMetrics_AppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.jsonl")

	s1 := New("T-1", "logs/a", 10)
	s1.RecordPhase(PhaseSummary{Name: "phase0", CostUSD: 1})
	require.NoError(t, s1.AppendMetrics(path))

	s2 := New("T-2", "logs/b", 10)
	s2.RecordPhase(PhaseSummary{Name: "phase0", CostUSD: 2})
	require.NoError(t, s2.AppendMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var mf metricsFile
	require.NoError(t, json.Unmarshal(data, &mf))
	require.Len(t, mf.Entries, 2)
	assert.Equal(t, "T-1", mf.Entries[0].Ticket)
	assert.Equal(t, "T-2", mf.Entries[1].Ticket)
}
