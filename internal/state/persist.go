package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic serializes v as indented JSON to path, via a temp file in the
// same directory followed by a rename, so a reader never observes a
// partially written file.
func writeAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %q: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming %q to %q: %w", tmp, path, err)
	}
	return nil
}

// checkpoint is the on-disk shape of checkpoint.json.
type checkpoint struct {
	Status       Status         `json:"status"`
	CurrentPhase string         `json:"current_phase"`
	Ticket       string         `json:"ticket"`
	TotalCost    float64        `json:"total_cost"`
	Timestamp    string         `json:"timestamp"`
	Phases       []PhaseSummary `json:"phases"`
}

// SaveCheckpoint writes checkpoint.json in s.LogDir, atomically.
func (s *PipelineState) SaveCheckpoint() error {
	snap := s.Snapshot()
	cp := checkpoint{
		Status:       snap.Status,
		CurrentPhase: snap.CurrentPhase,
		Ticket:       snap.Ticket,
		TotalCost:    snap.TotalCost,
		Timestamp:    nowUTC().Format("2006-01-02T15:04:05Z07:00"),
		Phases:       snap.Phases,
	}
	return writeAtomic(filepath.Join(snap.LogDir, "checkpoint.json"), cp)
}

// costLedger is the on-disk shape of costs.json.
type costLedger struct {
	Phases    []PhaseSummary `json:"phases"`
	TotalCost float64        `json:"total_cost"`
	Status    Status         `json:"status"`
	Started   string         `json:"started"`
}

// SaveCosts writes costs.json in s.LogDir, atomically.
func (s *PipelineState) SaveCosts() error {
	snap := s.Snapshot()
	ledger := costLedger{
		Phases:    snap.Phases,
		TotalCost: snap.TotalCost,
		Status:    snap.Status,
		Started:   s.StartedPhase(),
	}
	return writeAtomic(filepath.Join(snap.LogDir, "costs.json"), ledger)
}

// LoadCheckpoint restores current phase and total cost from an existing
// checkpoint.json, for --resume.
func LoadCheckpoint(logDir string) (currentPhase string, totalCost float64, phases []PhaseSummary, err error) {
	data, err := os.ReadFile(filepath.Join(logDir, "checkpoint.json"))
	if err != nil {
		return "", 0, nil, fmt.Errorf("reading checkpoint in %q: %w", logDir, err)
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return "", 0, nil, fmt.Errorf("parsing checkpoint in %q: %w", logDir, err)
	}
	return cp.CurrentPhase, cp.TotalCost, cp.Phases, nil
}

// MetricsEntry is the per-run record added to the shared metrics file at the
// end of a run.
type MetricsEntry struct {
	Ticket     string  `json:"ticket"`
	Timestamp  string  `json:"timestamp"`
	Tier       string  `json:"tier"`
	TotalCost  float64 `json:"total_cost"`
	PhaseCount int     `json:"phase_count"`
	RetryCount int     `json:"retry_count"`
	Status     Status  `json:"status"`
	LogDir     string  `json:"log_dir"`
}

// metricsFile is the on-disk shape of the shared metrics file: one indented
// JSON object whose "entries" array holds one entry per run (not one JSON
// line per run). It is read-modify-written atomically, but
// concurrent runs against the same file can still race between read and
// write -- the format intentionally does not guard against that, matching
// the single-run-at-a-time operating assumption the rest of the pipeline
// makes.
type metricsFile struct {
	Entries []MetricsEntry `json:"entries"`
}

// AppendMetrics reads path (treating a missing file as empty), appends one
// entry summarizing s, and writes the result back atomically.
func (s *PipelineState) AppendMetrics(path string) error {
	var mf metricsFile
	if data, err := os.ReadFile(path); err == nil {
		if jerr := json.Unmarshal(data, &mf); jerr != nil {
			return fmt.Errorf("parsing metrics file %q: %w", path, jerr)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading metrics file %q: %w", path, err)
	}

	snap := s.Snapshot()
	mf.Entries = append(mf.Entries, MetricsEntry{
		Ticket:     snap.Ticket,
		Timestamp:  nowUTC().Format("2006-01-02T15:04:05Z07:00"),
		Tier:       snap.Tier,
		TotalCost:  snap.TotalCost,
		PhaseCount: len(snap.Phases),
		RetryCount: s.RetryCount(),
		Status:     snap.Status,
		LogDir:     snap.LogDir,
	})

	return writeAtomic(path, mf)
}
