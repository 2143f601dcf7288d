// Package state holds the PipelineState aggregate and its atomic,
// write-temp-then-rename persistence to checkpoint, cost-ledger, and
// metrics files.
package state

import (
	"fmt"
	"regexp"
	"sync"
	"time"
)

// Status is the terminal or in-flight status of a pipeline run.
type Status string

const (
	StatusRunning           Status = "running"
	StatusSucceeded         Status = "completed"
	StatusFailed            Status = "failed"
	StatusBlocked           Status = "blocked"
	StatusHumanGate         Status = "needs_human_gate"
	StatusHoldoutFailed     Status = "holdout_failed"
	StatusStalledNoProgress Status = "stalled_no_progress"
)

// PhaseSummary is the per-phase record kept in the checkpoint and cost
// ledger once a phase completes.
type PhaseSummary struct {
	Name      string  `json:"name"`
	CostUSD   float64 `json:"cost_usd"`
	Turns     int     `json:"turns"`
	Verdict   string  `json:"verdict,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
}

// PipelineState is the in-memory aggregate the driver mutates as phases run.
// All mutation goes through its methods, which serialize access with mu so
// the struct can be shared safely between the driver and any reporting code
// (e.g. a progress dashboard) that reads it concurrently.
type PipelineState struct {
	mu sync.Mutex

	Ticket       string         `json:"ticket"`
	Status       Status         `json:"status"`
	CurrentPhase string         `json:"current_phase"`
	TotalCost    float64        `json:"total_cost"`
	MaxCost      float64        `json:"-"`
	LogDir       string         `json:"-"`
	Tier         string         `json:"tier,omitempty"`
	Phases       []PhaseSummary `json:"phases"`
}

// New creates a PipelineState for a fresh run.
func New(ticket, logDir string, maxCost float64) *PipelineState {
	return &PipelineState{
		Ticket:  ticket,
		Status:  StatusRunning,
		LogDir:  logDir,
		MaxCost: maxCost,
		Phases:  []PhaseSummary{},
	}
}

// ErrKillSwitch is returned (wrapped) by phase.Runner.Run when the
// kill-switch file is present.
var ErrKillSwitch = fmt.Errorf("kill switch activated")

// ErrCostCeiling is returned (wrapped) by phase.Runner.Run when total cost
// exceeds the configured ceiling.
var ErrCostCeiling = fmt.Errorf("cost ceiling exceeded")

// SetPhase records the phase about to run. Callers persist a checkpoint
// immediately afterward.
func (s *PipelineState) SetPhase(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentPhase = name
}

// RecordPhase appends a completed phase's summary and accumulates its cost.
func (s *PipelineState) RecordPhase(summary PhaseSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phases = append(s.Phases, summary)
	s.TotalCost += summary.CostUSD
}

// SetStatus updates the run's terminal/in-flight status.
func (s *PipelineState) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

// Snapshot returns a value copy safe to serialize without holding the lock.
func (s *PipelineState) Snapshot() PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	phases := make([]PhaseSummary, len(s.Phases))
	copy(phases, s.Phases)
	return PipelineState{
		Ticket:       s.Ticket,
		Status:       s.Status,
		CurrentPhase: s.CurrentPhase,
		TotalCost:    s.TotalCost,
		MaxCost:      s.MaxCost,
		LogDir:       s.LogDir,
		Tier:         s.Tier,
		Phases:       phases,
	}
}

// retryPhaseRe matches phase names that represent a retry attempt
// (attempt-2 through attempt-9), used for the metrics retry count.
var retryPhaseRe = regexp.MustCompile(`attempt-[2-9]`)

// RetryCount returns how many recorded phases were retry attempts.
func (s *PipelineState) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.Phases {
		if retryPhaseRe.MatchString(p.Name) {
			n++
		}
	}
	return n
}

// StartedPhase returns the name of the first recorded phase, or "unknown".
func (s *PipelineState) StartedPhase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Phases) == 0 {
		return "unknown"
	}
	return s.Phases[0].Name
}

// nowUTC is a seam so callers can pin timestamps in tests without touching
// the clock globally.
var nowUTC = func() time.Time { return time.Now().UTC() }
