// Package phase runs a single pipeline phase: it invokes an agent under a
// wall-clock timeout, parses the result, and persists the phase's output
// plus the pipeline's checkpoint and cost ledger.
package phase

import "time"

// Config describes one phase invocation.
type Config struct {
	Name      string
	Prompt    string
	Model     string
	MaxTurns  int
	MaxBudget float64
	Timeout   time.Duration
}

// Result is the outcome of running a phase.
type Result struct {
	Name        string  `json:"name"`
	CostUSD     float64 `json:"cost_usd"`
	Turns       int     `json:"num_turns"`
	Verdict     string  `json:"verdict,omitempty"`
	Satisfaction float64 `json:"satisfaction_score,omitempty"`
	SessionID   string  `json:"session_id,omitempty"`
	Text        string  `json:"-"`
	Error       string  `json:"error,omitempty"`
}

// Failed reports whether the phase ended in error (timeout or otherwise).
func (r Result) Failed() bool { return r.Error != "" }
