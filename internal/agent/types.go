package agent

import "time"

// RunOpts specifies the inputs to a single agent invocation, matching the
// agent collaborator contract: (model, max_turns, max_budget, timeout,
// permission_mode, prompt).
type RunOpts struct {
	Prompt         string
	Model          string
	MaxTurns       int
	MaxBudget      float64
	PermissionMode string
	WorkDir        string
	Env            []string
}

// RunResult captures the normalized output of an agent invocation:
// {text, cost_usd, num_turns, session_id}.
type RunResult struct {
	Text      string
	CostUSD   float64
	NumTurns  int
	SessionID string
	Duration  time.Duration

	// Raw holds the unprocessed stdout, kept for diagnostics and for
	// callers that need to re-scan it (e.g. verdict parsing operates on
	// Text, which is the same content but guaranteed to be the agent's
	// final message rather than wrapper JSON).
	Raw string
}
