package phase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kairos-labs/interrogate/internal/agent"
	"github.com/kairos-labs/interrogate/internal/state"
	"github.com/kairos-labs/interrogate/internal/verdict"
)

// Logger is the minimal logging interface Runner needs.
type Logger interface {
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Runner executes phases against an agent and persists their results.
type Runner struct {
	Agent      agent.Agent
	State      *state.PipelineState
	Log        Logger
	MetricsDir string
}

// NewRunner constructs a Runner bound to one agent and the shared pipeline
// state.
func NewRunner(a agent.Agent, s *state.PipelineState, log Logger) *Runner {
	return &Runner{Agent: a, State: s, Log: log}
}

// Run executes cfg, honoring the kill-switch and cost-ceiling preconditions,
// persisting the phase's output plus an updated checkpoint and cost ledger,
// and returning the parsed Result. A non-nil error means the phase failed
// (timeout, agent error, or a precondition violation) -- the Result is still
// returned (and already persisted) so the caller can inspect it.
func (r *Runner) Run(ctx context.Context, cfg Config, killSwitchFile string) (Result, error) {
	if _, err := os.Stat(killSwitchFile); err == nil {
		r.State.SetStatus(state.StatusFailed)
		_ = r.State.SaveCheckpoint()
		return Result{Name: cfg.Name}, fmt.Errorf("%w: %s", state.ErrKillSwitch, killSwitchFile)
	}

	snap := r.State.Snapshot()
	if snap.MaxCost > 0 && snap.TotalCost > snap.MaxCost {
		r.State.SetStatus(state.StatusFailed)
		_ = r.State.SaveCheckpoint()
		return Result{Name: cfg.Name}, fmt.Errorf("%w: $%.2f > $%.2f", state.ErrCostCeiling, snap.TotalCost, snap.MaxCost)
	}

	r.State.SetPhase(cfg.Name)
	if err := r.State.SaveCheckpoint(); err != nil {
		return Result{Name: cfg.Name}, fmt.Errorf("checkpointing before phase %q: %w", cfg.Name, err)
	}

	if r.Log != nil {
		r.Log.Info("running phase", "phase", cfg.Name, "model", cfg.Model, "max_turns", cfg.MaxTurns, "budget", cfg.MaxBudget)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := Result{Name: cfg.Name}

	runResult, runErr := r.Agent.Run(runCtx, agent.RunOpts{
		Prompt:    cfg.Prompt,
		Model:     cfg.Model,
		MaxTurns:  cfg.MaxTurns,
		MaxBudget: cfg.MaxBudget,
	})
	switch {
	case runErr != nil && runCtx.Err() == context.DeadlineExceeded:
		result.Error = fmt.Sprintf("timeout after %s", timeout)
	case runErr != nil:
		result.Error = runErr.Error()
	default:
		result.CostUSD = runResult.CostUSD
		result.Turns = runResult.NumTurns
		result.SessionID = runResult.SessionID
		result.Text = runResult.Text
		result.Verdict = string(verdict.ParseVerdict(runResult.Text))
		result.Satisfaction = verdict.ParseSatisfaction(runResult.Text)
	}

	if err := r.writeOutput(cfg.Name, result); err != nil {
		return result, fmt.Errorf("writing phase output %q: %w", cfg.Name, err)
	}

	r.State.RecordPhase(state.PhaseSummary{
		Name:      cfg.Name,
		CostUSD:   result.CostUSD,
		Turns:     result.Turns,
		Verdict:   result.Verdict,
		SessionID: result.SessionID,
	})
	if err := r.State.SaveCheckpoint(); err != nil {
		return result, fmt.Errorf("checkpointing after phase %q: %w", cfg.Name, err)
	}
	if err := r.State.SaveCosts(); err != nil {
		return result, fmt.Errorf("saving cost ledger after phase %q: %w", cfg.Name, err)
	}

	if r.Log != nil {
		r.Log.Info("phase result", "phase", cfg.Name, "verdict", result.Verdict, "cost_usd", result.CostUSD, "turns", result.Turns)
	}

	if result.Failed() {
		return result, fmt.Errorf("phase %q failed: %s", cfg.Name, result.Error)
	}
	return result, nil
}

// outputFile is the on-disk shape of <log_dir>/<phase>.json.
type outputFile struct {
	Result       string  `json:"result"`
	CostUSD      float64 `json:"cost_usd"`
	Turns        int     `json:"num_turns"`
	Verdict      string  `json:"verdict,omitempty"`
	Satisfaction float64 `json:"satisfaction_score,omitempty"`
	SessionID    string  `json:"session_id,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func (r *Runner) writeOutput(name string, res Result) error {
	text := res.Text
	if res.Error != "" {
		text = res.Error
	}
	out := outputFile{
		Result:       text,
		CostUSD:      res.CostUSD,
		Turns:        res.Turns,
		Verdict:      res.Verdict,
		Satisfaction: res.Satisfaction,
		SessionID:    res.SessionID,
		Error:        res.Error,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling phase output: %w", err)
	}
	snap := r.State.Snapshot()
	path := filepath.Join(snap.LogDir, name+".json")
	if err := os.MkdirAll(snap.LogDir, 0o755); err != nil {
		return fmt.Errorf("creating log dir %q: %w", snap.LogDir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}
