// Package implloop runs the per-step implement/verify retry loop: each step
// is implemented and verified up to MAX_VERIFY_RETRIES times, with
// accumulated error context, stagnation-aware retry hints, and progress
// tracking that can terminate the pipeline on sustained no-progress.
package implloop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kairos-labs/interrogate/internal/phase"
	"github.com/kairos-labs/interrogate/internal/progress"
	"github.com/kairos-labs/interrogate/internal/stagnation"
	"github.com/kairos-labs/interrogate/internal/state"
	"github.com/kairos-labs/interrogate/internal/verdict"
)

// Step is one unit of implementation work extracted from the plan.
type Step struct {
	ID          string
	Title       string
	Description string
}

// PhaseRunner runs a single phase.
type PhaseRunner interface {
	Run(ctx context.Context, cfg phase.Config, killSwitchFile string) (phase.Result, error)
}

// Logger is the minimal logging interface Loop needs.
type Logger interface {
	Warn(msg string, keyvals ...interface{})
}

// Config configures step implementation.
type Config struct {
	MaxRetries         int
	ImplementModel     string
	VerifyModel        string
	ImplementMaxTurns  int
	ImplementMaxBudget float64
	VerifyMaxTurns     int
	VerifyMaxBudget    float64
	Timeout            phase.Config // used only for its Timeout field as a default
	LogDir             string
	KillSwitchFile     string

	// SpecWriterSummaryPath, if it exists on disk, switches the implement
	// prompt to GREEN+REFACTOR only (specs are pre-written).
	SpecWriterSummaryPath string
}

// BlockedError is returned when a step fails verification on every retry.
type BlockedError struct {
	StepID string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("step %s blocked after exhausting retries", e.StepID)
}

// Loop drives the implement/verify retry loop for a sequence of steps.
type Loop struct {
	Runner   PhaseRunner
	Progress *progress.Tracker
	State    *state.PipelineState
	Log      Logger
	Cfg      Config
}

// Run implements and verifies every step in order, stopping at the first
// step that cannot be verified (or whose progress tracker reports
// exhaustion). Returns a *BlockedError or a progress-exhaustion error on
// failure.
func (l *Loop) Run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		ok, err := l.runStep(ctx, step)
		if err != nil {
			return err
		}
		if !ok {
			return &BlockedError{StepID: step.ID}
		}
	}
	return nil
}

func (l *Loop) runStep(ctx context.Context, step Step) (bool, error) {
	detector := stagnation.New(l.Cfg.LogDir, 0.90)
	base := "verify-" + step.ID

	for attempt := 1; attempt <= l.Cfg.MaxRetries; attempt++ {
		errorContext := l.buildErrorContext(step, attempt, detector, base)

		implPrompt := l.implementPrompt(step, errorContext)
		implCfg := phase.Config{
			Name:      fmt.Sprintf("implement-%s-attempt-%d", step.ID, attempt),
			Prompt:    implPrompt,
			Model:     l.Cfg.ImplementModel,
			MaxTurns:  l.Cfg.ImplementMaxTurns,
			MaxBudget: l.Cfg.ImplementMaxBudget,
			Timeout:   l.Cfg.Timeout.Timeout,
		}
		if _, err := l.Runner.Run(ctx, implCfg, l.Cfg.KillSwitchFile); err != nil {
			// Implementation phase errors don't immediately block the step;
			// verification below will fail and drive the retry/blocked path.
			if l.Log != nil {
				l.Log.Warn("implement phase reported an error", "step", step.ID, "attempt", attempt, "err", err)
			}
		}

		if !l.Progress.Check(ctx, implCfg.Name) {
			l.State.SetStatus(state.StatusStalledNoProgress)
			_ = l.State.SaveCheckpoint()
			return false, fmt.Errorf("no git progress for step %s after %d attempts", step.ID, l.Progress.NoProgressCount())
		}

		fastMode := attempt < l.Cfg.MaxRetries
		verifyCfg := phase.Config{
			Name:      fmt.Sprintf("%s-attempt-%d", base, attempt),
			Prompt:    l.verifyPrompt(step, fastMode),
			Model:     l.Cfg.VerifyModel,
			MaxTurns:  l.Cfg.VerifyMaxTurns,
			MaxBudget: l.Cfg.VerifyMaxBudget,
			Timeout:   l.Cfg.Timeout.Timeout,
		}
		verifyResult, err := l.Runner.Run(ctx, verifyCfg, l.Cfg.KillSwitchFile)
		v := verdict.Verdict(verifyResult.Verdict)
		if err != nil {
			v = verdict.Fail
		}

		if verdict.IsPass(v) {
			return true, nil
		}

		if attempt == l.Cfg.MaxRetries {
			l.State.SetStatus(state.StatusBlocked)
			_ = l.State.SaveCheckpoint()
			_ = os.WriteFile(
				filepath.Join(l.Cfg.LogDir, fmt.Sprintf("blocked-%s.txt", step.ID)),
				[]byte(fmt.Sprintf("BLOCKED: step %s failed %d verification attempts.\nSee verify logs for details.\n", step.ID, l.Cfg.MaxRetries)),
				0o644,
			)
			return false, nil
		}
	}
	return false, nil
}

// buildErrorContext reads the previous verify attempt's saved output,
// truncates it to 50 lines, and prepends a retry banner; a stagnation
// warning is appended when the detector signals no progress between
// attempts.
func (l *Loop) buildErrorContext(step Step, attempt int, detector *stagnation.Detector, base string) string {
	if attempt <= 1 {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(l.Cfg.LogDir, fmt.Sprintf("%s-attempt-%d.json", base, attempt-1)))
	prevError := ""
	if err == nil {
		prevError = truncateLines(string(data), 50)
	}
	banner := fmt.Sprintf("RETRY ATTEMPT %d/%d. Previous error:\n%s", attempt, l.Cfg.MaxRetries, prevError)
	if detector.IsStagnant(base, attempt-1) {
		banner += "\n\nPrevious attempts show no meaningful progress; try a fundamentally different approach."
	}
	return banner
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func (l *Loop) implementPrompt(step Step, errorContext string) string {
	mode := "Write failing specs first (RED), then make them pass (GREEN), then REFACTOR."
	if l.Cfg.SpecWriterSummaryPath != "" {
		if _, err := os.Stat(l.Cfg.SpecWriterSummaryPath); err == nil {
			mode = "Specs are already written and failing. Implement against them (GREEN) then REFACTOR only -- do not rewrite the specs."
		}
	}
	return fmt.Sprintf(
		"You are implementing step %s: %s\n\nDescription: %s\n\n%s\n\n%s\nFollow existing codebase patterns. Type everything. Handle all errors. Commit your changes with message: 'feat(%s): %s'",
		step.ID, step.Title, step.Description, errorContext, mode, step.ID, step.Title,
	)
}

func (l *Loop) verifyPrompt(step Step, fastMode bool) string {
	testInstruction := "Run the project's fast test command."
	if !fastMode {
		testInstruction = "Run the FULL test suite (not sampled)."
	}
	return fmt.Sprintf(
		"You are a VERIFICATION agent. Verify that step %s (%s) was implemented correctly.\n\n"+
			"Run all relevant checks in order (stop on first failure):\n"+
			"1. Type checking\n2. Linting\n3. Tests: %s\n4. Build\n\n"+
			"If ALL pass: output VERDICT: PASS\nIf ANY fail: output VERDICT: FAIL with the specific error (first 50 lines only)\n\n"+
			"Always include VERDICT: [PASS|FAIL] as the last line.",
		step.ID, step.Title, testInstruction,
	)
}
