// Package driver implements the pipeline driver: it walks the configured
// phase order, applies the tier/gate filter before each phase, routes gate
// verdicts, runs the dual-pass reviewer on "-review" phases, drives the
// implementation loop, and persists a final checkpoint, cost ledger, and
// metrics entry on every exit path.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kairos-labs/interrogate/internal/agent"
	"github.com/kairos-labs/interrogate/internal/config"
	"github.com/kairos-labs/interrogate/internal/dashboard"
	"github.com/kairos-labs/interrogate/internal/git"
	"github.com/kairos-labs/interrogate/internal/implloop"
	"github.com/kairos-labs/interrogate/internal/jsonutil"
	"github.com/kairos-labs/interrogate/internal/phase"
	"github.com/kairos-labs/interrogate/internal/progress"
	"github.com/kairos-labs/interrogate/internal/review"
	"github.com/kairos-labs/interrogate/internal/router"
	"github.com/kairos-labs/interrogate/internal/state"
	"github.com/kairos-labs/interrogate/internal/tier"
	"github.com/kairos-labs/interrogate/internal/verdict"
)

// ExitCode is the process exit code the caller should use.
type ExitCode int

const (
	ExitSuccess        ExitCode = 0
	ExitFailure        ExitCode = 1
	ExitHumanGate      ExitCode = 2
	ExitStepBlocked    ExitCode = 3
	ExitHoldoutFailed  ExitCode = 4
)

// Logger is the minimal logging interface the driver and its collaborators
// need.
type Logger interface {
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// Driver owns one pipeline run end to end.
type Driver struct {
	Config *config.Config
	Agent  agent.Agent
	Git    *git.GitClient
	Log    Logger

	State  *state.PipelineState
	runner *phase.Runner

	resumeAnchor string

	// Events, when set, receives a PhaseEvent after every phase this driver
	// runs, feeding the optional --watch dashboard. Sends are non-blocking:
	// a dashboard that isn't reading a frame never slows the pipeline down.
	Events chan<- dashboard.PhaseEvent

	// TierPrompter, when set, is consulted once when PIPELINE_TIER=auto and
	// no prior phase0 scope estimate exists on disk. Left nil in --watch
	// mode and on --resume, where there's no terminal free to prompt on.
	TierPrompter func() (string, error)
}

// New constructs a Driver for ticket, rooted at logDir. resumeAnchor is the
// phase name to resume from (empty for a fresh run); resumedPhases and
// resumedCost seed the state when resuming.
func New(cfg *config.Config, a agent.Agent, gitClient *git.GitClient, log Logger, ticket, logDir string, resumeAnchor string, resumedCost float64, resumedPhases []state.PhaseSummary) *Driver {
	s := state.New(ticket, logDir, cfg.Float("MAX_PIPELINE_COST", 50))
	s.Phases = append(s.Phases, resumedPhases...)
	s.TotalCost = resumedCost

	d := &Driver{Config: cfg, Agent: a, Git: gitClient, Log: log, State: s, resumeAnchor: resumeAnchor}
	d.runner = phase.NewRunner(a, s, log)
	return d
}

func (d *Driver) emit(phaseName, verdictStr string, cost float64, done bool) {
	if d.Events == nil {
		return
	}
	snap := d.State.Snapshot()
	e := dashboard.PhaseEvent{
		Phase:     phaseName,
		Verdict:   verdictStr,
		CostUSD:   cost,
		TotalCost: snap.TotalCost,
		MaxCost:   snap.MaxCost,
		Tier:      snap.Tier,
		Retry:     d.State.RetryCount(),
		Done:      done,
	}
	select {
	case d.Events <- e:
	default:
	}
}

func (d *Driver) killSwitchFile() string {
	return d.Config.String("KILL_SWITCH_FILE", ".kill-switch")
}

func (d *Driver) timeoutFor(phaseName string) phase.Config {
	key := phase.TimeoutKey(phaseName)
	seconds := d.Config.Int(key, d.Config.Int("DEFAULT_TIMEOUT", 600))
	return phase.Config{Timeout: time.Duration(seconds) * time.Second}
}

// Run executes the default (or configured) phase order for ticket, and
// returns the exit code the caller should terminate with.
func (d *Driver) Run(ctx context.Context, ticket string) ExitCode {
	defer d.finish()

	phaseOrder := d.Config.List("PHASE_ORDER")
	if len(phaseOrder) == 0 {
		phaseOrder = config.DefaultPhaseOrder
	}

	resolvedTier := d.resolveTier()
	d.State.Tier = resolvedTier

	humanGates := d.Config.List("HUMAN_GATES")
	filt := tier.NewFilter(resolvedTier, d.resumeAnchor, completedSet(d.State.Snapshot().Phases), d.Config.String("DOC_TEMPLATES_MODE", "minimal"), humanGates, d.State.Snapshot().LogDir)

	for _, phaseName := range phaseOrder {
		run, err := filt.ShouldRun(phaseName)
		if err != nil {
			d.State.SetStatus(state.StatusHumanGate)
			_ = d.State.SaveCheckpoint()
			d.Log.Info("paused for human gate", "phase", phaseName)
			return ExitHumanGate
		}
		if !run {
			continue
		}

		code, handled := d.runNamedPhase(ctx, ticket, phaseName)
		if handled {
			return code
		}
	}

	d.State.SetStatus(state.StatusSucceeded)
	return ExitSuccess
}

// runNamedPhase dispatches the phases that need bespoke orchestration
// (reviews, the implementation loop, holdout/security gating) and runs
// everything else as a single plain phase invocation. handled is true when
// the driver should stop and return code.
func (d *Driver) runNamedPhase(ctx context.Context, ticket, phaseName string) (code ExitCode, handled bool) {
	switch {
	case strings.HasSuffix(phaseName, "-review"):
		return d.runReviewGate(ctx, phaseName)
	case phaseName == "implement":
		return d.runImplementationLoop(ctx, ticket)
	case phaseName == "holdout-validate":
		return d.runHoldoutValidate(ctx)
	case phaseName == "security-audit":
		return d.runSecurityAudit(ctx)
	case phaseName == "holdout-generate":
		if d.holdoutsExist() {
			return 0, false
		}
		cfg := d.plainPhaseConfig(phaseName)
		result, err := d.runner.Run(ctx, cfg, d.killSwitchFile())
		if err != nil {
			d.State.SetStatus(state.StatusFailed)
			return ExitFailure, true
		}
		d.emit(phaseName, result.Verdict, result.CostUSD, false)
		return 0, false
	default:
		cfg := d.plainPhaseConfig(phaseName)
		result, err := d.runner.Run(ctx, cfg, d.killSwitchFile())
		if err != nil {
			d.State.SetStatus(state.StatusFailed)
			return ExitFailure, true
		}
		d.emit(phaseName, result.Verdict, result.CostUSD, false)
		return 0, false
	}
}

func (d *Driver) plainPhaseConfig(phaseName string) phase.Config {
	key := strings.ToUpper(strings.ReplaceAll(phaseName, "-", "_"))
	cfg := phase.Config{
		Name:      phaseName,
		Prompt:    promptFor(phaseName),
		Model:     d.Config.String("MODEL_"+key, d.Config.String("MODEL_IMPLEMENT", "")),
		MaxTurns:  d.Config.Int("MAX_TURNS_"+key, 25),
		MaxBudget: d.Config.Float("MAX_BUDGET_"+key, 5.0),
	}
	tc := d.timeoutFor(phaseName)
	cfg.Timeout = tc.Timeout
	if p, ok := d.Config.Profiles[phaseName]; ok {
		if p.Model != "" {
			cfg.Model = p.Model
		}
		if p.MaxTurns > 0 {
			cfg.MaxTurns = p.MaxTurns
		}
		if p.MaxBudget > 0 {
			cfg.MaxBudget = p.MaxBudget
		}
		if p.Timeout > 0 {
			cfg.Timeout = p.Timeout
		}
	}
	return cfg
}

// reverseOrderReviewSuffix is appended to pass2's prompt so the two passes
// don't just rerun the same reasoning on a different model: pass2 is told to
// work through the material in reverse section order, the bias check called
// for by the dual-pass protocol.
const reverseOrderReviewSuffix = "\n\nFor this pass, read the material in reverse section order (last section first) before forming your verdict."

func (d *Driver) runReviewGate(ctx context.Context, gate string) (ExitCode, bool) {
	regenTarget, isRegen := router.RegenerationTarget(gate)
	maxIterations := d.Config.Int("MAX_INTERROGATION_ITERATIONS", 2)
	cfg := d.plainPhaseConfig(gate)

	for iteration := 0; ; iteration++ {
		rv := &review.Reviewer{
			Runner:           d.runner,
			Log:              d.Log,
			KillSwitchFile:   d.killSwitchFile(),
			ValidatorCommand: d.Config.String("REVIEW_VALIDATOR_COMMAND", ""),
		}
		v, err := rv.Run(ctx, review.Request{
			Tier:        d.State.Tier,
			Pass1:       cfg,
			Pass2Model:  d.otherModel(cfg.Model),
			Pass2Suffix: reverseOrderReviewSuffix,
		})
		if err != nil {
			d.State.SetStatus(state.StatusFailed)
			return ExitFailure, true
		}

		d.emit(gate, string(v), 0, false)

		action := router.Route(gate, v, 0, 0)
		switch {
		case action.Blocked:
			d.State.SetStatus(state.StatusHumanGate)
			_ = d.State.SaveCheckpoint()
			return ExitHumanGate, true
		case isRegen && action.NextPhase == regenTarget:
			if iteration >= maxIterations {
				d.Log.Warn("regeneration iterations exhausted, escalating", "gate", gate, "iterations", iteration)
				d.State.SetStatus(state.StatusHumanGate)
				_ = d.State.SaveCheckpoint()
				return ExitHumanGate, true
			}
			regenCfg := d.plainPhaseConfig(regenTarget)
			regenCfg.Name = regenTarget + "-v2"
			if _, err := d.runner.Run(ctx, regenCfg, d.killSwitchFile()); err != nil {
				d.State.SetStatus(state.StatusFailed)
				return ExitFailure, true
			}
		default:
			return 0, false
		}
	}
}

func (d *Driver) otherModel(m string) string {
	implementModel := d.Config.String("MODEL_IMPLEMENT", "")
	reviewModel := d.Config.String("MODEL_REVIEW", "")
	if m == reviewModel {
		return implementModel
	}
	return reviewModel
}

func (d *Driver) runImplementationLoop(ctx context.Context, ticket string) (ExitCode, bool) {
	steps, err := d.extractSteps(ctx)
	if err != nil {
		d.State.SetStatus(state.StatusFailed)
		return ExitFailure, true
	}

	tracker := progress.NewTracker(d.Git, d.Config.Int("MAX_NO_PROGRESS", 3))
	loop := &implloop.Loop{
		Runner:   d.runner,
		Progress: tracker,
		State:    d.State,
		Log:      d.Log,
		Cfg: implloop.Config{
			MaxRetries:         d.Config.Int("MAX_VERIFY_RETRIES", 3),
			ImplementModel:     d.Config.String("MODEL_IMPLEMENT", ""),
			VerifyModel:        d.Config.String("MODEL_VERIFY", ""),
			ImplementMaxTurns:  40,
			ImplementMaxBudget: 8.0,
			VerifyMaxTurns:     15,
			VerifyMaxBudget:    3.0,
			Timeout:            d.timeoutFor("implement"),
			LogDir:             d.State.Snapshot().LogDir,
			KillSwitchFile:     d.killSwitchFile(),
		},
	}

	if err := loop.Run(ctx, steps); err != nil {
		if _, ok := err.(*implloop.BlockedError); ok {
			d.State.SetStatus(state.StatusBlocked)
			return ExitStepBlocked, true
		}
		d.State.SetStatus(state.StatusStalledNoProgress)
		return ExitFailure, true
	}
	return 0, false
}

func (d *Driver) extractSteps(ctx context.Context) ([]implloop.Step, error) {
	cfg := phase.Config{
		Name: "extract-steps",
		Prompt: "Read docs/IMPLEMENTATION_PLAN.md and output ONLY a JSON array of step objects: " +
			`[{"id": "step-1", "title": "...", "description": "..."}]. Output valid JSON only, no markdown fences.`,
		Model:     d.Config.String("MODEL_VERIFY", ""),
		MaxTurns:  5,
		MaxBudget: 1.0,
		Timeout:   d.timeoutFor("extract-steps").Timeout,
	}
	result, err := d.runner.Run(ctx, cfg, d.killSwitchFile())
	if err != nil {
		return nil, fmt.Errorf("extracting implementation steps: %w", err)
	}

	var raw []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := jsonutil.ExtractInto(result.Text, &raw); err != nil {
		return nil, fmt.Errorf("parsing implementation steps: %w", err)
	}

	steps := make([]implloop.Step, 0, len(raw))
	for _, r := range raw {
		steps = append(steps, implloop.Step{ID: r.ID, Title: r.Title, Description: r.Description})
	}
	return steps, nil
}

func (d *Driver) holdoutsExist() bool {
	holdoutsDir := d.Config.String("HOLDOUTS_DIR", "holdouts")
	matches, _ := doublestar.FilepathGlob(filepath.Join(holdoutsDir, "holdout-001-*.md"))
	return len(matches) > 0
}

func (d *Driver) runHoldoutValidate(ctx context.Context) (ExitCode, bool) {
	holdoutsDir := d.Config.String("HOLDOUTS_DIR", "holdouts")
	matches, _ := doublestar.FilepathGlob(filepath.Join(holdoutsDir, "holdout-*.md"))
	if len(matches) == 0 {
		return 0, false
	}

	cfg := d.plainPhaseConfig("holdout-validate")
	result, err := d.runner.Run(ctx, cfg, d.killSwitchFile())
	if err != nil {
		d.State.SetStatus(state.StatusFailed)
		return ExitFailure, true
	}

	action := router.Route(router.GateHoldoutValidate, verdict.Verdict(result.Verdict), 0, 0)
	if action.NextPhase == "implement" {
		d.State.SetStatus(state.StatusHoldoutFailed)
		return ExitHoldoutFailed, true
	}
	return 0, false
}

func (d *Driver) runSecurityAudit(ctx context.Context) (ExitCode, bool) {
	cfg := d.plainPhaseConfig("security-audit")
	result, err := d.runner.Run(ctx, cfg, d.killSwitchFile())
	if err != nil {
		d.State.SetStatus(state.StatusFailed)
		return ExitFailure, true
	}

	action := router.Route(router.GateSecurityAudit, verdict.Verdict(result.Verdict), 0, 0)
	if action.NextPhase == "implement" {
		d.Log.Warn("security blockers found, attempting auto-fix")
		fixCfg := phase.Config{
			Name: "security-fix",
			Prompt: fmt.Sprintf(
				"Read %s/security-audit.json. Fix all BLOCKER-severity issues. "+
					"Do not change functionality. Commit with message 'fix(security): address audit findings'",
				d.State.Snapshot().LogDir,
			),
			Model:     d.Config.String("MODEL_IMPLEMENT", ""),
			MaxTurns:  40,
			MaxBudget: 8.0,
			Timeout:   d.timeoutFor("security-fix").Timeout,
		}
		if _, err := d.runner.Run(ctx, fixCfg, d.killSwitchFile()); err != nil {
			d.State.SetStatus(state.StatusFailed)
			return ExitFailure, true
		}
	}
	return 0, false
}

func (d *Driver) resolveTier() string {
	configured := d.Config.String("PIPELINE_TIER", "auto")
	var phase0Text string
	if data, err := os.ReadFile(filepath.Join(d.State.Snapshot().LogDir, "phase0.json")); err == nil {
		phase0Text = string(data)
	}
	if configured == "auto" && phase0Text == "" && d.TierPrompter != nil {
		if t, err := d.TierPrompter(); err == nil && t != "" {
			return t
		}
	}
	return tier.ResolveTier(configured, phase0Text)
}

func completedSet(phases []state.PhaseSummary) map[string]bool {
	m := make(map[string]bool, len(phases))
	for _, p := range phases {
		m[p.Name] = true
	}
	return m
}

// finish persists the final checkpoint, cost ledger, and metrics entry, and
// logs a one-shot cost report. Deferred from Run so every exit path
// (success, error, human gate) goes through it.
func (d *Driver) finish() {
	_ = d.State.SaveCheckpoint()
	_ = d.State.SaveCosts()

	metricsFile := d.Config.String("METRICS_FILE", filepath.Join("logs", "metrics.jsonl"))
	_ = d.State.AppendMetrics(metricsFile)

	snap := d.State.Snapshot()
	d.Log.Info("pipeline finished", "status", snap.Status, "total_cost", snap.TotalCost, "log_dir", snap.LogDir)
	for _, p := range snap.Phases {
		d.Log.Info("phase cost", "phase", p.Name, "cost_usd", p.CostUSD, "turns", p.Turns)
	}
	d.emit(string(snap.Status), "", 0, true)
}
