package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-labs/interrogate/internal/agent"
	"github.com/kairos-labs/interrogate/internal/config"
	"github.com/kairos-labs/interrogate/internal/dashboard"
	"github.com/kairos-labs/interrogate/internal/state"
)

type fakeLogger struct{}

func (fakeLogger) Info(msg string, keyvals ...interface{})  {}
func (fakeLogger) Warn(msg string, keyvals ...interface{})  {}
func (fakeLogger) Error(msg string, keyvals ...interface{}) {}

type scriptedAgent struct {
	defaultVerdict string

	// sequence, when set, overrides defaultVerdict call by call: the first
	// Run gets sequence[0], the second sequence[1], and so on; once
	// exhausted, Run falls back to defaultVerdict.
	sequence []string
	calls    int
}

func (a *scriptedAgent) Name() string { return "scripted" }

func (a *scriptedAgent) Run(ctx context.Context, opts agent.RunOpts) (*agent.RunResult, error) {
	v := a.defaultVerdict
	if a.calls < len(a.sequence) {
		v = a.sequence[a.calls]
	}
	a.calls++
	return &agent.RunResult{Text: "VERDICT: " + v, CostUSD: 0.1, NumTurns: 1, SessionID: "s"}, nil
}

func (a *scriptedAgent) CheckPrerequisites() error { return nil }

func baseConfig(t *testing.T, overrides map[string]string) *config.Config {
	t.Helper()
	cfg := config.New(map[string]string{
		"PIPELINE_TIER": "quick",
		"PHASE_ORDER":   "phase0,ship",
	})
	for k, v := range overrides {
		cfg.Set(k, v)
	}
	return cfg
}

func TestDriver_Run_SuccessWithPlainPhases(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, nil)
	a := &scriptedAgent{defaultVerdict: "PASS"}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)

	code := d.Run(context.Background(), "TICKET-1")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, state.StatusSucceeded, d.State.Snapshot().Status)
}

func TestDriver_Run_ReviewGateBlocksOnFailVerdict(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, map[string]string{"PHASE_ORDER": "phase0,doc-review,ship"})
	a := &scriptedAgent{defaultVerdict: "FAIL"}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)

	code := d.Run(context.Background(), "TICKET-1")
	assert.Equal(t, ExitHumanGate, code)
	assert.Equal(t, state.StatusHumanGate, d.State.Snapshot().Status)
}

func TestDriver_Run_ReviewGateRegeneratesOnIterateThenPasses(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, map[string]string{"PHASE_ORDER": "phase0,doc-review,ship"})
	a := &scriptedAgent{defaultVerdict: "PASS", sequence: []string{"PASS", "ITERATE", "PASS", "PASS", "PASS"}}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)

	code := d.Run(context.Background(), "TICKET-1")
	require.Equal(t, ExitSuccess, code)

	var sawRegen bool
	for _, p := range d.State.Snapshot().Phases {
		if p.Name == "generate-docs-v2" {
			sawRegen = true
		}
	}
	assert.True(t, sawRegen, "an ITERATE verdict should trigger a generate-docs-v2 regeneration phase")
}

func TestDriver_Run_ReviewGateEscalatesAfterExhaustingRegenerationIterations(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, map[string]string{
		"PHASE_ORDER":                  "phase0,doc-review,ship",
		"MAX_INTERROGATION_ITERATIONS": "1",
	})
	a := &scriptedAgent{defaultVerdict: "PASS", sequence: []string{"PASS", "ITERATE", "PASS", "ITERATE"}}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)

	code := d.Run(context.Background(), "TICKET-1")
	assert.Equal(t, ExitHumanGate, code)
	assert.Equal(t, state.StatusHumanGate, d.State.Snapshot().Status)
}

func TestDriver_Run_HumanGatePendingPausesPipeline(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, map[string]string{
		"PIPELINE_TIER": "full",
		"PHASE_ORDER":   "phase0,security-audit,ship",
		"HUMAN_GATES":   "security-audit",
	})
	a := &scriptedAgent{defaultVerdict: "PASS"}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)

	code := d.Run(context.Background(), "TICKET-1")
	assert.Equal(t, ExitHumanGate, code)
}

func TestDriver_Run_EmitsDashboardEvents(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, nil)
	a := &scriptedAgent{defaultVerdict: "PASS"}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)

	events := make(chan dashboard.PhaseEvent, 10)
	d.Events = events

	code := d.Run(context.Background(), "TICKET-1")
	require.Equal(t, ExitSuccess, code)

	close(events)
	var seenDone bool
	var names []string
	for e := range events {
		names = append(names, e.Phase)
		if e.Done {
			seenDone = true
		}
	}
	assert.True(t, seenDone)
	assert.Contains(t, names, "phase0")
}

func TestDriver_Run_ResumeAnchorSkipsCompletedPrefix(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, map[string]string{"PHASE_ORDER": "phase0,interrogate,ship"})
	a := &scriptedAgent{defaultVerdict: "PASS"}
	resumed := []state.PhaseSummary{{Name: "phase0", CostUSD: 0.2}}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "phase0", 0.2, resumed)

	code := d.Run(context.Background(), "TICKET-1")
	assert.Equal(t, ExitSuccess, code)
	snap := d.State.Snapshot()
	phase0Records := 0
	for _, p := range snap.Phases {
		if p.Name == "phase0" {
			phase0Records++
		}
	}
	assert.Equal(t, 1, phase0Records, "the anchor phase should not re-run; only its resumed record remains")
	assert.Greater(t, snap.TotalCost, 0.2)
}

func TestDriver_ResolveTier_UsesTierPrompterWhenAutoAndNoPhase0(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	cfg := baseConfig(t, map[string]string{"PIPELINE_TIER": "auto"})
	a := &scriptedAgent{defaultVerdict: "PASS"}
	d := New(cfg, a, nil, fakeLogger{}, "TICKET-1", logDir, "", 0, nil)
	d.TierPrompter = func() (string, error) { return "nano", nil }

	assert.Equal(t, "nano", d.resolveTier())
}
