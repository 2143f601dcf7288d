package implloop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-labs/interrogate/internal/phase"
	"github.com/kairos-labs/interrogate/internal/progress"
	"github.com/kairos-labs/interrogate/internal/state"
)

type fakeRunner struct {
	byPrefix map[string]phase.Result
	calls    []string
}

func (f *fakeRunner) Run(ctx context.Context, cfg phase.Config, killSwitchFile string) (phase.Result, error) {
	f.calls = append(f.calls, cfg.Name)
	for prefix, res := range f.byPrefix {
		if len(cfg.Name) >= len(prefix) && cfg.Name[:len(prefix)] == prefix {
			res.Name = cfg.Name
			return res, nil
		}
	}
	return phase.Result{Name: cfg.Name}, nil
}

type alwaysFreshGit struct{ n int }

func (g *alwaysFreshGit) HeadCommit(ctx context.Context) (string, error) {
	g.n++
	return string(rune('a' + g.n)), nil
}

func newLoop(t *testing.T, runner *fakeRunner, maxRetries int) (*Loop, string) {
	t.Helper()
	logDir := t.TempDir()
	l := &Loop{
		Runner:   runner,
		Progress: progress.NewTracker(&alwaysFreshGit{}, 3),
		State:    state.New("TICKET-1", logDir, 0),
		Cfg: Config{
			MaxRetries: maxRetries,
			LogDir:     logDir,
		},
	}
	return l, logDir
}

func TestLoop_Run_StepPassesFirstTry(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{byPrefix: map[string]phase.Result{
		"verify-step-1": {Verdict: "PASS"},
	}}
	l, _ := newLoop(t, runner, 3)

	err := l.Run(context.Background(), []Step{{ID: "step-1", Title: "Add handler"}})
	require.NoError(t, err)
}

func TestLoop_Run_RetriesThenPasses(t *testing.T) {
	t.Parallel()

	attempt := 0
	runner := &countingRunner{
		onVerify: func(name string) phase.Result {
			attempt++
			if attempt < 2 {
				return phase.Result{Name: name, Verdict: "FAIL", Error: ""}
			}
			return phase.Result{Name: name, Verdict: "PASS"}
		},
	}
	l, _ := newLoop(t, nil, 3)
	l.Runner = runner

	err := l.Run(context.Background(), []Step{{ID: "step-1", Title: "Add handler"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempt, 2)
}

func TestLoop_Run_BlockedAfterExhaustingRetries(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{onVerify: func(name string) phase.Result {
		return phase.Result{Name: name, Verdict: "FAIL"}
	}}
	l, logDir := newLoop(t, nil, 2)
	l.Runner = runner

	err := l.Run(context.Background(), []Step{{ID: "step-1", Title: "Add handler"}})
	require.Error(t, err)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "step-1", blocked.StepID)

	data, err := os.ReadFile(filepath.Join(logDir, "blocked-step-1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "BLOCKED")
}

func TestLoop_Run_NoProgressStopsEarly(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	l := &Loop{
		Runner:   &countingRunner{onVerify: func(name string) phase.Result { return phase.Result{Name: name, Verdict: "FAIL"} }},
		Progress: progress.NewTracker(&stuckGit{}, 1),
		State:    state.New("TICKET-1", logDir, 0),
		Cfg:      Config{MaxRetries: 5, LogDir: logDir},
	}

	err := l.Run(context.Background(), []Step{{ID: "step-1", Title: "Add handler"}})
	require.Error(t, err)
	assert.Equal(t, state.StatusStalledNoProgress, l.State.Snapshot().Status)
}

func TestLoop_ImplementPrompt_SwitchesOnSpecWriterSummary(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	summaryPath := filepath.Join(logDir, "spec-summary.json")
	l := &Loop{Cfg: Config{SpecWriterSummaryPath: summaryPath}}

	redGreenRefactor := l.implementPrompt(Step{ID: "step-1", Title: "x"}, "")
	assert.Contains(t, redGreenRefactor, "RED")

	require.NoError(t, os.WriteFile(summaryPath, []byte("{}"), 0o644))
	greenRefactorOnly := l.implementPrompt(Step{ID: "step-1", Title: "x"}, "")
	assert.Contains(t, greenRefactorOnly, "do not rewrite the specs")
}

type countingRunner struct {
	onVerify func(name string) phase.Result
}

func (r *countingRunner) Run(ctx context.Context, cfg phase.Config, killSwitchFile string) (phase.Result, error) {
	if len(cfg.Name) >= len("verify-") && cfg.Name[:len("verify-")] == "verify-" {
		return r.onVerify(cfg.Name), nil
	}
	return phase.Result{Name: cfg.Name}, nil
}

type stuckGit struct{}

func (stuckGit) HeadCommit(ctx context.Context) (string, error) { return "same", nil }
