// Package review implements the dual-pass reviewer: for thorough tiers, it
// runs a review phase twice (cross-model, reversed section order) plus an
// optional external validator, and reconciles their verdicts by strictness.
package review

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/kairos-labs/interrogate/internal/phase"
	"github.com/kairos-labs/interrogate/internal/tier"
	"github.com/kairos-labs/interrogate/internal/verdict"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Logger is the minimal logging interface Reviewer needs.
type Logger interface {
	Warn(msg string, keyvals ...interface{})
}

// PhaseRunner runs a single phase. *phase.Runner satisfies this.
type PhaseRunner interface {
	Run(ctx context.Context, cfg phase.Config, killSwitchFile string) (phase.Result, error)
}

// Reviewer runs the dual-pass review protocol.
type Reviewer struct {
	Runner         PhaseRunner
	Log            Logger
	KillSwitchFile string

	// ValidatorCommand, if non-empty, is a shell command that reads review
	// output on stdin and prints a VERDICT: line to stdout.
	ValidatorCommand string
	ValidatorTimeout time.Duration
}

// Request describes one review invocation.
type Request struct {
	Tier string

	// Pass1 is the phase config for the primary review pass.
	Pass1 phase.Config

	// Pass2Model is the model pass2 should use instead of Pass1.Model
	// (cross-model independence): the other member of {review, implement}.
	Pass2Model string

	// Pass2Suffix, when non-empty, is appended to Pass1.Prompt for pass2,
	// instructing the agent to read material in reverse section order.
	Pass2Suffix string

	// Pass2Name overrides the phase name pass2 is recorded under (defaults
	// to Pass1.Name + "-pass2").
	Pass2Name string
}

// Run executes the review protocol for req and returns the reconciled
// verdict. On tiers "standard" or "quick" it degenerates to a single pass1
// invocation.
func (r *Reviewer) Run(ctx context.Context, req Request) (verdict.Verdict, error) {
	pass1Result, err := r.Runner.Run(ctx, req.Pass1, r.KillSwitchFile)
	if err != nil && pass1Result.Text == "" {
		return verdict.Unknown, fmt.Errorf("review pass1 %q: %w", req.Pass1.Name, err)
	}
	pass1Verdict := verdict.Verdict(pass1Result.Verdict)

	if req.Tier == tier.Standard || req.Tier == tier.Quick {
		return pass1Verdict, nil
	}

	pass2Cfg := req.Pass1
	pass2Cfg.Name = req.Pass2Name
	if pass2Cfg.Name == "" {
		pass2Cfg.Name = req.Pass1.Name + "-pass2"
	}
	pass2Cfg.Model = req.Pass2Model
	pass2Cfg.Prompt = req.Pass1.Prompt + req.Pass2Suffix

	// The core never launches two agents concurrently; a weighted
	// semaphore of 1 enforces that even though pass2 and the validator are
	// expressed as independent goroutines here.
	sem := semaphore.NewWeighted(1)
	g, gctx := errgroup.WithContext(ctx)

	var pass2Result phase.Result
	var pass2Err error
	g.Go(func() error {
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		defer sem.Release(1)
		pass2Result, pass2Err = r.Runner.Run(gctx, pass2Cfg, r.KillSwitchFile)
		return nil
	})

	var externalVerdict verdict.Verdict
	haveExternal := false
	if r.ValidatorCommand != "" {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			v, ok := r.runValidator(gctx, pass1Result.Text)
			if ok {
				externalVerdict = v
				haveExternal = true
			}
			return nil
		})
	}

	_ = g.Wait()

	if pass2Err != nil && pass2Result.Text == "" {
		return pass1Verdict, nil
	}
	pass2Verdict := verdict.Verdict(pass2Result.Verdict)

	if pass1Verdict != pass2Verdict && r.Log != nil {
		r.Log.Warn("review passes disagree", "pass1", pass1Verdict, "pass2", pass2Verdict)
	}
	final := verdict.Stricter(pass1Verdict, pass2Verdict)

	if haveExternal {
		if externalVerdict != final && r.Log != nil {
			r.Log.Warn("external validator disagrees", "internal", final, "external", externalVerdict)
		}
		final = verdict.Stricter(final, externalVerdict)
	}

	return final, nil
}

// runValidator pipes text to the configured validator command and parses a
// verdict from its stdout. Failures and timeouts are swallowed -- the
// caller treats a false return as "no external opinion".
func (r *Reviewer) runValidator(ctx context.Context, text string) (verdict.Verdict, bool) {
	timeout := r.ValidatorTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(vctx, "sh", "-c", r.ValidatorCommand)
	cmd.Stdin = bytes.NewBufferString(text)
	out, err := cmd.Output()
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("external validator failed", "err", err)
		}
		return verdict.Unknown, false
	}
	return verdict.ParseVerdict(string(out)), true
}
