// Package progress tracks whether implementation/security-fix phases are
// producing new git commits, so the implementation loop can detect a
// pipeline that has stopped making forward progress.
package progress

import (
	"context"
	"strings"
)

// HeadReader is the minimal git capability Tracker needs.
type HeadReader interface {
	HeadCommit(ctx context.Context) (string, error)
}

// Tracker counts consecutive phase checks that show no new commit.
type Tracker struct {
	git          HeadReader
	tolerance    int
	lastHash     string
	noProgress   int
}

// NewTracker creates a Tracker that tolerates up to `tolerance` consecutive
// no-progress checks before reporting exhaustion.
func NewTracker(git HeadReader, tolerance int) *Tracker {
	if tolerance <= 0 {
		tolerance = 3
	}
	return &Tracker{git: git, tolerance: tolerance}
}

// trackedPrefixes lists the phase-name prefixes Check actually evaluates;
// all other phase names are no-ops that always report progress.
var trackedPrefixes = []string{"implement-", "security-fix-"}

func tracked(phaseName string) bool {
	for _, p := range trackedPrefixes {
		if strings.HasPrefix(phaseName, p) {
			return true
		}
	}
	return false
}

// Check queries the current HEAD and compares it against the last observed
// hash for tracked phase names. It returns true if the pipeline should
// continue (progress observed, or the phase isn't tracked, or the no-progress
// count hasn't reached tolerance yet), and false once tolerance is reached.
func (t *Tracker) Check(ctx context.Context, phaseName string) bool {
	if !tracked(phaseName) {
		return true
	}

	hash, err := t.git.HeadCommit(ctx)
	if err != nil {
		hash = "none"
	}

	if hash == t.lastHash && t.lastHash != "" {
		t.noProgress++
	} else {
		t.noProgress = 0
		t.lastHash = hash
	}

	return t.noProgress < t.tolerance
}

// NoProgressCount returns the current consecutive no-progress count.
func (t *Tracker) NoProgressCount() int { return t.noProgress }
