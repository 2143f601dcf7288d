// Package router implements the deterministic (gate, verdict) -> action
// lookup that decides how the pipeline driver advances between phases.
package router

import "github.com/kairos-labs/interrogate/internal/verdict"

// Action is the result of routing a gate's verdict.
type Action struct {
	// NextPhase names the phase to run next. Empty when Blocked or
	// NextStepOrHoldout is set instead.
	NextPhase string

	// Blocked is true when the route terminates the pipeline for human
	// escalation (BLOCKED sentinel).
	Blocked bool

	// NextStepOrHoldout is true only for the verify gate's passing route:
	// the caller (the Implementation Loop) interprets this by moving on to
	// the next step, or to holdout validation if this was the last step.
	NextStepOrHoldout bool

	// Retry is true when the caller should re-run the same phase (used by
	// the verify gate's retry-budget route).
	Retry bool
}

// Gate names recognised by the routing table.
const (
	GateInterrogationReview = "interrogation-review"
	GateDocReview           = "doc-review"
	GateHoldoutValidate     = "holdout-validate"
	GateSecurityAudit       = "security-audit"
	GateVerify              = "verify"
)

// regenerationTarget maps each review-style gate to the phase it loops back
// to on ITERATE.
var regenerationTarget = map[string]string{
	GateInterrogationReview: "interrogate",
	GateDocReview:           "generate-docs",
}

// failTarget maps each validate-style gate to the phase it loops back to on
// FAIL.
var failTarget = map[string]string{
	GateHoldoutValidate: "implement",
	GateSecurityAudit:   "implement",
}

// Route resolves the action for a (gate, verdict) pair. verifyRetries is the
// number of verify attempts already made for the current step; maxRetries is
// MAX_VERIFY_RETRIES. Both are ignored for gates other than "verify".
//
// Any gate/verdict combination not explicitly handled below returns
// Action{Blocked: true}, matching the "unmatched keys yield BLOCKED" rule.
func Route(gate string, v verdict.Verdict, verifyRetries, maxRetries int) Action {
	switch gate {
	case GateInterrogationReview, GateDocReview:
		switch v {
		case verdict.AutoPass, verdict.Pass, verdict.PassWithNotes:
			return Action{NextPhase: advancePhaseFor(gate)}
		case verdict.Iterate:
			return Action{NextPhase: regenerationTarget[gate]}
		default:
			return Action{Blocked: true}
		}

	case GateHoldoutValidate, GateSecurityAudit:
		switch v {
		case verdict.AutoPass, verdict.Pass, verdict.PassWithNotes:
			return Action{NextPhase: advancePhaseFor(gate)}
		case verdict.Fail:
			return Action{NextPhase: failTarget[gate]}
		default:
			return Action{Blocked: true}
		}

	case GateVerify:
		if verdict.IsPass(v) || v == verdict.AutoPass {
			return Action{NextStepOrHoldout: true}
		}
		if verifyRetries >= maxRetries {
			return Action{Blocked: true}
		}
		return Action{Retry: true, NextPhase: "implement"}

	default:
		return Action{Blocked: true}
	}
}

// advancePhaseFor names the phase that follows a gate once its verdict
// clears for advancement. The driver also consults config's PHASE_ORDER
// directly; this lookup only supplies the gate's own "next" default when the
// driver asks the router generically (e.g. from tests) rather than walking
// the phase order itself.
var advanceDefault = map[string]string{
	GateInterrogationReview: "generate-docs",
	GateDocReview:           "write-specs",
	GateHoldoutValidate:     "security-audit",
	GateSecurityAudit:       "ship",
}

func advancePhaseFor(gate string) string {
	return advanceDefault[gate]
}

// RegenerationTarget reports the phase gate loops back to on ITERATE, and
// whether gate is a review-style gate at all. Callers that need to tell an
// ITERATE regeneration route apart from a plain advance route (the router's
// Action alone doesn't carry that distinction) compare against this instead
// of re-deriving a phase name from the gate string.
func RegenerationTarget(gate string) (string, bool) {
	target, ok := regenerationTarget[gate]
	return target, ok
}
