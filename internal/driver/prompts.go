package driver

// promptFor returns the default prompt for phases the driver runs as a
// single plain invocation (no bespoke orchestration). Phases with their own
// orchestration (reviews, implement, holdout-validate, security-audit)
// build their own prompts elsewhere.
func promptFor(phaseName string) string {
	switch phaseName {
	case "phase0":
		return "Run the context scan: examine repository state, identify project type, " +
			"outstanding TODOs, test status, and blockers. Write a phase0-summary.md under the summaries " +
			"directory. Include a line 'SCOPE: <1-5>' estimating the change's scope. Output must be under 20 lines."
	case "interrogate":
		return "Run the full interrogation protocol against the ticket: search the codebase for relevant " +
			"context, assume with [ASSUMPTION] tags where necessary, and write a transcript plus a summary " +
			"of open questions and decisions to the summaries directory."
	case "generate-docs":
		return "Generate the applicable project documents from the configured templates, using the " +
			"interrogation summary as the source of requirements. Write each document, then write a " +
			"documentation-summary.md."
	case "write-specs":
		return "Write failing specs (RED) for every implementation step in the plan, before any " +
			"implementation work begins. Do not implement functionality yet."
	case "holdout-generate":
		return "Acting in complete isolation from the implementation, generate 8-12 adversarial test " +
			"scenarios derived only from the requirements documents. Write each scenario to its own file " +
			"in the holdouts directory."
	case "ship":
		return "Run final pre-flight checks: the full test suite, confirm all implementation steps are " +
			"committed, and confirm there are no uncommitted changes. If everything passes, push the " +
			"branch and open a pull request summarizing the change. Output the pull request URL as the last line."
	default:
		return "Execute the " + phaseName + " phase of the pipeline."
	}
}
