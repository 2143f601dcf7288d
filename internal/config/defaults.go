package config

// Default phase names, shared by router, tier, and driver packages so that
// no package needs to hardcode the default phase order independently.
const (
	PhasePhase0             = "phase0"
	PhaseInterrogate        = "interrogate"
	PhaseInterrogationReview = "interrogation-review"
	PhaseGenerateDocs       = "generate-docs"
	PhaseDocReview          = "doc-review"
	PhaseWriteSpecs         = "write-specs"
	PhaseHoldoutGenerate    = "holdout-generate"
	PhaseExtractSteps       = "extract-steps"
	PhaseImplement          = "implement"
	PhaseHoldoutValidate    = "holdout-validate"
	PhaseSecurityAudit      = "security-audit"
	PhaseShip               = "ship"
)

// DefaultPhaseOrder is the pipeline's default PHASE_ORDER.
var DefaultPhaseOrder = []string{
	PhasePhase0,
	PhaseInterrogate,
	PhaseInterrogationReview,
	PhaseGenerateDocs,
	PhaseDocReview,
	PhaseWriteSpecs,
	PhaseHoldoutGenerate,
	PhaseImplement,
	PhaseHoldoutValidate,
	PhaseSecurityAudit,
	PhaseShip,
}

// NewDefaults returns a Config populated with the pipeline's default values,
// used as the base layer before the config file and environment are merged
// in (see Resolve).
func NewDefaults() *Config {
	return New(map[string]string{
		"DEFAULT_TIMEOUT":                  "600",
		"MAX_PIPELINE_COST":                "50",
		"MAX_VERIFY_RETRIES":               "3",
		"MAX_INTERROGATION_ITERATIONS":     "2",
		"MAX_NO_PROGRESS":                  "3",
		"STAGNATION_SIMILARITY_THRESHOLD":  "90",
		"THRESHOLD_AUTO_PASS":              "90",
		"THRESHOLD_PASS":                   "70",
		"THRESHOLD_ITERATE":                "50",
		"PIPELINE_TIER":                    "auto",
		"DOC_TEMPLATES_MODE":               "minimal",
		"HUMAN_GATES":                      "",
		"HOLDOUTS_DIR":                     "holdouts",
		"SUMMARIES_DIR":                    "summaries",
		"ARTIFACTS_DIR":                    "artifacts",
		"TEMPLATES_DIR":                    "templates",
		"DOCS_DIR":                         "docs",
		"LOG_BASE_DIR":                     "logs",
		"KILL_SWITCH_FILE":                 ".kill-switch",
		"METRICS_FILE":                     "logs/metrics.jsonl",
		"REVIEW_VALIDATOR_COMMAND":         "",
		"FIDELITY_DOWNGRADE_THRESHOLD":     "100000",
		"FIDELITY_UPGRADE_THRESHOLD":       "20000",
		"AGENT_COMMAND":                    "claude",
		"MODEL_PHASE0":                     "claude-sonnet-4-5-20250929",
		"MODEL_INTERROGATE":                "claude-opus-4-6",
		"MODEL_REVIEW":                     "claude-sonnet-4-5-20250929",
		"MODEL_GENERATE_DOCS":              "claude-opus-4-6",
		"MODEL_IMPLEMENT":                  "claude-opus-4-6",
		"MODEL_VERIFY":                     "claude-sonnet-4-5-20250929",
		"MODEL_SECURITY":                   "claude-sonnet-4-5-20250929",
		"MODEL_HOLDOUT":                    "claude-sonnet-4-5-20250929",
		"MODEL_SHIP":                       "claude-sonnet-4-5-20250929",
	})
}
