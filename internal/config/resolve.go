package config

import (
	"os"
	"strings"
)

// EnvFunc abstracts environment variable lookup so tests can inject a fake
// environment without mutating the process's real one.
type EnvFunc func(key string) (string, bool)

// OSEnv is the EnvFunc backed by the real process environment.
func OSEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok
}

// knownKeys lists every KEY that Resolve will also look for in the
// environment, mirroring the env-override surface from the config loader.
// An environment variable not in this list is never consulted, so stray
// process environment variables cannot leak into pipeline configuration.
var knownKeys = []string{
	"DEFAULT_TIMEOUT", "MAX_PIPELINE_COST", "MAX_VERIFY_RETRIES",
	"MAX_INTERROGATION_ITERATIONS", "MAX_NO_PROGRESS",
	"STAGNATION_SIMILARITY_THRESHOLD", "THRESHOLD_AUTO_PASS",
	"THRESHOLD_PASS", "THRESHOLD_ITERATE", "PIPELINE_TIER", "PHASE_ORDER",
	"DOC_TEMPLATES_MODE", "HUMAN_GATES", "HOLDOUTS_DIR", "SUMMARIES_DIR",
	"ARTIFACTS_DIR", "TEMPLATES_DIR", "DOCS_DIR", "LOG_BASE_DIR",
	"KILL_SWITCH_FILE", "METRICS_FILE", "REVIEW_VALIDATOR_COMMAND",
	"FIDELITY_DOWNGRADE_THRESHOLD", "FIDELITY_UPGRADE_THRESHOLD",
	"AGENT_COMMAND",
}

// knownPrefixes covers the per-phase key families (MODEL_<PHASE>,
// TIMEOUT_<PHASE>) that knownKeys can't enumerate once custom phases or
// per-step timeout keys are in play.
var knownPrefixes = []string{"MODEL_", "TIMEOUT_"}

func isKnownEnvKey(k string) bool {
	for _, known := range knownKeys {
		if k == known {
			return true
		}
	}
	for _, prefix := range knownPrefixes {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Resolve merges three layers, later layers overriding earlier ones:
// defaults, the config file at path, and the process environment (filtered
// to knownKeys so arbitrary env vars cannot inject configuration).
//
// A missing config file is not an error (Load already handles that); Resolve
// simply proceeds with defaults + environment.
func Resolve(path string, env EnvFunc) (*Config, error) {
	merged := NewDefaults()

	fromFile, err := Load(path)
	if err != nil {
		return nil, err
	}
	for k, v := range fromFile.Raw() {
		merged.Set(k, v)
	}

	if env == nil {
		env = OSEnv
	}
	// Every key already present (from defaults or the file) is a candidate
	// for an environment override; this naturally covers the per-phase
	// MODEL_*/TIMEOUT_* families without needing to enumerate them.
	for k := range merged.Raw() {
		if !isKnownEnvKey(k) {
			continue
		}
		if v, ok := env(k); ok && v != "" {
			merged.Set(k, v)
		}
	}
	// knownKeys are consulted even when neither the defaults nor the file
	// define them (PHASE_ORDER has no default).
	for _, k := range knownKeys {
		if v, ok := env(k); ok && v != "" {
			merged.Set(k, v)
		}
	}

	profilesPath := merged.String("PHASE_PROFILES_FILE", "")
	if profilesPath != "" {
		profiles, err := LoadProfiles(profilesPath)
		if err != nil {
			return nil, err
		}
		merged.Profiles = profiles
	}

	return merged, nil
}
