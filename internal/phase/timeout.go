package phase

import (
	"regexp"
	"strings"
)

// versionSuffixRe strips the attempt/step/pass/version suffixes a phase name
// accumulates across retries so the base phase's TIMEOUT_<PHASE> config key
// can still be found: "verify-step-3-attempt-2" resolves to "verify".
var versionSuffixRe = regexp.MustCompile(`-v\d+|-attempt-\d+|-step-[^-]+|-pass\d+`)

// TimeoutKey derives the config key (TIMEOUT_<PHASE>) for a phase name,
// stripping version/attempt/step/pass suffixes and upper-casing with dashes
// turned into underscores.
func TimeoutKey(phaseName string) string {
	base := versionSuffixRe.ReplaceAllString(phaseName, "")
	base = strings.ToUpper(strings.ReplaceAll(base, "-", "_"))
	return "TIMEOUT_" + base
}
