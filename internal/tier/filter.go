// Package tier resolves the pipeline's effort tier and decides, per phase,
// whether it should run: tier skip-sets, resume-anchor skipping, doc
// templates mode, and human-gate approval markers.
package tier

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Tier names, ordered from least to most thorough.
const (
	Nano     = "nano"
	Quick    = "quick"
	Standard = "standard"
	Full     = "full"
)

// skipSets maps each tier to the phases it never runs.
var skipSets = map[string]map[string]bool{
	Nano: set("interrogation-review", "generate-docs", "doc-review", "write-specs",
		"holdout-generate", "holdout-validate", "security-audit"),
	Quick:    set("write-specs", "holdout-generate", "holdout-validate", "security-audit"),
	Standard: set("holdout-generate", "holdout-validate"),
	Full:     set(),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// scopeRe matches a "SCOPE: <1-5>" line in the phase0 summary output.
var scopeRe = regexp.MustCompile(`SCOPE:\s*([1-5])`)

// ResolveTier determines the effective tier. If configured is "auto" (or
// empty), it scans phase0Output for a SCOPE line and maps: 1->nano,
// 2->quick, 3->standard, >=4->full, defaulting to standard if absent.
// Any other configured value is returned as-is.
func ResolveTier(configured string, phase0Output string) string {
	if configured != "" && configured != "auto" {
		return configured
	}
	m := scopeRe.FindStringSubmatch(phase0Output)
	if m == nil {
		return Standard
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Standard
	}
	switch {
	case n <= 1:
		return Nano
	case n == 2:
		return Quick
	case n == 3:
		return Standard
	default:
		return Full
	}
}

// Allows reports whether the given tier runs phase.
func Allows(t, phase string) bool {
	skips, ok := skipSets[t]
	if !ok {
		return true
	}
	return !skips[phase]
}

// Filter decides whether each phase in the default pipeline order should
// run, layering tier skip-sets, resume-from-anchor, doc-templates mode, and
// human-gate approval on top of Allows.
type Filter struct {
	Tier            string
	ResumeAnchor    string
	Completed       map[string]bool
	DocTemplatesOff bool
	HumanGates      map[string]bool
	LogDir          string

	resumeReached bool
}

// NewFilter constructs a Filter. humanGates should contain exactly the
// phase names listed in HUMAN_GATES; docTemplatesMode == "none" maps to
// docTemplatesOff == true.
func NewFilter(t, resumeAnchor string, completed map[string]bool, docTemplatesMode string, humanGates []string, logDir string) *Filter {
	gates := make(map[string]bool, len(humanGates))
	for _, g := range humanGates {
		g = strings.TrimSpace(g)
		if g != "" {
			gates[g] = true
		}
	}
	if completed == nil {
		completed = map[string]bool{}
	}
	return &Filter{
		Tier:            t,
		ResumeAnchor:    resumeAnchor,
		Completed:       completed,
		DocTemplatesOff: docTemplatesMode == "none",
		HumanGates:      gates,
		LogDir:          logDir,
		resumeReached:   resumeAnchor == "",
	}
}

// HumanGateNeeded is returned when a phase requires human approval that
// hasn't yet been granted via its marker file.
type HumanGateNeeded struct {
	Phase string
}

func (e *HumanGateNeeded) Error() string {
	return "human gate pending for phase " + e.Phase
}

// ShouldRun reports whether phase should run, and an error (always a
// *HumanGateNeeded) when a pending human gate blocks the phase.
func (f *Filter) ShouldRun(phase string) (bool, error) {
	if !f.resumeReached {
		if phase == f.ResumeAnchor {
			f.resumeReached = true
		}
		return false, nil
	}
	if f.Completed[phase] {
		return false, nil
	}
	if !Allows(f.Tier, phase) {
		return false, nil
	}
	if f.DocTemplatesOff && (phase == "generate-docs" || phase == "doc-review") {
		return false, nil
	}
	if f.HumanGates[phase] {
		marker := filepath.Join(f.LogDir, phase+".human-approved")
		if _, err := os.Stat(marker); err != nil {
			return false, &HumanGateNeeded{Phase: phase}
		}
	}
	return true, nil
}
