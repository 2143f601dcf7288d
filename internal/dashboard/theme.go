package dashboard

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette, adaptive to light/dark terminals.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	colorError   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
)

// theme holds the lipgloss styles used by the dashboard view. Widths are
// not baked in here; View() sizes the container to the model's width.
type theme struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Verdict  map[string]lipgloss.Style
	Panel    lipgloss.Style
	CostBar  lipgloss.Style
	CostOver lipgloss.Style
}

// colorSupported reports whether the attached terminal's color profile (as
// reported by termenv, consulting $TERM/$COLORTERM/$NO_COLOR) can render
// more than plain ASCII -- dumb terminals and CI logs fall back to an
// unstyled theme rather than raw escape codes.
func colorSupported() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

func newTheme() theme {
	if !colorSupported() {
		return plainTheme()
	}
	return theme{
		Title: lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Label: lipgloss.NewStyle().Foreground(colorMuted),
		Value: lipgloss.NewStyle().Bold(true),
		Muted: lipgloss.NewStyle().Foreground(colorMuted),
		Verdict: map[string]lipgloss.Style{
			"PASS":            lipgloss.NewStyle().Foreground(colorSuccess),
			"AUTO_PASS":       lipgloss.NewStyle().Foreground(colorSuccess),
			"PASS_WITH_NOTES": lipgloss.NewStyle().Foreground(colorWarning),
			"ITERATE":         lipgloss.NewStyle().Foreground(colorWarning),
			"NEEDS_HUMAN":     lipgloss.NewStyle().Foreground(colorWarning),
			"FAIL":            lipgloss.NewStyle().Foreground(colorError),
		},
		Panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1),
		CostBar:  lipgloss.NewStyle().Foreground(colorSuccess),
		CostOver: lipgloss.NewStyle().Foreground(colorError),
	}
}

func plainTheme() theme {
	plain := lipgloss.NewStyle()
	bold := lipgloss.NewStyle().Bold(true)
	return theme{
		Title:    bold,
		Label:    plain,
		Value:    bold,
		Muted:    plain,
		Verdict:  map[string]lipgloss.Style{},
		Panel:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		CostBar:  plain,
		CostOver: bold,
	}
}

func (t theme) verdictStyle(v string) lipgloss.Style {
	if s, ok := t.Verdict[v]; ok {
		return s
	}
	return t.Muted
}
