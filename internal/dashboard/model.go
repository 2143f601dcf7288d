// Package dashboard renders a live pipeline progress view on top of
// Bubble Tea: current phase, verdict, cost-so-far against the configured
// ceiling, and resolved tier. It is the foreground renderer for
// `interrogate --watch` and is driven entirely by PhaseEvent values the
// driver publishes as it advances.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the top-level Bubble Tea model for the pipeline dashboard.
type Model struct {
	theme    theme
	events   <-chan PhaseEvent
	width    int
	costGage progress.Model

	ticket    string
	phase     string
	verdict   string
	tier      string
	totalCost float64
	maxCost   float64
	retry     int
	history   []string
	done      bool
	startedAt time.Time
}

// New constructs a Model that consumes events from the given channel. The
// channel is owned by the caller; closing it terminates the program.
func New(ticket string, events <-chan PhaseEvent) Model {
	return Model{
		theme:     newTheme(),
		events:    events,
		ticket:    ticket,
		startedAt: timeNow(),
		costGage:  progress.New(progress.WithSolidFill(colorSuccess.Dark), progress.WithoutPercentage()),
	}
}

// timeNow is a seam so tests can pin the dashboard's clock.
var timeNow = time.Now

func (m Model) Init() tea.Cmd {
	return bridge(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case phaseEventMsg:
		m.phase = msg.Phase
		m.verdict = msg.Verdict
		m.tier = msg.Tier
		m.totalCost = msg.TotalCost
		m.maxCost = msg.MaxCost
		m.retry = msg.Retry
		m.done = msg.Done
		m.history = append(m.history, m.historyLine(PhaseEvent(msg)))
		if len(m.history) > 8 {
			m.history = m.history[len(m.history)-8:]
		}
		if m.done {
			return m, tea.Quit
		}
		return m, bridge(m.events)
	case quitMsg:
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m Model) historyLine(e PhaseEvent) string {
	status := "running"
	if e.Verdict != "" {
		status = e.Verdict
	}
	return fmt.Sprintf("%-28s %-16s $%.2f", e.Phase, status, e.CostUSD)
}

func (m Model) View() string {
	width := m.width
	if width <= 0 || width > 88 {
		width = 72
	}

	title := m.theme.Title.Render(fmt.Sprintf("interrogate  %s", m.ticket))
	elapsed := timeNow().Sub(m.startedAt).Round(time.Second)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "%s %s    %s %s\n",
		m.theme.Label.Render("tier"), m.theme.Value.Render(orDash(m.tier)),
		m.theme.Label.Render("elapsed"), m.theme.Value.Render(elapsed.String()))
	fmt.Fprintf(&b, "%s %s    %s %s\n",
		m.theme.Label.Render("phase"), m.theme.Value.Render(orDash(m.phase)),
		m.theme.Label.Render("verdict"), m.theme.verdictStyle(m.verdict).Render(orDash(m.verdict)))
	if m.retry > 0 {
		fmt.Fprintf(&b, "%s %d\n", m.theme.Label.Render("retry"), m.retry)
	}
	fmt.Fprintf(&b, "%s\n", m.costLine())
	if len(m.history) > 0 {
		b.WriteString(m.theme.Muted.Render(strings.Join(m.history, "\n")))
		b.WriteString("\n")
	}
	if m.done {
		b.WriteString(m.theme.Muted.Render("done -- press q to exit\n"))
	} else {
		b.WriteString(m.theme.Muted.Render("q to quit\n"))
	}

	return m.theme.Panel.Width(width).Render(b.String())
}

func (m Model) costLine() string {
	label := m.theme.Label.Render("cost")
	if m.maxCost <= 0 {
		return fmt.Sprintf("%s $%.2f", label, m.totalCost)
	}
	ratio := m.totalCost / m.maxCost
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	m.costGage.Width = 20
	bar := m.costGage.ViewAs(ratio)
	amount := fmt.Sprintf("$%.2f / $%.2f", m.totalCost, m.maxCost)
	if m.totalCost > m.maxCost {
		amount = m.theme.CostOver.Render(amount)
	}
	return fmt.Sprintf("%s %s %s", label, bar, amount)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
