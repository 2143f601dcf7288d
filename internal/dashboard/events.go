package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// PhaseEvent is broadcast by the driver as each phase starts, advances, or
// finishes, and consumed by the dashboard's Bubble Tea loop via a channel
// bridged into tea.Msg values.
type PhaseEvent struct {
	Phase      string
	Verdict    string
	CostUSD    float64
	TotalCost  float64
	MaxCost    float64
	Tier       string
	Retry      int
	Done       bool
	FinishedAt time.Time
}

type phaseEventMsg PhaseEvent

// bridge turns a <-chan PhaseEvent into the tea.Cmd the program polls on
// every Update cycle, so the dashboard never blocks the pipeline goroutine
// feeding it -- a full channel simply means the dashboard misses a frame.
func bridge(events <-chan PhaseEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return quitMsg{}
		}
		return phaseEventMsg(e)
	}
}

type quitMsg struct{}
