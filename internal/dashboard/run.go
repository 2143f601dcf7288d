package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run drives the dashboard program to completion. It blocks until the
// events channel is closed or the user quits, whichever comes first.
func Run(ticket string, events <-chan PhaseEvent) error {
	p := tea.NewProgram(New(ticket, events))
	_, err := p.Run()
	return err
}
