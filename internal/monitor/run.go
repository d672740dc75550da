package monitor

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive watch view. It blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view error: %w", err)
	}
	return nil
}
