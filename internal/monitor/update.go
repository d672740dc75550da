package monitor

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Message types ---

type refreshMsg struct {
	snap Snapshot
}

type tickMsg time.Time

type statusMsg struct {
	message string
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.selected = m.snap.Groups[m.cursor].Token
			}

		case "down", "j":
			if m.cursor < len(m.snap.Groups)-1 {
				m.cursor++
				m.selected = m.snap.Groups[m.cursor].Token
			}

		case "r":
			return m, refreshData(m.collect)

		case "u":
			if m.controlFile == "" {
				m.setStatus("No mount to signal")
				break
			}
			return m, requestUpdate(m.controlFile)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case refreshMsg:
		m.snap = msg.snap
		m.loaded = true
		m.restoreCursor()

	case tickMsg:
		return m, tea.Batch(refreshData(m.collect), tickEvery(m.interval))

	case statusMsg:
		m.setStatus(msg.message)
	}

	if !m.statusExpiry.IsZero() && m.clock.Now().After(m.statusExpiry) {
		m.statusMessage = ""
		m.statusExpiry = time.Time{}
	}

	return m, nil
}

func (m *Model) setStatus(message string) {
	m.statusMessage = message
	m.statusExpiry = m.clock.Now().Add(statusTTL)
}

// restoreCursor keeps the selection on the same token across refreshes.
func (m *Model) restoreCursor() {
	groups := m.snap.Groups
	if m.selected != "" {
		for i, g := range groups {
			if g.Token == m.selected {
				m.cursor = i
				return
			}
		}
	}
	m.cursor = min(m.cursor, max(0, len(groups)-1))
	m.selected = ""
	if len(groups) > 0 {
		m.selected = groups[m.cursor].Token
	}
}

// --- Commands ---

func refreshData(collect func() Snapshot) tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{snap: collect()}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// requestUpdate opens the control file on the mount, which makes the
// running filesystem re-read its state file.
func requestUpdate(controlFile string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.OpenFile(controlFile, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return statusMsg{message: "Refresh request failed: " + err.Error()}
		}
		_ = f.Close()
		return statusMsg{message: "Refresh requested"}
	}
}
