package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"
)

// detailSegments is how many of the selected group's newest segments are
// listed below the table.
const detailSegments = 5

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5B41DF", Dark: "#7B61FF"}).
			MarginBottom(1)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008866", Dark: "#00D4AA"}).
			Bold(true)

	segmentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
			PaddingLeft(4)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD700"})

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"})

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#555555"}).
			MarginTop(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

// --- View ---

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("logaggfs watch"))
	b.WriteString("\n")

	if !m.loaded {
		b.WriteString(dimStyle.Render("  Collecting..."))
		b.WriteString("\n")
		return b.String()
	}

	snap := m.snap
	b.WriteString(dimStyle.Render(Summary(snap)))
	b.WriteString("\n\n")

	if len(snap.Groups) == 0 {
		if len(snap.Patterns) == 0 {
			b.WriteString(dimStyle.Render("  No patterns. Add one with: logaggfs track add <glob>"))
		} else {
			b.WriteString(dimStyle.Render("  No tracked files matched yet."))
		}
		b.WriteString("\n")
	}

	now := m.clock.Now()
	for i, g := range snap.Groups {
		var line string
		if i == m.cursor {
			line = selectedStyle.Render(fmt.Sprintf("> %s  %s", GroupLabel(g), GroupDetail(g, now)))
		} else {
			line = fmt.Sprintf("  %s  %s", pathStyle.Render(GroupLabel(g)), dimStyle.Render(GroupDetail(g, now)))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if g, ok := m.Selected(); ok && len(g.Segments) > 0 {
		b.WriteString("\n")
		start := max(0, len(g.Segments)-detailSegments)
		for _, seg := range g.Segments[start:] {
			b.WriteString(segmentStyle.Render(fmt.Sprintf("%s  %s", seg.Name, FormatSize(seg.Size))))
			b.WriteString("\n")
		}
	}

	if snap.Err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(strings.ReplaceAll(snap.Err.Error(), "\n", "; ")))
		b.WriteString("\n")
	}

	if m.statusMessage != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.statusMessage))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r:refresh  u:request update  q:quit"))

	return b.String()
}

// Summary renders the one-line totals of a snapshot.
func Summary(s Snapshot) string {
	tracked := 0
	for _, g := range s.Groups {
		if g.Tracked() {
			tracked++
		}
	}
	return fmt.Sprintf("%d patterns, %d tracked files, %d segments, %s",
		len(s.Patterns), tracked, s.Segments(), FormatSize(s.Size()))
}

// GroupLabel names a group by its path, or by token once untracked.
func GroupLabel(g Group) string {
	if g.Tracked() {
		return g.Path
	}
	return "(untracked) " + g.Token
}

// GroupDetail renders the segment count, size and age of the newest segment.
func GroupDetail(g Group, now time.Time) string {
	latest, ok := g.Latest()
	if !ok {
		return "no segments"
	}
	noun := "segments"
	if len(g.Segments) == 1 {
		noun = "segment"
	}
	return fmt.Sprintf("%d %s, %s, newest %s ago",
		len(g.Segments), noun, FormatSize(g.Size), FormatAge(now.Sub(latest.Created)))
}

// FormatSize renders a byte count the way rotate sizes are configured.
func FormatSize(n int64) string {
	return units.HumanSize(float64(n))
}

// FormatAge renders d at second resolution, clamping clock skew to zero.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}
