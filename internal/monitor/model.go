package monitor

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deep-compute/logaggfs/internal/clock"
)

// DefaultInterval is how often the watch view re-collects.
const DefaultInterval = time.Second

// statusTTL is how long a status message stays on screen.
const statusTTL = 3 * time.Second

// Options configures the watch view.
type Options struct {
	// Collect produces a fresh snapshot. Usually Source.Collect.
	Collect func() Snapshot
	// ControlFile is the control path on the live mount. Empty disables the
	// refresh request key.
	ControlFile string
	Interval    time.Duration
	Clock       clock.Clock
}

// Model is the bubbletea model for the watch view.
type Model struct {
	collect     func() Snapshot
	controlFile string
	interval    time.Duration
	clock       clock.Clock

	snap     Snapshot
	loaded   bool
	cursor   int
	selected string

	statusMessage string
	statusExpiry  time.Time
	width         int
	height        int
	quitting      bool
}

// NewModel creates the initial model.
func NewModel(opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return Model{
		collect:     opts.Collect,
		controlFile: opts.ControlFile,
		interval:    opts.Interval,
		clock:       opts.Clock,
	}
}

// Init returns initial commands to collect data and start the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		refreshData(m.collect),
		tickEvery(m.interval),
	)
}

// Snapshot returns the last collected snapshot.
func (m Model) Snapshot() Snapshot { return m.snap }

// Selected returns the group under the cursor.
func (m Model) Selected() (Group, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Groups) {
		return Group{}, false
	}
	return m.snap.Groups[m.cursor], true
}
