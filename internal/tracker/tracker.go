package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/deep-compute/logaggfs/internal/clock"
	"github.com/deep-compute/logaggfs/internal/log"
)

// DefaultInterval is the refresh period.
const DefaultInterval = 500 * time.Millisecond

// GlobFunc expands one pattern into the paths it currently matches.
type GlobFunc func(pattern string) ([]string, error)

// Options configures a Tracker.
type Options struct {
	// StateFile lists one glob pattern per line.
	StateFile string
	// Interval between refreshes. Zero uses DefaultInterval.
	Interval time.Duration
	// Clock drives the refresh ticker. Nil uses the real clock.
	Clock clock.Clock
	// Log receives refresh events. Nil discards them.
	Log log.Sink
	// Glob expands patterns. Nil uses filepath.Glob.
	Glob GlobFunc
}

// Stats summarises refresh activity.
type Stats struct {
	Refreshes   uint64
	Failures    uint64
	Tracked     int
	Patterns    int
	LastRefresh time.Time
}

// Tracker maintains the current PathSet.
type Tracker struct {
	stateFile string
	interval  time.Duration
	clock     clock.Clock
	log       log.Sink
	glob      GlobFunc

	current   atomic.Pointer[PathSet]
	refreshes atomic.Uint64
	failures  atomic.Uint64
	last      atomic.Int64
	trigger   chan struct{}
}

// New returns a Tracker with an empty set. Nothing is read until Refresh or
// Run.
func New(opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Log == nil {
		opts.Log = log.Discard
	}
	if opts.Glob == nil {
		opts.Glob = filepath.Glob
	}
	t := &Tracker{
		stateFile: filepath.Clean(opts.StateFile),
		interval:  opts.Interval,
		clock:     opts.Clock,
		log:       opts.Log,
		glob:      opts.Glob,
		trigger:   make(chan struct{}, 1),
	}
	t.current.Store(emptySet)
	return t
}

// StateFile returns the path of the pattern file.
func (t *Tracker) StateFile() string { return t.stateFile }

// Snapshot returns the current set. The set is never modified after it is
// installed.
func (t *Tracker) Snapshot() *PathSet { return t.current.Load() }

// IsTracked reports whether path is in the current set: matched by the last
// expansion, or matching one of its patterns. The pattern match tracks files
// created after the last refresh, so the result can be true for a path that
// Snapshot().Paths() does not list.
func (t *Tracker) IsTracked(path string) bool {
	return t.current.Load().Contains(path)
}

// Refresh rebuilds the set from the state file and installs it. On error the
// previous set stays in place.
func (t *Tracker) Refresh() error {
	patterns, err := ReadPatterns(t.stateFile)
	if err != nil {
		t.failures.Add(1)
		return err
	}

	var usable, matches []string
	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			t.log.Debug("pattern_ignored", "pattern", pattern, "reason", "not absolute")
			continue
		}
		found, err := t.glob(pattern)
		if err != nil {
			t.log.Exception("pattern_invalid", err, "pattern", pattern)
			continue
		}
		usable = append(usable, pattern)
		matches = append(matches, found...)
	}

	t.current.Store(newPathSet(usable, matches))
	t.refreshes.Add(1)
	t.last.Store(t.clock.Now().UnixNano())
	return nil
}

// Trigger requests a refresh from the Run loop without waiting for it.
// Requests made while one is pending are coalesced.
func (t *Tracker) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Stats returns refresh counters and the size of the current set.
func (t *Tracker) Stats() Stats {
	set := t.current.Load()
	s := Stats{
		Refreshes: t.refreshes.Load(),
		Failures:  t.failures.Load(),
		Tracked:   set.Len(),
		Patterns:  len(set.patterns),
	}
	if ns := t.last.Load(); ns != 0 {
		s.LastRefresh = time.Unix(0, ns)
	}
	return s
}

// Run refreshes once immediately, then on every tick, on every change to
// the state file and on every Trigger, until ctx is done. Refresh failures
// are logged and retried on the next tick.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := t.watch()
	if err != nil {
		t.log.Exception("watch_failed", err, "state_file", t.stateFile)
	} else {
		defer watcher.Close()
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	t.refresh("start")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.refresh("tick")
		case <-t.trigger:
			t.refresh("trigger")
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == t.stateFile && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				t.refresh("changed")
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			t.log.Exception("watch_error", err, "state_file", t.stateFile)
		}
	}
}

// watch observes the directory holding the state file, so replacing the
// file by rename is seen as well as writes in place.
func (t *Tracker) watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(t.stateFile)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(t.stateFile), err)
	}
	return watcher, nil
}

func (t *Tracker) refresh(reason string) {
	if err := t.Refresh(); err != nil {
		t.log.Exception("refresh_failed", err, "state_file", t.stateFile, "reason", reason)
		return
	}
	set := t.current.Load()
	t.log.Debug("refreshed", "reason", reason, "patterns", len(set.patterns), "tracked", set.Len())
}
