// Package monitor renders the capture state of a logaggfs root: tracked
// patterns, the paths they match and the rotation segments written for each.
// It backs both the one-shot status listing and the interactive watch view.
package monitor

import (
	"errors"
	"sort"
	"time"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/clock"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

// Group is the capture state of one identity token.
type Group struct {
	Token string
	// Path is the tracked path the token belongs to. Empty when the segments
	// were written for a path that is no longer tracked.
	Path     string
	Segments []capture.Segment
	Size     int64
}

// Tracked reports whether the group belongs to a currently tracked path.
func (g Group) Tracked() bool { return g.Path != "" }

// Latest returns the newest segment of the group.
func (g Group) Latest() (capture.Segment, bool) {
	if len(g.Segments) == 0 {
		return capture.Segment{}, false
	}
	return g.Segments[len(g.Segments)-1], true
}

// Snapshot is one collected view of the capture state.
type Snapshot struct {
	Patterns []string
	Groups   []Group
	Taken    time.Time
	// Err joins the state file and capture directory errors, if any. The
	// other fields hold whatever could still be collected.
	Err error
}

// Segments returns the total segment count.
func (s Snapshot) Segments() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Segments)
	}
	return n
}

// Size returns the total captured bytes on disk.
func (s Snapshot) Size() int64 {
	var n int64
	for _, g := range s.Groups {
		n += g.Size
	}
	return n
}

// Source collects snapshots for one logaggfs root.
type Source struct {
	CaptureDir string
	Tracker    *tracker.Tracker
	Clock      clock.Clock
}

// Collect refreshes the tracked set and lists the capture directory.
func (s Source) Collect() Snapshot {
	c := s.Clock
	if c == nil {
		c = clock.Real()
	}
	snap := Snapshot{Taken: c.Now()}

	refreshErr := s.Tracker.Refresh()
	set := s.Tracker.Snapshot()
	snap.Patterns = set.Patterns()

	segments, listErr := capture.ListSegments(s.CaptureDir)
	snap.Err = errors.Join(refreshErr, listErr)
	snap.Groups = groupSegments(set.Paths(), segments)
	return snap
}

// groupSegments builds one group per tracked path plus one per orphaned
// token. Tracked groups come first ordered by path, orphans by token.
func groupSegments(paths []string, segments []capture.Segment) []Group {
	byToken := make(map[string]*Group, len(paths))
	groups := make([]*Group, 0, len(paths))
	for _, p := range paths {
		tok := capture.Token(p)
		if _, ok := byToken[tok]; ok {
			continue
		}
		g := &Group{Token: tok, Path: p}
		byToken[tok] = g
		groups = append(groups, g)
	}
	for _, seg := range segments {
		g, ok := byToken[seg.Token]
		if !ok {
			g = &Group{Token: seg.Token}
			byToken[seg.Token] = g
			groups = append(groups, g)
		}
		g.Segments = append(g.Segments, seg)
		g.Size += seg.Size
	}

	out := make([]Group, len(groups))
	for i, g := range groups {
		capture.SortSegments(g.Segments)
		out[i] = *g
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tracked() != b.Tracked() {
			return a.Tracked()
		}
		if a.Tracked() {
			return a.Path < b.Path
		}
		return a.Token < b.Token
	})
	return out
}
