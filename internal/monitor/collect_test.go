package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/clock"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

type fixture struct {
	root       string
	captureDir string
	stateFile  string
	access     string
	errorLog   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		root:       root,
		captureDir: filepath.Join(root, "logs"),
		stateFile:  filepath.Join(root, "trackfiles.txt"),
		access:     filepath.Join(root, "app", "access.log"),
		errorLog:   filepath.Join(root, "app", "error.log"),
	}
	writeFile(t, f.access, 0)
	writeFile(t, f.errorLog, 0)
	if err := os.MkdirAll(f.captureDir, 0o755); err != nil {
		t.Fatal(err)
	}
	pattern := filepath.Join(root, "app", "*.log") + "\n"
	if err := os.WriteFile(f.stateFile, []byte(pattern), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f fixture) segment(t *testing.T, path string, at time.Time, size int) {
	t.Helper()
	writeFile(t, filepath.Join(f.captureDir, capture.SegmentName(capture.Token(path), at, 0)), size)
}

func TestCollectGroupsSegments(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.segment(t, f.access, base.Add(time.Second), 20)
	f.segment(t, f.access, base, 10)
	f.segment(t, "/gone/old.log", base, 7)
	writeFile(t, filepath.Join(f.captureDir, "README"), 3)

	fake := clock.Fake(base.Add(time.Minute))
	src := Source{
		CaptureDir: f.captureDir,
		Tracker:    tracker.New(tracker.Options{StateFile: f.stateFile}),
		Clock:      fake,
	}
	snap := src.Collect()
	if snap.Err != nil {
		t.Fatalf("Err = %v", snap.Err)
	}
	if !snap.Taken.Equal(fake.Now()) {
		t.Errorf("Taken = %v, want %v", snap.Taken, fake.Now())
	}
	if len(snap.Patterns) != 1 {
		t.Errorf("Patterns = %v, want one", snap.Patterns)
	}
	if snap.Segments() != 3 || snap.Size() != 37 {
		t.Errorf("totals = %d segments %d bytes, want 3 and 37", snap.Segments(), snap.Size())
	}

	want := []struct {
		label    string
		segments int
		size     int64
	}{
		{f.access, 2, 30},
		{f.errorLog, 0, 0},
		{"(untracked) " + capture.Token("/gone/old.log"), 1, 7},
	}
	if len(snap.Groups) != len(want) {
		t.Fatalf("len(Groups) = %d, want %d", len(snap.Groups), len(want))
	}
	for i, w := range want {
		g := snap.Groups[i]
		if GroupLabel(g) != w.label || len(g.Segments) != w.segments || g.Size != w.size {
			t.Errorf("group %d = %s %d %d, want %s %d %d",
				i, GroupLabel(g), len(g.Segments), g.Size, w.label, w.segments, w.size)
		}
	}

	latest, ok := snap.Groups[0].Latest()
	if !ok || !latest.Created.Equal(base.Add(time.Second)) {
		t.Errorf("Latest = %v %v, want the newer segment", latest.Created, ok)
	}
	if _, ok := snap.Groups[1].Latest(); ok {
		t.Error("Latest on an empty group should report false")
	}
}

func TestCollectReportsErrors(t *testing.T) {
	f := newFixture(t)
	if err := os.RemoveAll(f.captureDir); err != nil {
		t.Fatal(err)
	}

	src := Source{
		CaptureDir: f.captureDir,
		Tracker:    tracker.New(tracker.Options{StateFile: f.stateFile}),
	}
	snap := src.Collect()
	if snap.Err == nil {
		t.Fatal("expected an error for a missing capture directory")
	}
	if len(snap.Groups) != 2 {
		t.Errorf("len(Groups) = %d, want the 2 tracked paths", len(snap.Groups))
	}
}

func TestGroupDetail(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		g    Group
		want string
	}{
		{
			name: "empty",
			g:    Group{Path: "/a.log"},
			want: "no segments",
		},
		{
			name: "one segment",
			g: Group{
				Path:     "/a.log",
				Segments: []capture.Segment{{Created: now.Add(-90 * time.Second)}},
				Size:     500,
			},
			want: "1 segment, 500B, newest 1m30s ago",
		},
		{
			name: "clock skew",
			g: Group{
				Segments: []capture.Segment{{}, {Created: now.Add(time.Hour)}},
				Size:     2000,
			},
			want: "2 segments, 2kB, newest 0s ago",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroupDetail(tt.g, now); got != tt.want {
				t.Errorf("GroupDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}
