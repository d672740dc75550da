package capture

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deep-compute/logaggfs/internal/clock"
)

var epoch = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestSink(t *testing.T, path string, maxSize int64) (*Sink, string, *clock.FakeClock) {
	t.Helper()
	dir := t.TempDir()
	fake := clock.Fake(epoch)
	sink := NewSink(path, Options{Dir: dir, MaxSize: maxSize, Clock: fake})
	t.Cleanup(func() { sink.Close() })
	return sink, dir, fake
}

// readStream concatenates the segments of token in dir in listing order and
// returns the joined bytes plus the individual segment contents.
func readStream(t *testing.T, dir, token string) ([]byte, [][]byte) {
	t.Helper()
	segments, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	var all []byte
	var parts [][]byte
	for _, seg := range SegmentsFor(segments, token) {
		data, err := os.ReadFile(filepath.Join(dir, seg.Name))
		if err != nil {
			t.Fatalf("reading %s: %v", seg.Name, err)
		}
		parts = append(parts, data)
		all = append(all, data...)
	}
	return all, parts
}

func TestSinkLazyOpen(t *testing.T) {
	sink, dir, _ := newTestSink(t, "/var/app/access.log", 100)

	if sink.State() != StateCreated {
		t.Errorf("State() = %v, want created", sink.State())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("segment created before first append: %d entries", len(entries))
	}

	if err := sink.Append([]byte("first\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sink.State() != StateOpen {
		t.Errorf("State() = %v, want open", sink.State())
	}
	want := SegmentName(Token("/var/app/access.log"), epoch, 0)
	if sink.Segment() != want {
		t.Errorf("Segment() = %q, want %q", sink.Segment(), want)
	}
}

func TestSinkRotationScenario(t *testing.T) {
	sink, dir, fake := newTestSink(t, "/var/app/access.log", DefaultMaxSize)

	line := []byte("hello\n")
	for i := 0; i < 100_000; i++ {
		if i%10_000 == 0 {
			fake.Advance(time.Millisecond)
		}
		if err := sink.Append(line); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	all, parts := readStream(t, dir, sink.Token())
	if want := bytes.Repeat(line, 100_000); !bytes.Equal(all, want) {
		t.Fatalf("concatenated stream differs: got %d bytes, want %d", len(all), len(want))
	}
	if len(parts) < 2 {
		t.Fatalf("expected at least one rotation, got %d segment(s)", len(parts))
	}
	for i, part := range parts[:len(parts)-1] {
		if len(part) == 0 || part[len(part)-1] != '\n' {
			t.Errorf("segment %d does not end on a line boundary", i)
		}
		if int64(len(part)) > DefaultMaxSize+int64(len(line)) {
			t.Errorf("segment %d is %d bytes, more than one write past the threshold", i, len(part))
		}
	}
	if sink.Segments() != len(parts) {
		t.Errorf("Segments() = %d, want %d", sink.Segments(), len(parts))
	}
}

func TestSinkDefersRotationUntilNewline(t *testing.T) {
	sink, dir, _ := newTestSink(t, "/logs/app.log", 10)

	if err := sink.Append([]byte("aaaaaaaaaaaa")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sink.Segments() != 1 {
		t.Fatalf("rotated mid-line: Segments() = %d", sink.Segments())
	}

	if err := sink.Append([]byte("bb")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sink.Segments() != 1 {
		t.Fatalf("rotated mid-line: Segments() = %d", sink.Segments())
	}

	if err := sink.Append([]byte("c\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sink.Segments() != 2 {
		t.Fatalf("Segments() = %d after newline past threshold, want 2", sink.Segments())
	}

	if err := sink.Append([]byte("next\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	_, parts := readStream(t, dir, sink.Token())
	if len(parts) != 2 {
		t.Fatalf("got %d segments, want 2", len(parts))
	}
	if string(parts[0]) != "aaaaaaaaaaaabbc\n" {
		t.Errorf("first segment = %q", parts[0])
	}
	if string(parts[1]) != "next\n" {
		t.Errorf("second segment = %q", parts[1])
	}
}

func TestSinkNoRotationAtThreshold(t *testing.T) {
	sink, _, _ := newTestSink(t, "/logs/app.log", 6)

	// Exactly at the threshold is not over it.
	if err := sink.Append([]byte("12345\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sink.Segments() != 1 {
		t.Errorf("Segments() = %d, want 1", sink.Segments())
	}
	if err := sink.Append([]byte("6\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sink.Segments() != 2 {
		t.Errorf("Segments() = %d, want 2", sink.Segments())
	}
}

func TestConcurrentSinksSameInstant(t *testing.T) {
	dir := t.TempDir()
	fake := clock.Fake(epoch)
	a := NewSink("/var/app/access.log", Options{Dir: dir, MaxSize: 64, Clock: fake})
	b := NewSink("/var/app/access.log", Options{Dir: dir, MaxSize: 64, Clock: fake})
	defer a.Close()
	defer b.Close()

	for i := 0; i < 50; i++ {
		if err := a.Append([]byte("from-a\n")); err != nil {
			t.Fatalf("a.Append: %v", err)
		}
		if err := b.Append([]byte("from-b-longer\n")); err != nil {
			t.Fatalf("b.Append: %v", err)
		}
	}

	if a.Token() != b.Token() {
		t.Fatalf("tokens differ for the same path: %s vs %s", a.Token(), b.Token())
	}
	if a.Segment() == b.Segment() {
		t.Fatalf("sinks share segment %s", a.Segment())
	}

	segments, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	var streamA, streamB strings.Builder
	for _, seg := range segments {
		data, err := os.ReadFile(filepath.Join(dir, seg.Name))
		if err != nil {
			t.Fatalf("reading %s: %v", seg.Name, err)
		}
		text := string(data)
		switch {
		case text == "":
		case strings.ReplaceAll(text, "from-a\n", "") == "":
			streamA.WriteString(text)
		case strings.ReplaceAll(text, "from-b-longer\n", "") == "":
			streamB.WriteString(text)
		default:
			t.Errorf("segment %s mixes both streams: %q", seg.Name, text)
		}
		if text != "" && !strings.HasSuffix(text, "\n") {
			t.Errorf("segment %s is not line aligned", seg.Name)
		}
	}
	if want := strings.Repeat("from-a\n", 50); streamA.String() != want {
		t.Errorf("stream a has %d bytes, want %d", streamA.Len(), len(want))
	}
	if want := strings.Repeat("from-b-longer\n", 50); streamB.String() != want {
		t.Errorf("stream b has %d bytes, want %d", streamB.Len(), len(want))
	}
}

func TestSinkClose(t *testing.T) {
	sink, _, _ := newTestSink(t, "/logs/app.log", 100)

	if err := sink.Append([]byte("x\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sink.State() != StateClosed {
		t.Errorf("State() = %v, want closed", sink.State())
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := sink.Append([]byte("y\n")); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after Close = %v, want ErrClosed", err)
	}
}

func TestSinkCloseBeforeAppend(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink("/logs/app.log", Options{Dir: dir})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Close created %d file(s)", len(entries))
	}
}

func TestSinkWriteErrorIsReported(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	sink := NewSink("/logs/app.log", Options{Dir: dir})
	defer sink.Close()

	err := sink.Append([]byte("lost\n"))
	if !errors.Is(err, ErrCaptureWrite) {
		t.Fatalf("Append into missing dir = %v, want ErrCaptureWrite", err)
	}

	// The sink recovers once the directory exists.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := sink.Append([]byte("kept\n")); err != nil {
		t.Fatalf("Append after recovery: %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateOpen, "open"},
		{StateClosed, "closed"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
