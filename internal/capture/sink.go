package capture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/deep-compute/logaggfs/internal/clock"
	"github.com/deep-compute/logaggfs/internal/log"
)

// DefaultMaxSize is the rotation threshold in bytes.
const DefaultMaxSize = 500_000

var (
	// ErrCaptureWrite reports that bytes could not be appended to a segment.
	ErrCaptureWrite = errors.New("capture write failed")
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("capture sink closed")
)

// State is the lifecycle state of a Sink.
type State int

const (
	// StateCreated means no segment has been opened yet.
	StateCreated State = iota
	// StateOpen means a segment is (or was, before a failed rotation) open.
	StateOpen
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures a Sink.
type Options struct {
	// Dir is the flat capture directory segments are created in.
	Dir string
	// MaxSize is the rotation threshold. Zero uses DefaultMaxSize.
	MaxSize int64
	// Clock supplies timestamps. Nil uses the real clock.
	Clock clock.Clock
	// Log receives segment events. Nil discards them.
	Log log.Sink
}

// Sink appends the byte stream of one tracked path to rotation segments.
//
// The mutex only guards the sink's own state; callers already serialise
// appends per handle, but Close may arrive from the shutdown path while an
// append is in flight.
type Sink struct {
	mu sync.Mutex

	path    string
	token   string
	dir     string
	maxSize int64
	clock   clock.Clock
	log     log.Sink

	created  time.Time
	state    State
	file     *os.File
	segment  string
	size     int64
	segments int
}

// NewSink binds a sink to the tracked virtual path. No file is created until
// the first Append.
func NewSink(path string, opts Options) *Sink {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Log == nil {
		opts.Log = log.Discard
	}
	return &Sink{
		path:    path,
		token:   Token(path),
		dir:     opts.Dir,
		maxSize: opts.MaxSize,
		clock:   opts.Clock,
		log:     opts.Log,
		created: opts.Clock.Now(),
		state:   StateCreated,
	}
}

// Path returns the tracked virtual path.
func (s *Sink) Path() string { return s.path }

// Token returns the identity token shared by all segments of this path.
func (s *Sink) Token() string { return s.token }

// State returns the lifecycle state.
func (s *Sink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Segment returns the name of the current segment, or "" before the first
// append.
func (s *Sink) Segment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segment
}

// Segments returns how many segments this sink has opened.
func (s *Sink) Segments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments
}

// Append writes p to the current segment, opening one if needed, and rotates
// when the segment has grown past the threshold and p ends with a newline.
// The segment file is unbuffered, so p is in the file when Append returns.
func (s *Sink) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrClosed
	}
	if s.file == nil {
		at := s.created
		if s.segments > 0 {
			at = s.clock.Now()
		}
		if err := s.openLocked(at); err != nil {
			return err
		}
	}

	n, err := s.file.Write(p)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("%w: appending %d bytes to %s: %w", ErrCaptureWrite, len(p), s.segment, err)
	}

	if s.size > s.maxSize && bytes.HasSuffix(p, []byte{'\n'}) {
		return s.rotateLocked()
	}
	return nil
}

// Close releases the current segment. Further appends fail with ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.log.Debug("segment_closed", "path", s.path, "segment", s.segment, "size", s.size)
	if err != nil {
		return fmt.Errorf("closing segment %s: %w", s.segment, err)
	}
	return nil
}

// rotateLocked closes the outgoing segment before opening the incoming one.
// If the new segment cannot be created the sink stays open without a file and
// the next Append retries.
func (s *Sink) rotateLocked() error {
	outgoing, size := s.segment, s.size
	closeErr := s.file.Close()
	s.file = nil
	s.log.Debug("segment_rotated", "path", s.path, "segment", outgoing, "size", size)
	if closeErr != nil {
		s.log.Exception("segment_close_failed", closeErr, "segment", outgoing)
	}

	if err := s.openLocked(s.clock.Now()); err != nil {
		return err
	}
	return nil
}

func (s *Sink) openLocked(at time.Time) error {
	file, name, err := createSegment(s.dir, s.token, at)
	if err != nil {
		return fmt.Errorf("%w: creating segment %s: %w", ErrCaptureWrite, name, err)
	}
	s.file = file
	s.segment = name
	s.size = 0
	s.segments++
	s.state = StateOpen
	s.log.Debug("segment_opened", "path", s.path, "segment", name)
	return nil
}
