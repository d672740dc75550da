// Package fuse implements the logaggfs passthrough filesystem: every
// operation is forwarded to a mirror directory, and writes to tracked paths
// are also appended to capture segments.
package fuse

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/clock"
	"github.com/deep-compute/logaggfs/internal/log"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

// ControlPath is the virtual path whose open requests a tracker refresh.
const ControlPath = "/.update"

// Trace levels for Config.TraceLevel.
const (
	TraceOff     = 0
	TraceCapture = 1
	TraceAll     = 2
)

// Config holds the filesystem configuration. Values are taken as given; the
// command line and config file are handled elsewhere.
type Config struct {
	MountPoint      string
	MirrorDir       string
	CaptureDir      string
	StateFile       string
	RotateSize      int64
	RefreshInterval time.Duration
	// FailClosed makes a write whose capture failed return EIO after the
	// real write has been performed.
	FailClosed bool
	AllowOther bool
	TraceLevel int

	Log   log.Sink
	Clock clock.Clock
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"mount point", &c.MountPoint},
		{"mirror directory", &c.MirrorDir},
		{"capture directory", &c.CaptureDir},
		{"state file", &c.StateFile},
	} {
		if *f.value == "" {
			return fmt.Errorf("%s is required", f.name)
		}
		abs, err := filepath.Abs(*f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = abs
	}
	if c.RotateSize <= 0 {
		c.RotateSize = capture.DefaultMaxSize
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = tracker.DefaultInterval
	}
	if c.Log == nil {
		c.Log = log.Discard
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	return nil
}
