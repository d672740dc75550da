//go:build linux

package fuse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/clock"
	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/log"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

// Stats is a point-in-time view of the filesystem.
type Stats struct {
	OpenHandles     int
	CaptureHandles  int
	CapturedBytes   uint64
	CaptureFailures uint64
	Tracker         tracker.Stats
}

// Degraded reports whether any capture write has failed.
func (s Stats) Degraded() bool { return s.CaptureFailures > 0 }

// FS composes the mirror passthrough, the tracker and capture sinks.
type FS struct {
	cfg     Config
	mapper  Mapper
	ops     *Passthrough
	tracker *tracker.Tracker
	log     log.Sink
	trace   *Tracer
	clock   clock.Clock

	mu      sync.Mutex
	handles map[*FileHandle]struct{}
	server  *fuse.Server

	capturedBytes   atomic.Uint64
	captureFailures atomic.Uint64
}

// New creates the mirror and capture directories if needed and returns an
// unmounted filesystem.
func New(cfg Config) (*FS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	for _, dir := range []string{cfg.MirrorDir, cfg.CaptureDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %w", config.ErrConfiguration, dir, err)
		}
	}

	m := Mapper{MountPoint: cfg.MountPoint, MirrorDir: cfg.MirrorDir}
	f := &FS{
		cfg:     cfg,
		mapper:  m,
		ops:     NewPassthrough(m),
		log:     cfg.Log,
		trace:   NewTracer(cfg.Log, cfg.TraceLevel),
		clock:   cfg.Clock,
		handles: make(map[*FileHandle]struct{}),
	}
	f.tracker = tracker.New(tracker.Options{
		StateFile: cfg.StateFile,
		Interval:  cfg.RefreshInterval,
		Clock:     cfg.Clock,
		Log:       cfg.Log,
		Glob:      m.Glob,
	})
	// Load the tracked set before anything can be opened; binding is fixed
	// at open time. A failure leaves the set empty until the next refresh.
	if err := f.tracker.Refresh(); err != nil {
		f.log.Exception("refresh_failed", err, "state_file", cfg.StateFile, "reason", "start")
	}
	return f, nil
}

// Config returns the validated configuration.
func (f *FS) Config() Config { return f.cfg }

// Tracker returns the file tracker.
func (f *FS) Tracker() *tracker.Tracker { return f.tracker }

// Ops returns the path operations.
func (f *FS) Ops() *Passthrough { return f.ops }

// Root returns the root node of the virtual tree.
func (f *FS) Root() *Node { return &Node{fs: f} }

// Open opens the virtual path and registers the handle. When create is set
// the file is created with mode if missing. Whether the handle captures
// writes is decided here, once, from the current tracked set.
func (f *FS) Open(path string, flags uint32, mode uint32, create bool) (*FileHandle, error) {
	if path == ControlPath {
		f.tracker.Trigger()
		f.trace.Op("refresh_requested", "path", path)
	}

	oflags := int(flags)
	if create {
		oflags |= syscall.O_CREAT
	}
	fd, err := f.ops.Open(path, oflags, mode)
	if err != nil {
		f.trace.OpErr("open", err, "path", path, "flags", flags)
		return nil, err
	}

	am, appendMode := accessMode(flags)
	fh := &FileHandle{
		fs:     f,
		path:   path,
		fd:     fd,
		mode:   am,
		append: appendMode,
	}
	if abs := f.mapper.Absolute(path); f.tracker.IsTracked(abs) {
		fh.sink = capture.NewSink(abs, capture.Options{
			Dir:     f.cfg.CaptureDir,
			MaxSize: f.cfg.RotateSize,
			Clock:   f.clock,
			Log:     f.log,
		})
		f.trace.Capture("capture_bound", "path", abs, "token", fh.sink.Token())
	}

	f.mu.Lock()
	f.handles[fh] = struct{}{}
	f.mu.Unlock()
	f.trace.Op("open", "path", path, "flags", flags, "mode", am, "captured", fh.sink != nil)
	return fh, nil
}

// forget removes fh from the registry so shutdown does not close it again.
func (f *FS) forget(fh *FileHandle) {
	f.mu.Lock()
	delete(f.handles, fh)
	f.mu.Unlock()
}

func (f *FS) captured(n int) {
	f.capturedBytes.Add(uint64(n))
}

func (f *FS) captureFailed(fh *FileHandle, err error) {
	f.captureFailures.Add(1)
	f.log.Exception("capture_write_failed", err,
		"path", fh.path,
		"segment", fh.sink.Segment(),
		"kind", KindOf(err).String(),
		"fail_closed", f.cfg.FailClosed)
}

// Stats returns handle and capture counters.
func (f *FS) Stats() Stats {
	f.mu.Lock()
	s := Stats{OpenHandles: len(f.handles)}
	for fh := range f.handles {
		if fh.sink != nil {
			s.CaptureHandles++
		}
	}
	f.mu.Unlock()
	s.CapturedBytes = f.capturedBytes.Load()
	s.CaptureFailures = f.captureFailures.Load()
	s.Tracker = f.tracker.Stats()
	return s
}

// Close releases every open handle and its sink. It is called after the
// filesystem has been unmounted.
func (f *FS) Close() error {
	f.mu.Lock()
	handles := make([]*FileHandle, 0, len(f.handles))
	for fh := range f.handles {
		handles = append(handles, fh)
	}
	f.handles = make(map[*FileHandle]struct{})
	f.mu.Unlock()

	var errs []error
	for _, fh := range handles {
		if err := fh.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", fh.path, err))
		}
	}
	if len(handles) > 0 {
		f.log.Debug("handles_closed", "count", len(handles))
	}
	return errors.Join(errs...)
}

// Mount mounts the filesystem at the configured mount point.
func (f *FS) Mount() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.server != nil {
		return fmt.Errorf("already mounted at %s", f.cfg.MountPoint)
	}

	// Passthrough must see every write, so the kernel caches nothing.
	zero := time.Duration(0)
	opts := &gofuse.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "logaggfs",
			Name:       "logaggfs",
			AllowOther: f.cfg.AllowOther,
			Debug:      f.cfg.TraceLevel > TraceAll,
		},
		EntryTimeout:    &zero,
		AttrTimeout:     &zero,
		NegativeTimeout: &zero,
	}
	server, err := gofuse.Mount(f.cfg.MountPoint, f.Root(), opts)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", f.cfg.MountPoint, err)
	}
	f.server = server
	f.log.Debug("mounted", "mount_point", f.cfg.MountPoint, "mirror", f.cfg.MirrorDir)
	return nil
}

// Unmount asks the kernel to unmount. Run returns once it has.
func (f *FS) Unmount() error {
	f.mu.Lock()
	server := f.server
	f.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Unmount()
}

// Run mounts the filesystem if needed, keeps the tracker refreshing and
// blocks until the filesystem is unmounted. Cancelling ctx unmounts. On
// return every handle and sink has been closed.
func (f *FS) Run(ctx context.Context) error {
	f.mu.Lock()
	mounted := f.server != nil
	f.mu.Unlock()
	if !mounted {
		if err := f.Mount(); err != nil {
			return err
		}
	}

	trackerCtx, stopTracker := context.WithCancel(context.Background())
	trackerDone := make(chan struct{})
	go func() {
		defer close(trackerDone)
		if err := f.tracker.Run(trackerCtx); err != nil {
			f.log.Exception("tracker_stopped", err)
		}
	}()

	waited := make(chan struct{})
	go func() {
		f.server.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-ctx.Done():
		if err := f.Unmount(); err != nil {
			f.log.Exception("unmount_failed", err, "mount_point", f.cfg.MountPoint)
		}
		<-waited
	}

	stopTracker()
	<-trackerDone
	f.log.Debug("unmounted", "mount_point", f.cfg.MountPoint)
	return f.Close()
}
