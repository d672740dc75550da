//go:build linux

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/fuse"
	"github.com/deep-compute/logaggfs/internal/log"
)

// runMount mounts the filesystem and serves it until SIGINT or SIGTERM.
func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	s, err := config.Resolve(cfg)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(s)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := config.Prepare(s); err != nil {
		return err
	}

	fsys, err := fuse.New(fuse.Config{
		MountPoint:      s.MountPoint,
		MirrorDir:       s.MirrorDir,
		CaptureDir:      s.CaptureDir,
		StateFile:       s.StateFile,
		RotateSize:      s.RotateSize,
		RefreshInterval: s.RefreshInterval,
		FailClosed:      s.FailClosed,
		AllowOther:      s.AllowOther,
		TraceLevel:      s.Debug,
		Log:             log.New("logaggfs"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Mounting %s (mirror %s)", s.MountPoint, s.MirrorDir)
	log.Dim("  capture: " + s.CaptureDir + ", rotate at " + s.HumanRotateSize())
	log.Dim("  tracked: " + s.StateFile + ", refresh request: " + filepath.Join(s.MountPoint, fuse.ControlPath))
	if patterns := fsys.Tracker().Snapshot().Patterns(); len(patterns) == 0 {
		log.Warnf("No tracked patterns in %s; nothing will be captured until one is added", s.StateFile)
	}
	if s.FailClosed {
		log.Warn("Fail-closed: tracked writes report EIO when capture fails")
	}

	if err := fsys.Run(ctx); err != nil {
		return err
	}
	stats := fsys.Stats()
	log.Infof("Unmounted %s: %d bytes captured, %d capture failures",
		s.MountPoint, stats.CapturedBytes, stats.CaptureFailures)
	if stats.Degraded() {
		return fmt.Errorf("%d tracked writes were not captured", stats.CaptureFailures)
	}
	return nil
}
