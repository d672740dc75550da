package cli

import (
	"github.com/spf13/cobra"

	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/fuse"
	"github.com/deep-compute/logaggfs/internal/monitor"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

// loadSettings resolves the full settings for commands that inspect a
// cache root.
func loadSettings(cmd *cobra.Command, args []string) (config.Settings, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return config.Settings{}, err
	}
	return config.Resolve(cfg)
}

// newSource builds a monitor source that expands patterns the same way the
// mounted filesystem does, by globbing the mirror.
func newSource(s config.Settings) monitor.Source {
	mapper := fuse.Mapper{MountPoint: s.MountPoint, MirrorDir: s.MirrorDir}
	return monitor.Source{
		CaptureDir: s.CaptureDir,
		Tracker: tracker.New(tracker.Options{
			StateFile: s.StateFile,
			Interval:  s.RefreshInterval,
			Glob:      mapper.Glob,
		}),
	}
}
