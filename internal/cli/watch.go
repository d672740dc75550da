package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deep-compute/logaggfs/internal/fuse"
	"github.com/deep-compute/logaggfs/internal/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch [mountpoint]",
	Short: "Live view of tracked files and capture segments",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", monitor.DefaultInterval, "How often the view re-collects")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	interval, _ := cmd.Flags().GetDuration("interval")
	src := newSource(s)
	return monitor.Run(monitor.Options{
		Collect:     src.Collect,
		ControlFile: filepath.Join(s.MountPoint, fuse.ControlPath),
		Interval:    interval,
	})
}
