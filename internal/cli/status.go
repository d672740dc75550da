package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/log"
	"github.com/deep-compute/logaggfs/internal/monitor"
)

var statusCmd = &cobra.Command{
	Use:   "status [mountpoint]",
	Short: "Show tracked files and their capture segments",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolP("verbose", "v", false, "List every segment")
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	snap := newSource(s).Collect()
	printStatus(s, snap, verbose)
	if snap.Err != nil {
		return snap.Err
	}
	return nil
}

func printStatus(s config.Settings, snap monitor.Snapshot, verbose bool) {
	log.Bold("logaggfs " + s.MountPoint)
	log.Dim(fmt.Sprintf("  mirror %s, capture %s, rotate at %s", s.MirrorDir, s.CaptureDir, s.HumanRotateSize()))
	log.Newline()

	log.Bold("Patterns")
	if len(snap.Patterns) == 0 {
		log.Dim("  (none)")
	}
	for _, p := range snap.Patterns {
		log.Raw("  " + log.Style.Cyan(p))
	}
	log.Newline()

	log.Bold("Captures")
	if len(snap.Groups) == 0 {
		log.Dim("  (none)")
	}
	for _, g := range snap.Groups {
		label := log.Style.Cyan(monitor.GroupLabel(g))
		if !g.Tracked() {
			label = log.Style.Yellow(monitor.GroupLabel(g))
		}
		log.Raw(fmt.Sprintf("  %s  %s", label, log.Style.Dim(monitor.GroupDetail(g, snap.Taken))))
		if !verbose {
			continue
		}
		for _, seg := range g.Segments {
			log.Raw(log.Style.Dim(fmt.Sprintf("    %s  %s  %s",
				seg.Name, seg.Created.Local().Format(time.RFC3339), monitor.FormatSize(seg.Size))))
		}
	}
	log.Newline()
	log.Raw(monitor.Summary(snap))
}
