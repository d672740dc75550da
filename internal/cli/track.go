package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/log"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Edit the tracked pattern list",
	Long: `Tracked files are named by glob patterns written against the mount
point, e.g. /mnt/logs/*/app.log. A running mount picks up changes on its
next refresh.`,
}

var trackAddCmd = &cobra.Command{
	Use:   "add <pattern>...",
	Short: "Track files matching the patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPatterns(cmd, args, tracker.AddPattern, "Tracking", "Already tracked")
	},
}

var trackRmCmd = &cobra.Command{
	Use:     "rm <pattern>...",
	Aliases: []string{"remove"},
	Short:   "Stop tracking the patterns",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPatterns(cmd, args, tracker.RemovePattern, "Untracked", "Not tracked")
	},
}

var trackListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked patterns",
	Args:    cobra.NoArgs,
	RunE:    runTrackList,
}

func init() {
	trackCmd.AddCommand(trackAddCmd)
	trackCmd.AddCommand(trackRmCmd)
	trackCmd.AddCommand(trackListCmd)
}

// stateFile resolves the state file from config and flags.
func stateFile(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return "", err
	}
	return config.StatePath(cfg)
}

// editPatterns applies edit to every pattern. Relative patterns are made
// absolute against the working directory first.
func editPatterns(cmd *cobra.Command, patterns []string,
	edit func(stateFile, pattern string) (bool, error), done, unchanged string) error {
	path, err := stateFile(cmd)
	if err != nil {
		return err
	}
	for _, pattern := range patterns {
		abs := strings.TrimSpace(pattern)
		if abs != "" && !filepath.IsAbs(abs) {
			if abs, err = filepath.Abs(abs); err != nil {
				return fmt.Errorf("pattern %q: %w", pattern, err)
			}
		}
		changed, err := edit(path, abs)
		if err != nil {
			return err
		}
		if changed {
			log.Success(done + ": " + abs)
		} else {
			log.Dim(unchanged + ": " + abs)
		}
	}
	return nil
}

func runTrackList(cmd *cobra.Command, args []string) error {
	path, err := stateFile(cmd)
	if err != nil {
		return err
	}
	patterns, err := tracker.ReadPatterns(path)
	if err != nil {
		return err
	}

	log.Bold("Tracked patterns")
	log.Dim("  " + path)
	log.Newline()
	if len(patterns) == 0 {
		log.Dim("  (none)")
		return nil
	}
	for _, p := range patterns {
		log.Raw("  " + log.Style.Cyan(p))
	}
	return nil
}
