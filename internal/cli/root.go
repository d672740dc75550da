// Package cli defines the logaggfs command-line interface using cobra.
//
// The root command IS the mount command: "logaggfs <mountpoint>" mirrors the
// cache root's mirror directory at the mount point and captures writes to
// tracked files until interrupted. Subcommands (track, status, watch) work on
// the same cache root and need no running mount.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/log"
)

// Version, Commit, and Date are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var rootCmd = &cobra.Command{
	Use:   "logaggfs [flags] <mountpoint>",
	Short: "Mount a passthrough filesystem that captures log writes",
	Long: `logaggfs mounts a passthrough view of a mirror directory. Every
operation is forwarded to the mirror, and writes to tracked files are also
copied into size-rotated capture segments for collection.

Tracked files are listed as glob patterns in the state file, one per line.
Edit it with "logaggfs track". Opening <mountpoint>/.update asks a running
mount to re-read it immediately.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runMount,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("logaggfs v{{.Version}}\n")

	// --- Persistent flags (available to all subcommands) ---
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: "+config.GlobalConfigPath+" and ~/.logaggfs/config.yaml)")
	pf.BoolP("quiet", "q", false, "Suppress all output (exit code only)")
	pf.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error, silent")
	pf.StringP("mount-point", "m", "", "Mount point (the positional argument wins)")
	pf.StringP("root", "r", config.DefaultRoot, "Cache root holding the mirror, capture directory and state file")
	pf.String("mirror-dir", "", "Backing directory (default: <root>/"+config.MirrorDirName+")")
	pf.String("capture-dir", "", "Capture segment directory (default: <root>/"+config.CaptureDirName+")")
	pf.String("state-file", "", "Tracked pattern file (default: <root>/"+config.StateFileName+")")

	// --- Local flags (root/mount command only) ---
	f := rootCmd.Flags()
	f.String("rotate-size", config.DefaultRotateSize, "Rotate a capture segment once it reaches this size (e.g., 500kB, 2MB)")
	f.String("refresh", config.DefaultRefreshInterval, "How often the state file is re-read")
	f.Bool("fail-closed", false, "Fail a tracked write with EIO when its capture fails")
	f.Bool("allow-other", false, "Allow other users to access the mount")
	f.CountP("debug", "d", "Debug mode (-d capture events, -dd every operation, -ddd kernel protocol)")
	f.String("log-file", "", "Append log output to this file instead of the terminal")

	// --- Subcommands ---
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
