package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/deep-compute/logaggfs/internal/config"
	"github.com/deep-compute/logaggfs/internal/log"
)

// loadConfig reads the config files and applies command-line overrides.
// args are the positional arguments; the first, if any, is the mount point.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	f := cmd.Flags()

	if quiet, _ := f.GetBool("quiet"); quiet {
		log.EnableQuietMode()
	}

	explicit, _ := f.GetString("config")
	fileConfig, err := config.LoadConfig(explicit)
	if err != nil {
		return config.Config{}, err
	}
	return applyFlags(f, fileConfig, args), nil
}

// applyFlags merges flags over the file config. Flags override only when
// set explicitly, so flag defaults never shadow config file values.
func applyFlags(f *pflag.FlagSet, cfg config.Config, args []string) config.Config {
	cfg.MountPoint = resolveStringFlag(f, "mount-point", cfg.MountPoint)
	if len(args) > 0 {
		cfg.MountPoint = args[0]
	}
	cfg.Root = resolveStringFlag(f, "root", cfg.Root)
	cfg.MirrorDir = resolveStringFlag(f, "mirror-dir", cfg.MirrorDir)
	cfg.CaptureDir = resolveStringFlag(f, "capture-dir", cfg.CaptureDir)
	cfg.StateFile = resolveStringFlag(f, "state-file", cfg.StateFile)
	cfg.RotateSize = resolveStringFlag(f, "rotate-size", cfg.RotateSize)
	cfg.RefreshInterval = resolveStringFlag(f, "refresh", cfg.RefreshInterval)
	cfg.LogLevel = resolveStringFlag(f, "log-level", cfg.LogLevel)
	cfg.LogFile = resolveStringFlag(f, "log-file", cfg.LogFile)

	if f.Changed("fail-closed") {
		v, _ := f.GetBool("fail-closed")
		cfg.FailClosed = &v
	}
	if f.Changed("allow-other") {
		v, _ := f.GetBool("allow-other")
		cfg.AllowOther = &v
	}
	if debug, err := f.GetCount("debug"); err == nil {
		cfg.Debug = max(debug, cfg.Debug)
	}
	return cfg
}

// setupLogging applies the log level and redirects output to the log file.
// The returned func closes the file.
func setupLogging(s config.Settings) (func(), error) {
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	if s.Debug > 0 {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	if s.LogFile == "" {
		return func() {}, nil
	}
	file, err := os.OpenFile(s.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening log file: %w", config.ErrConfiguration, err)
	}
	log.SetOutput(file, file)
	return func() {
		log.SetOutput(os.Stdout, os.Stderr)
		_ = file.Close()
	}, nil
}

// resolveStringFlag returns the CLI flag value if explicitly set by the user,
// otherwise the config file value if non-empty, otherwise the flag default.
// Flags not defined on the command resolve to the config value.
func resolveStringFlag(f *pflag.FlagSet, name string, configValue string) string {
	if f.Changed(name) {
		val, _ := f.GetString(name)
		return val
	}
	if configValue != "" {
		return configValue
	}
	val, _ := f.GetString(name)
	return val
}
