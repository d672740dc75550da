// Package config loads logaggfs settings from config files and resolves
// them, together with command-line overrides, into typed values.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// ErrConfiguration marks startup failures: bad settings or a cache root
// that cannot be prepared. They are fatal.
var ErrConfiguration = errors.New("configuration error")

// Defaults.
const (
	DefaultRoot            = "/var/lib/logaggfs"
	DefaultRotateSize      = "500kB"
	DefaultRefreshInterval = "500ms"
	DefaultLogLevel        = "info"

	MirrorDirName  = "mirror"
	CaptureDirName = "logs"
	StateFileName  = "trackfiles.txt"
)

// Config is the config file model. All fields are optional (zero value =
// not set); pointer bools distinguish unset from false.
type Config struct {
	MountPoint string `yaml:"mountPoint,omitempty"`
	Root       string `yaml:"root,omitempty"`
	MirrorDir  string `yaml:"mirrorDir,omitempty"`
	CaptureDir string `yaml:"captureDir,omitempty"`
	StateFile  string `yaml:"stateFile,omitempty"`

	// RotateSize is a decimal human size such as "500kB" or "2MB".
	RotateSize string `yaml:"rotateSize,omitempty"`
	// RefreshInterval is a Go duration such as "500ms".
	RefreshInterval string `yaml:"refreshInterval,omitempty"`

	FailClosed *bool `yaml:"failClosed,omitempty"`
	AllowOther *bool `yaml:"allowOther,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`
	LogFile  string `yaml:"logFile,omitempty"`
	Debug    int    `yaml:"debug,omitempty"`
}

// Settings are resolved, absolute and typed.
type Settings struct {
	MountPoint      string
	Root            string
	MirrorDir       string
	CaptureDir      string
	StateFile       string
	RotateSize      int64
	RefreshInterval time.Duration
	FailClosed      bool
	AllowOther      bool
	LogLevel        string
	LogFile         string
	Debug           int
}

// Resolve applies defaults and parses cfg. Directories left unset are
// derived from the root.
func Resolve(cfg Config) (Settings, error) {
	if cfg.MountPoint == "" {
		return Settings{}, fmt.Errorf("%w: mount point is required", ErrConfiguration)
	}

	s := Settings{
		LogLevel: orDefault(cfg.LogLevel, DefaultLogLevel),
		LogFile:  cfg.LogFile,
		Debug:    cfg.Debug,
	}
	if cfg.FailClosed != nil {
		s.FailClosed = *cfg.FailClosed
	}
	if cfg.AllowOther != nil {
		s.AllowOther = *cfg.AllowOther
	}

	size, err := units.FromHumanSize(orDefault(cfg.RotateSize, DefaultRotateSize))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: rotateSize: %w", ErrConfiguration, err)
	}
	if size <= 0 {
		return Settings{}, fmt.Errorf("%w: rotateSize must be positive, got %q", ErrConfiguration, cfg.RotateSize)
	}
	s.RotateSize = size

	interval, err := time.ParseDuration(orDefault(cfg.RefreshInterval, DefaultRefreshInterval))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: refreshInterval: %w", ErrConfiguration, err)
	}
	if interval <= 0 {
		return Settings{}, fmt.Errorf("%w: refreshInterval must be positive, got %q", ErrConfiguration, cfg.RefreshInterval)
	}
	s.RefreshInterval = interval

	root := orDefault(cfg.Root, DefaultRoot)
	paths := []struct {
		dst   *string
		value string
	}{
		{&s.MountPoint, cfg.MountPoint},
		{&s.Root, root},
		{&s.MirrorDir, orDefault(cfg.MirrorDir, filepath.Join(root, MirrorDirName))},
		{&s.CaptureDir, orDefault(cfg.CaptureDir, filepath.Join(root, CaptureDirName))},
		{&s.StateFile, orDefault(cfg.StateFile, filepath.Join(root, StateFileName))},
	}
	for _, p := range paths {
		abs, err := filepath.Abs(expandHome(p.value))
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		*p.dst = abs
	}

	if within(s.MirrorDir, s.MountPoint) {
		return Settings{}, fmt.Errorf("%w: mirror directory %s is inside the mount point", ErrConfiguration, s.MirrorDir)
	}
	if within(s.MountPoint, s.MirrorDir) {
		return Settings{}, fmt.Errorf("%w: mount point %s is inside the mirror directory", ErrConfiguration, s.MountPoint)
	}
	if within(s.CaptureDir, s.MountPoint) {
		return Settings{}, fmt.Errorf("%w: capture directory %s is inside the mount point", ErrConfiguration, s.CaptureDir)
	}
	return s, nil
}

// within reports whether path is dir or lies beneath it. Both are clean and
// absolute.
func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if dir == string(filepath.Separator) {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// StatePath resolves only the state file location. Commands that edit
// patterns use it so they work without a mount point.
func StatePath(cfg Config) (string, error) {
	root := orDefault(cfg.Root, DefaultRoot)
	abs, err := filepath.Abs(expandHome(orDefault(cfg.StateFile, filepath.Join(root, StateFileName))))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return abs, nil
}

// HumanRotateSize formats the rotation threshold for display.
func (s Settings) HumanRotateSize() string {
	return units.HumanSize(float64(s.RotateSize))
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
