package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deep-compute/logaggfs/internal/log"
)

// GlobalConfigPath is the system-wide config file.
const GlobalConfigPath = "/etc/logaggfs/config.yaml"

// userConfigPath returns the per-user config file path (~/.logaggfs/config.yaml).
func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".logaggfs", "config.yaml")
}

// LoadConfig loads and merges logaggfs configuration.
//
// Precedence (later overrides earlier):
//  1. Global config (/etc/logaggfs/config.yaml)
//  2. User config (~/.logaggfs/config.yaml)
//  3. The explicit file, if given
//
// Missing or unparsable global and user files are skipped. The explicit file
// must exist and parse. CLI flags should be applied on top of the returned
// config by the caller.
func LoadConfig(explicit string) (Config, error) {
	configs := []*Config{
		loadOptionalConfig(GlobalConfigPath),
		loadOptionalConfig(userConfigPath()),
	}
	if explicit != "" {
		cfg, err := loadConfigFile(explicit)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		log.Debugf("Loaded config: %s", explicit)
		configs = append(configs, cfg)
	}
	return mergeConfigs(configs...), nil
}

func loadOptionalConfig(path string) *Config {
	if path == "" {
		return nil
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debugf("Skipping config %s: %v", path, err)
		}
		return nil
	}
	log.Debugf("Loaded config: %s", path)
	return cfg
}

// loadConfigFile reads and parses a single config file using yaml.v3.
// Unknown keys are rejected so typos do not go unnoticed.
func loadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeConfigs merges multiple configs with later values taking precedence.
// nil configs are skipped.
func mergeConfigs(configs ...*Config) Config {
	result := Config{}

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}

		if cfg.MountPoint != "" {
			result.MountPoint = cfg.MountPoint
		}
		if cfg.Root != "" {
			result.Root = cfg.Root
		}
		if cfg.MirrorDir != "" {
			result.MirrorDir = cfg.MirrorDir
		}
		if cfg.CaptureDir != "" {
			result.CaptureDir = cfg.CaptureDir
		}
		if cfg.StateFile != "" {
			result.StateFile = cfg.StateFile
		}
		if cfg.RotateSize != "" {
			result.RotateSize = cfg.RotateSize
		}
		if cfg.RefreshInterval != "" {
			result.RefreshInterval = cfg.RefreshInterval
		}
		if cfg.FailClosed != nil {
			result.FailClosed = cfg.FailClosed
		}
		if cfg.AllowOther != nil {
			result.AllowOther = cfg.AllowOther
		}
		if cfg.LogLevel != "" {
			result.LogLevel = cfg.LogLevel
		}
		if cfg.LogFile != "" {
			result.LogFile = cfg.LogFile
		}
		if cfg.Debug > 0 {
			result.Debug = cfg.Debug
		}
	}

	return result
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
