package config

import (
	"fmt"
	"os"
)

// Prepare creates the cache root, mirror and capture directories and the
// mount point, and touches the state file if it does not exist. Existing
// content is left alone.
func Prepare(s Settings) error {
	for _, dir := range []string{s.Root, s.MirrorDir, s.CaptureDir, s.MountPoint} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %w", ErrConfiguration, dir, err)
		}
	}
	f, err := os.OpenFile(s.StateFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating state file: %w", ErrConfiguration, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: creating state file: %w", ErrConfiguration, err)
	}
	return nil
}
