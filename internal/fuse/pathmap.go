package fuse

import (
	"path/filepath"
	"strings"
)

// Mapper translates between virtual paths (rooted at "/" inside the mount),
// their real location under the mirror directory, and the absolute path a
// producer sees through the mount point.
type Mapper struct {
	MountPoint string
	MirrorDir  string
}

// Real maps a virtual path to its backing path.
func (m Mapper) Real(virtual string) string {
	return m.MirrorDir + cleanVirtual(virtual)
}

// Absolute returns the path as seen through the mount point.
func (m Mapper) Absolute(virtual string) string {
	return m.MountPoint + cleanVirtual(virtual)
}

// SymlinkTarget rewrites an absolute link target into the mirror. Relative
// targets resolve the same way on both sides and are kept.
func (m Mapper) SymlinkTarget(target string) string {
	if !filepath.IsAbs(target) {
		return target
	}
	return m.MirrorDir + target
}

// UnmapSymlinkTarget reverses SymlinkTarget for readlink.
func (m Mapper) UnmapSymlinkTarget(target string) string {
	if rest, ok := cutDir(target, m.MirrorDir); ok {
		return rest
	}
	return target
}

// Glob expands a pattern written against the mount point by globbing the
// mirror directly, so the tracker never reads through the mount it serves.
// Matches are returned as mount point paths. Patterns outside the mount are
// globbed as they are.
func (m Mapper) Glob(pattern string) ([]string, error) {
	rest, ok := cutDir(filepath.Clean(pattern), m.MountPoint)
	if !ok {
		return filepath.Glob(pattern)
	}
	matches, err := filepath.Glob(m.MirrorDir + rest)
	if err != nil {
		return nil, err
	}
	for i, match := range matches {
		if virtual, ok := cutDir(match, m.MirrorDir); ok {
			matches[i] = m.MountPoint + virtual
		}
	}
	return matches, nil
}

// cutDir strips dir from path when path is dir or lies beneath it, returning
// the remainder as a rooted virtual path.
func cutDir(path, dir string) (string, bool) {
	if path == dir {
		return "/", true
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	if strings.HasPrefix(path, prefix) {
		return path[len(prefix)-1:], true
	}
	return "", false
}

func cleanVirtual(virtual string) string {
	p := filepath.Clean("/" + virtual)
	if p == "/" {
		return ""
	}
	return p
}
