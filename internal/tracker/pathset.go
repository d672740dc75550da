package tracker

import (
	"path/filepath"
	"sort"
)

// PathSet is an immutable snapshot of the tracked virtual paths and the
// patterns they were expanded from.
type PathSet struct {
	paths    map[string]struct{}
	patterns []string
}

var emptySet = &PathSet{paths: map[string]struct{}{}}

func newPathSet(patterns []string, matches []string) *PathSet {
	set := &PathSet{
		paths:    make(map[string]struct{}, len(matches)),
		patterns: append([]string(nil), patterns...),
	}
	for _, m := range matches {
		set.paths[filepath.Clean(m)] = struct{}{}
	}
	return set
}

// Contains reports whether path was matched by the last expansion, or matches
// one of its patterns. The pattern check covers files created since the
// expansion ran.
func (s *PathSet) Contains(path string) bool {
	path = filepath.Clean(path)
	if _, ok := s.paths[path]; ok {
		return true
	}
	for _, p := range s.patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Len returns the number of expanded paths.
func (s *PathSet) Len() int { return len(s.paths) }

// Paths returns the expanded paths in lexical order.
func (s *PathSet) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Patterns returns the patterns the set was built from.
func (s *PathSet) Patterns() []string {
	return append([]string(nil), s.patterns...)
}
