package tracker

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParsePatterns extracts the glob patterns from state file content. Blank
// lines and lines starting with '#' are skipped; surrounding whitespace is
// trimmed and patterns are NFC-normalised.
func ParsePatterns(data []byte) []string {
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, norm.NFC.String(line))
	}
	return patterns
}

// ReadPatterns reads and parses the state file.
func ReadPatterns(stateFile string) ([]string, error) {
	data, err := os.ReadFile(stateFile)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	return ParsePatterns(data), nil
}

// AddPattern appends pattern to the state file unless it is already listed.
// A missing state file is created.
func AddPattern(stateFile, pattern string) (bool, error) {
	pattern = norm.NFC.String(strings.TrimSpace(pattern))
	if err := validatePattern(pattern); err != nil {
		return false, err
	}
	lines, err := readLines(stateFile)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading state file: %w", err)
	}
	for _, line := range lines {
		if norm.NFC.String(strings.TrimSpace(line)) == pattern {
			return false, nil
		}
	}
	lines = append(lines, pattern)
	if err := writeLines(stateFile, lines); err != nil {
		return false, err
	}
	return true, nil
}

// RemovePattern drops every line equal to pattern. Comments and other
// patterns are kept as written.
func RemovePattern(stateFile, pattern string) (bool, error) {
	pattern = norm.NFC.String(strings.TrimSpace(pattern))
	lines, err := readLines(stateFile)
	if err != nil {
		return false, fmt.Errorf("reading state file: %w", err)
	}
	kept := lines[:0]
	removed := false
	for _, line := range lines {
		if norm.NFC.String(strings.TrimSpace(line)) == pattern {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return false, nil
	}
	if err := writeLines(stateFile, kept); err != nil {
		return false, err
	}
	return true, nil
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	if !filepath.IsAbs(pattern) {
		return fmt.Errorf("pattern %q is not an absolute path", pattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// writeLines replaces path atomically: the content goes to a temp file in the
// same directory which is then renamed over the original.
func writeLines(path string, lines []string) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
