package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxDisambiguator bounds the search for a free segment name.
const maxDisambiguator = 9999

// Segment describes one rotation segment file.
type Segment struct {
	Name    string
	Token   string
	Created time.Time
	// Seq is the disambiguator; zero when the name has none.
	Seq  int
	Size int64
}

// SegmentName formats a segment file name.
func SegmentName(token string, created time.Time, seq int) string {
	name := token + "." + strconv.FormatInt(created.UnixMicro(), 10)
	if seq > 0 {
		name += "." + strconv.Itoa(seq)
	}
	return name
}

// ParseSegmentName splits a segment file name into its parts. ok is false for
// names that are not segment names.
func ParseSegmentName(name string) (seg Segment, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 || len(parts) > 3 || !isToken(parts[0]) {
		return Segment{}, false
	}
	micros, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || micros < 0 {
		return Segment{}, false
	}
	seg = Segment{
		Name:    name,
		Token:   parts[0],
		Created: time.UnixMicro(micros).UTC(),
	}
	if len(parts) == 3 {
		seq, err := strconv.Atoi(parts[2])
		if err != nil || seq <= 0 {
			return Segment{}, false
		}
		seg.Seq = seq
	}
	return seg, true
}

func isToken(s string) bool {
	if len(s) != TokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ListSegments returns the segments in dir ordered by token, creation time
// and disambiguator. Files that are not segments are skipped.
func ListSegments(dir string) ([]Segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing capture directory %s: %w", dir, err)
	}

	segments := make([]Segment, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		seg, ok := ParseSegmentName(entry.Name())
		if !ok {
			continue
		}
		if info, err := entry.Info(); err == nil {
			seg.Size = info.Size()
		}
		segments = append(segments, seg)
	}
	SortSegments(segments)
	return segments, nil
}

// SortSegments orders segments by token, then creation time, then
// disambiguator.
func SortSegments(segments []Segment) {
	sort.Slice(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if a.Token != b.Token {
			return a.Token < b.Token
		}
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		return a.Seq < b.Seq
	})
}

// SegmentsFor filters an ordered listing down to one token.
func SegmentsFor(segments []Segment, token string) []Segment {
	var out []Segment
	for _, seg := range segments {
		if seg.Token == token {
			out = append(out, seg)
		}
	}
	return out
}

// createSegment exclusively creates the first free segment name for token at
// created and returns the open file with its name.
func createSegment(dir, token string, created time.Time) (*os.File, string, error) {
	for seq := 0; seq <= maxDisambiguator; seq++ {
		name := SegmentName(token, created, seq)
		file, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
		if err == nil {
			return file, name, nil
		}
		if !os.IsExist(err) {
			return nil, name, err
		}
	}
	return nil, "", fmt.Errorf("no free segment name for %s at %d", token, created.UnixMicro())
}
