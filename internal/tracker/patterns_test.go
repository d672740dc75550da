package tracker

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "/var/app/*.log\n", []string{"/var/app/*.log"}},
		{"no trailing newline", "/a\n/b", []string{"/a", "/b"}},
		{"comments and blanks", "# header\n\n/a\n   \n  # indented\n", []string{"/a"}},
		{"trimmed", "\t/a  \n", []string{"/a"}},
		{"nfc", "/logs/café.log\n", []string{"/logs/café.log"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePatterns([]byte(tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePatterns(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddRemovePattern(t *testing.T) {
	state := filepath.Join(t.TempDir(), "trackfiles.txt")

	added, err := AddPattern(state, "/var/app/*.log")
	if err != nil || !added {
		t.Fatalf("AddPattern on missing file = %v, %v", added, err)
	}
	added, err = AddPattern(state, "  /var/app/*.log ")
	if err != nil || added {
		t.Fatalf("duplicate AddPattern = %v, %v", added, err)
	}
	if _, err := AddPattern(state, "/srv/*.out"); err != nil {
		t.Fatal(err)
	}

	got, err := ReadPatterns(state)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/var/app/*.log", "/srv/*.out"}; !reflect.DeepEqual(got, want) {
		t.Errorf("patterns = %q, want %q", got, want)
	}

	removed, err := RemovePattern(state, "/var/app/*.log")
	if err != nil || !removed {
		t.Fatalf("RemovePattern = %v, %v", removed, err)
	}
	removed, err = RemovePattern(state, "/var/app/*.log")
	if err != nil || removed {
		t.Fatalf("second RemovePattern = %v, %v", removed, err)
	}
	got, _ = ReadPatterns(state)
	if want := []string{"/srv/*.out"}; !reflect.DeepEqual(got, want) {
		t.Errorf("patterns = %q, want %q", got, want)
	}
}

func TestRemovePatternKeepsComments(t *testing.T) {
	state := filepath.Join(t.TempDir(), "trackfiles.txt")
	if err := os.WriteFile(state, []byte("# keep me\n/a\n/b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := RemovePattern(state, "/a"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(state)
	if string(data) != "# keep me\n/b\n" {
		t.Errorf("state file = %q", data)
	}
}

func TestAddPatternRejects(t *testing.T) {
	state := filepath.Join(t.TempDir(), "trackfiles.txt")
	for _, p := range []string{"", "   ", "relative/*.log", "/bad/[.log"} {
		if _, err := AddPattern(state, p); err == nil {
			t.Errorf("AddPattern(%q) succeeded", p)
		}
	}
	if _, err := os.Stat(state); !os.IsNotExist(err) {
		t.Error("rejected patterns created the state file")
	}
}
