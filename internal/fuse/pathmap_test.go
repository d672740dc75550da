package fuse

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMapperReal(t *testing.T) {
	m := Mapper{MountPoint: "/mnt/logs", MirrorDir: "/var/cache/logaggfs/mirror"}

	tests := []struct {
		name    string
		virtual string
		want    string
	}{
		{"root", "/", "/var/cache/logaggfs/mirror"},
		{"empty", "", "/var/cache/logaggfs/mirror"},
		{"file", "/app/access.log", "/var/cache/logaggfs/mirror/app/access.log"},
		{"no leading slash", "app/x", "/var/cache/logaggfs/mirror/app/x"},
		{"dotdot cannot escape", "/../../etc/passwd", "/var/cache/logaggfs/mirror/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Real(tt.virtual); got != tt.want {
				t.Errorf("Real(%q) = %q, want %q", tt.virtual, got, tt.want)
			}
		})
	}
	if got := m.Absolute("/app/access.log"); got != "/mnt/logs/app/access.log" {
		t.Errorf("Absolute = %q", got)
	}
}

func TestMapperSymlinkTarget(t *testing.T) {
	m := Mapper{MountPoint: "/mnt", MirrorDir: "/cache/mirror"}

	tests := []struct {
		target string
		mapped string
	}{
		{"../sibling", "../sibling"},
		{"plain", "plain"},
		{"/etc/hosts", "/cache/mirror/etc/hosts"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			mapped := m.SymlinkTarget(tt.target)
			if mapped != tt.mapped {
				t.Errorf("SymlinkTarget(%q) = %q, want %q", tt.target, mapped, tt.mapped)
			}
			if back := m.UnmapSymlinkTarget(mapped); back != tt.target {
				t.Errorf("UnmapSymlinkTarget(%q) = %q, want %q", mapped, back, tt.target)
			}
		})
	}
	if got := m.UnmapSymlinkTarget("/cache/mirrorX/a"); got != "/cache/mirrorX/a" {
		t.Errorf("prefix match without separator was stripped: %q", got)
	}
}

func TestMapperGlob(t *testing.T) {
	root := t.TempDir()
	m := Mapper{MountPoint: "/mnt/logs", MirrorDir: filepath.Join(root, "mirror")}
	for _, name := range []string{"app/access.log", "app/error.log", "app/readme"} {
		p := filepath.Join(m.MirrorDir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.Glob("/mnt/logs/app/*.log")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/mnt/logs/app/access.log", "/mnt/logs/app/error.log"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Glob = %q, want %q", got, want)
	}

	outside := filepath.Join(m.MirrorDir, "app", "*.log")
	got, err = m.Glob(outside)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || filepath.Dir(got[0]) != filepath.Join(m.MirrorDir, "app") {
		t.Errorf("Glob outside the mount = %q", got)
	}
}
