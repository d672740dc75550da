package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/log"
	"github.com/deep-compute/logaggfs/internal/tracker"
)

// execute runs the root command with args and returns its log output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	log.SetOutput(&out, &out)
	t.Cleanup(func() { log.SetOutput(os.Stdout, os.Stderr) })

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTrackCommands(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "trackfiles.txt")
	common := []string{"--root", dir, "--state-file", state}

	out, err := execute(t, append([]string{"track", "add", "/mnt/logs/*.log", "/mnt/logs/app/*.log"}, common...)...)
	if err != nil {
		t.Fatalf("track add: %v", err)
	}
	if !strings.Contains(out, "Tracking: /mnt/logs/*.log") {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, append([]string{"track", "add", "/mnt/logs/*.log"}, common...)...)
	if err != nil || !strings.Contains(out, "Already tracked") {
		t.Errorf("second add: %v %q", err, out)
	}

	if _, err := execute(t, append([]string{"track", "rm", "/mnt/logs/*.log"}, common...)...); err != nil {
		t.Fatalf("track rm: %v", err)
	}
	patterns, err := tracker.ReadPatterns(state)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 || patterns[0] != "/mnt/logs/app/*.log" {
		t.Errorf("patterns = %v", patterns)
	}

	out, err = execute(t, append([]string{"track", "list"}, common...)...)
	if err != nil || !strings.Contains(out, "/mnt/logs/app/*.log") {
		t.Errorf("list: %v %q", err, out)
	}
}

func TestTrackAddRelativePattern(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "trackfiles.txt")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if _, err := execute(t, "track", "add", "app/*.log", "--root", dir, "--state-file", state); err != nil {
		t.Fatal(err)
	}
	patterns, _ := tracker.ReadPatterns(state)
	want := filepath.Join(dir, "app", "*.log")
	if len(patterns) != 1 || patterns[0] != want {
		t.Errorf("patterns = %v, want [%s]", patterns, want)
	}
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "cache")
	mount := filepath.Join(dir, "mnt")
	tracked := filepath.Join(mount, "app", "access.log")

	mirrored := filepath.Join(root, "mirror", "app", "access.log")
	if err := os.MkdirAll(filepath.Dir(mirrored), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mirrored, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	captureDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(captureDir, 0o755); err != nil {
		t.Fatal(err)
	}
	seg := capture.SegmentName(capture.Token(tracked), time.Now(), 0)
	if err := os.WriteFile(filepath.Join(captureDir, seg), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	state := filepath.Join(root, "trackfiles.txt")
	if err := os.WriteFile(state, []byte(filepath.Join(mount, "app", "*.log")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "status", mount, "--root", root, "--state-file", state, "-v")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{tracked, "1 segment, 6B", seg, "1 patterns, 1 tracked files"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
