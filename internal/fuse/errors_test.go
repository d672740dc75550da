package fuse

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/config"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"enoent", syscall.ENOENT, NotFound},
		{"path error", &os.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, PermissionDenied},
		{"eperm", syscall.EPERM, PermissionDenied},
		{"eexist", syscall.EEXIST, AlreadyExists},
		{"enotdir", syscall.ENOTDIR, NotADirectory},
		{"eisdir", syscall.EISDIR, IsADirectory},
		{"eio", syscall.EIO, IOError},
		{"unsupported", fmt.Errorf("getlk: %w", ErrUnsupported), UnsupportedOperation},
		{"capture", fmt.Errorf("%w: disk: %w", capture.ErrCaptureWrite, syscall.ENOSPC), CaptureWriteError},
		{"configuration", fmt.Errorf("%w: mirror", config.ErrConfiguration), ConfigurationError},
		{"fs sentinel", fmt.Errorf("wrapped: %w", os.ErrNotExist), NotFound},
		{"opaque", errors.New("something"), IOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestToErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"errno", syscall.EXDEV, syscall.EXDEV},
		{"wrapped errno", fmt.Errorf("rename: %w", syscall.ENOTEMPTY), syscall.ENOTEMPTY},
		{"path error", &os.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}, syscall.ENOENT},
		{"unsupported", ErrUnsupported, syscall.ENOTSUP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toErrno(tt.err); got != tt.want {
				t.Errorf("toErrno(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
