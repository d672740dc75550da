package fuse

import (
	"errors"
	"io/fs"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"

	"github.com/deep-compute/logaggfs/internal/capture"
	"github.com/deep-compute/logaggfs/internal/config"
)

// ErrUnsupported is returned for operations the filesystem refuses, such as
// querying a lock. It reaches the caller as ENOTSUP.
var ErrUnsupported = errors.New("operation not supported")

// Kind classifies an error for logging and for operators.
type Kind int

const (
	KindNone Kind = iota
	NotFound
	PermissionDenied
	AlreadyExists
	NotADirectory
	IsADirectory
	IOError
	UnsupportedOperation
	ConfigurationError
	CaptureWriteError
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	NotFound:             "not_found",
	PermissionDenied:     "permission_denied",
	AlreadyExists:        "already_exists",
	NotADirectory:        "not_a_directory",
	IsADirectory:         "is_a_directory",
	IOError:              "io_error",
	UnsupportedOperation: "unsupported",
	ConfigurationError:   "configuration",
	CaptureWriteError:    "capture_write",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf maps err onto the error taxonomy. Sentinels are checked before the
// underlying errno, so a capture failure caused by ENOSPC is still a
// CaptureWriteError.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, capture.ErrCaptureWrite):
		return CaptureWriteError
	case errors.Is(err, config.ErrConfiguration):
		return ConfigurationError
	case errors.Is(err, ErrUnsupported):
		return UnsupportedOperation
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			return NotFound
		case syscall.EACCES, syscall.EPERM:
			return PermissionDenied
		case syscall.EEXIST:
			return AlreadyExists
		case syscall.ENOTDIR:
			return NotADirectory
		case syscall.EISDIR:
			return IsADirectory
		case syscall.ENOTSUP, syscall.ENOSYS:
			return UnsupportedOperation
		}
		return IOError
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	}
	return IOError
}

// toErrno converts an error from the passthrough layer into the errno
// returned to the kernel. OS errors pass through unchanged.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrUnsupported) {
		return syscall.ENOTSUP
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return gofuse.ToErrno(err)
}
