//go:build linux

package fuse

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/deep-compute/logaggfs/internal/capture"
)

// AccessMode is the read/write mode a file was opened with.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "r"
	case WriteOnly:
		return "w"
	case ReadWrite:
		return "rw"
	}
	return fmt.Sprintf("AccessMode(%d)", int(m))
}

// accessMode derives the access mode and append flag from open flags.
func accessMode(flags uint32) (AccessMode, bool) {
	appendMode := flags&syscall.O_APPEND != 0
	switch flags & syscall.O_ACCMODE {
	case syscall.O_WRONLY:
		return WriteOnly, appendMode
	case syscall.O_RDWR:
		return ReadWrite, appendMode
	}
	return ReadOnly, appendMode
}

// FileHandle is one open instance of a virtual file. The capture sink, if
// any, is bound at open time and never changes.
type FileHandle struct {
	fs     *FS
	path   string
	fd     int
	mode   AccessMode
	append bool
	sink   *capture.Sink

	// mu guards fd against shutdown closing it under an in-flight call.
	mu       sync.Mutex
	released bool
}

var _ = (gofuse.FileReader)((*FileHandle)(nil))
var _ = (gofuse.FileWriter)((*FileHandle)(nil))
var _ = (gofuse.FileReleaser)((*FileHandle)(nil))
var _ = (gofuse.FileFlusher)((*FileHandle)(nil))
var _ = (gofuse.FileFsyncer)((*FileHandle)(nil))
var _ = (gofuse.FileGetattrer)((*FileHandle)(nil))
var _ = (gofuse.FileSetattrer)((*FileHandle)(nil))
var _ = (gofuse.FileGetlker)((*FileHandle)(nil))
var _ = (gofuse.FileSetlker)((*FileHandle)(nil))
var _ = (gofuse.FileSetlkwer)((*FileHandle)(nil))

// Path returns the virtual path the handle was opened with.
func (fh *FileHandle) Path() string { return fh.path }

// Mode returns the access mode.
func (fh *FileHandle) Mode() AccessMode { return fh.mode }

// Append reports whether the file was opened with O_APPEND.
func (fh *FileHandle) Append() bool { return fh.append }

// Captured reports whether writes through this handle are captured.
func (fh *FileHandle) Captured() bool { return fh.sink != nil }

// Sink returns the bound capture sink, or nil.
func (fh *FileHandle) Sink() *capture.Sink { return fh.sink }

// Read reads up to len(dest) bytes at off.
func (fh *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return nil, syscall.EBADF
	}
	n, err := syscall.Pread(fh.fd, dest, off)
	if err != nil {
		fh.fs.trace.OpErr("read", err, "path", fh.path, "off", off)
		return nil, toErrno(err)
	}
	fh.fs.trace.Op("read", "path", fh.path, "off", off, "len", n)
	return fuse.ReadResultData(dest[:n]), 0
}

// Write writes data at off on the real file, then forwards the bytes that
// were written to the capture sink. A capture failure is logged and counted;
// the real write still succeeds unless the filesystem is fail-closed.
func (fh *FileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return 0, syscall.EBADF
	}

	n, err := syscall.Pwrite(fh.fd, data, off)
	if err != nil {
		fh.fs.trace.OpErr("write", err, "path", fh.path, "off", off)
		return 0, toErrno(err)
	}
	fh.fs.trace.Op("write", "path", fh.path, "off", off, "len", n)

	if fh.sink != nil && n > 0 {
		if err := fh.sink.Append(data[:n]); err != nil {
			fh.fs.captureFailed(fh, err)
			if fh.fs.cfg.FailClosed {
				return 0, syscall.EIO
			}
		} else {
			fh.fs.captured(n)
		}
	}
	return uint32(n), 0
}

// Release closes the descriptor and the capture sink.
func (fh *FileHandle) Release(ctx context.Context) syscall.Errno {
	fh.fs.forget(fh)
	return toErrno(fh.close())
}

// close releases the descriptor and sink once. It is shared by Release and
// filesystem shutdown.
func (fh *FileHandle) close() error {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return nil
	}
	fh.released = true

	var sinkErr error
	if fh.sink != nil {
		if sinkErr = fh.sink.Close(); sinkErr != nil {
			fh.fs.log.Exception("sink_close_failed", sinkErr, "path", fh.path, "segment", fh.sink.Segment())
		}
		fh.fs.trace.Capture("capture_closed", "path", fh.path, "segments", fh.sink.Segments())
	}
	err := syscall.Close(fh.fd)
	fh.fs.trace.Op("release", "path", fh.path)
	return err
}

// Flush duplicates and closes the fd so delayed write errors surface on
// close(2) of the caller.
func (fh *FileHandle) Flush(ctx context.Context) syscall.Errno {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return syscall.EBADF
	}
	newFd, err := syscall.Dup(fh.fd)
	if err != nil {
		return toErrno(err)
	}
	fh.fs.trace.Op("flush", "path", fh.path)
	return toErrno(syscall.Close(newFd))
}

// Fsync syncs file data to disk. Bit 0 of flags requests a data-only sync.
func (fh *FileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return syscall.EBADF
	}
	var err error
	if flags&1 != 0 {
		err = unix.Fdatasync(fh.fd)
	} else {
		err = syscall.Fsync(fh.fd)
	}
	fh.fs.trace.Op("fsync", "path", fh.path, "datasync", flags&1 != 0)
	return toErrno(err)
}

// Getattr returns file attributes from the descriptor.
func (fh *FileHandle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return syscall.EBADF
	}
	var st syscall.Stat_t
	if err := syscall.Fstat(fh.fd, &st); err != nil {
		return toErrno(err)
	}
	out.Attr.FromStat(&st)
	return 0
}

// Setattr applies mode, ownership, size and time changes through the
// descriptor.
func (fh *FileHandle) Setattr(ctx context.Context, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if errno := fh.setattr(in); errno != 0 {
		return errno
	}
	return fh.Getattr(ctx, out)
}

func (fh *FileHandle) setattr(in *fuse.SetAttrIn) syscall.Errno {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return syscall.EBADF
	}
	if mode, ok := in.GetMode(); ok {
		if err := syscall.Fchmod(fh.fd, mode); err != nil {
			return toErrno(err)
		}
	}
	uid, uok := in.GetUID()
	gid, gok := in.GetGID()
	if uok || gok {
		u, g := -1, -1
		if uok {
			u = int(uid)
		}
		if gok {
			g = int(gid)
		}
		if err := syscall.Fchown(fh.fd, u, g); err != nil {
			return toErrno(err)
		}
	}
	if size, ok := in.GetSize(); ok {
		if err := fh.truncateLocked(int64(size)); err != nil {
			return toErrno(err)
		}
	}
	atime, aok := in.GetATime()
	mtime, mok := in.GetMTime()
	if aok || mok {
		var ap, mp *time.Time
		if aok {
			ap = &atime
		}
		if mok {
			mp = &mtime
		}
		ts := []unix.Timespec{timespec(ap), timespec(mp)}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, fmt.Sprintf("/proc/self/fd/%d", fh.fd), ts, 0); err != nil {
			return toErrno(err)
		}
	}
	return 0
}

// Truncate resizes the file through the open descriptor.
func (fh *FileHandle) Truncate(size int64) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.released {
		return syscall.EBADF
	}
	return fh.truncateLocked(size)
}

func (fh *FileHandle) truncateLocked(size int64) error {
	fh.fs.trace.Op("ftruncate", "path", fh.path, "size", size)
	return syscall.Ftruncate(fh.fd, size)
}

// Getlk is not supported: querying a lock reports ENOTSUP.
func (fh *FileHandle) Getlk(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32, out *fuse.FileLock) syscall.Errno {
	return toErrno(ErrUnsupported)
}

// Setlk acquires or releases a lock without waiting.
func (fh *FileHandle) Setlk(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32) syscall.Errno {
	return fh.setLock(lk, flags, false)
}

// Setlkw acquires a lock, waiting until it is available.
func (fh *FileHandle) Setlkw(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32) syscall.Errno {
	return fh.setLock(lk, flags, true)
}

// setLock checks the handle under mu but issues the lock without it: a
// blocking lock would otherwise stall every other call on the handle,
// including the unlock that frees it.
func (fh *FileHandle) setLock(lk *fuse.FileLock, flags uint32, blocking bool) syscall.Errno {
	fh.mu.Lock()
	released := fh.released
	fh.mu.Unlock()
	if released {
		return syscall.EBADF
	}
	fh.fs.trace.Op("lock", "path", fh.path, "type", lk.Typ, "blocking", blocking)
	if flags&fuse.FUSE_LK_FLOCK != 0 {
		var op int
		switch lk.Typ {
		case syscall.F_RDLCK:
			op = syscall.LOCK_SH
		case syscall.F_WRLCK:
			op = syscall.LOCK_EX
		case syscall.F_UNLCK:
			op = syscall.LOCK_UN
		default:
			return syscall.EINVAL
		}
		if !blocking {
			op |= syscall.LOCK_NB
		}
		return toErrno(syscall.Flock(fh.fd, op))
	}

	flk := syscall.Flock_t{}
	lk.ToFlockT(&flk)
	cmd := unix.F_OFD_SETLK
	if blocking {
		cmd = unix.F_OFD_SETLKW
	}
	return toErrno(syscall.FcntlFlock(uintptr(fh.fd), cmd, &flk))
}
