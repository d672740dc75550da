//go:build linux

package fuse

import (
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"golang.org/x/sys/unix"
)

// MaxPathLen bounds readlink results.
const MaxPathLen = 4096

// Passthrough forwards path operations to the mirror. Every method takes
// virtual paths and returns the OS error unchanged.
type Passthrough struct {
	m Mapper
}

// NewPassthrough returns the path operations for m.
func NewPassthrough(m Mapper) *Passthrough {
	return &Passthrough{m: m}
}

// Mapper returns the path mapper.
func (p *Passthrough) Mapper() Mapper { return p.m }

// Lstat stats the path without following a final symlink.
func (p *Passthrough) Lstat(path string) (syscall.Stat_t, error) {
	var st syscall.Stat_t
	err := syscall.Lstat(p.m.Real(path), &st)
	return st, err
}

// Readlink returns the link target as seen from inside the mount.
func (p *Passthrough) Readlink(path string) (string, error) {
	buf := make([]byte, MaxPathLen)
	n, err := syscall.Readlink(p.m.Real(path), buf)
	if err != nil {
		return "", err
	}
	return p.m.UnmapSymlinkTarget(string(buf[:n])), nil
}

// ReadDir returns a fresh lazy enumeration of the directory. Nothing is
// kept between calls.
func (p *Passthrough) ReadDir(path string) (gofuse.DirStream, error) {
	ds, errno := gofuse.NewLoopbackDirStream(p.m.Real(path))
	if errno != 0 {
		return nil, errno
	}
	return ds, nil
}

// Unlink removes a file.
func (p *Passthrough) Unlink(path string) error {
	return syscall.Unlink(p.m.Real(path))
}

// Rmdir removes an empty directory.
func (p *Passthrough) Rmdir(path string) error {
	return syscall.Rmdir(p.m.Real(path))
}

// Symlink creates path pointing at target.
func (p *Passthrough) Symlink(target, path string) error {
	return syscall.Symlink(p.m.SymlinkTarget(target), p.m.Real(path))
}

// Rename moves oldPath to newPath. Non-zero flags (RENAME_NOREPLACE,
// RENAME_EXCHANGE) go through renameat2.
func (p *Passthrough) Rename(oldPath, newPath string, flags uint32) error {
	if flags == 0 {
		return syscall.Rename(p.m.Real(oldPath), p.m.Real(newPath))
	}
	return unix.Renameat2(unix.AT_FDCWD, p.m.Real(oldPath), unix.AT_FDCWD, p.m.Real(newPath), uint(flags))
}

// Link creates a hard link newPath to oldPath.
func (p *Passthrough) Link(oldPath, newPath string) error {
	return syscall.Link(p.m.Real(oldPath), p.m.Real(newPath))
}

// Chmod changes permission bits.
func (p *Passthrough) Chmod(path string, mode uint32) error {
	return syscall.Chmod(p.m.Real(path), mode)
}

// Chown changes ownership without following a final symlink. -1 leaves an
// id unchanged.
func (p *Passthrough) Chown(path string, uid, gid int) error {
	return syscall.Lchown(p.m.Real(path), uid, gid)
}

// Truncate resizes a file that has no open handle. The file is opened for
// append, truncated and closed.
func (p *Passthrough) Truncate(path string, size int64) error {
	fd, err := syscall.Open(p.m.Real(path), syscall.O_WRONLY|syscall.O_APPEND, 0)
	if err != nil {
		return err
	}
	defer syscall.Close(fd)
	return syscall.Ftruncate(fd, size)
}

// Mknod creates a filesystem node.
func (p *Passthrough) Mknod(path string, mode, dev uint32) error {
	return unix.Mknod(p.m.Real(path), mode, int(dev))
}

// Mkdir creates a directory.
func (p *Passthrough) Mkdir(path string, mode uint32) error {
	return syscall.Mkdir(p.m.Real(path), mode)
}

// Utimens sets access and modification times. A nil time is left as it is.
func (p *Passthrough) Utimens(path string, atime, mtime *time.Time) error {
	ts := []unix.Timespec{timespec(atime), timespec(mtime)}
	return unix.UtimesNanoAt(unix.AT_FDCWD, p.m.Real(path), ts, unix.AT_SYMLINK_NOFOLLOW)
}

// Access checks the caller's permission on path.
func (p *Passthrough) Access(path string, mask uint32) error {
	return syscall.Access(p.m.Real(path), mask)
}

// Statfs returns statistics of the filesystem backing the mirror.
func (p *Passthrough) Statfs(path string) (syscall.Statfs_t, error) {
	var st syscall.Statfs_t
	err := syscall.Statfs(p.m.Real(path), &st)
	return st, err
}

// Open opens the backing file and returns its descriptor.
func (p *Passthrough) Open(path string, flags int, mode uint32) (int, error) {
	return syscall.Open(p.m.Real(path), flags|syscall.O_CLOEXEC, mode)
}

func timespec(t *time.Time) unix.Timespec {
	if t == nil {
		return unix.Timespec{Sec: 0, Nsec: unix.UTIME_OMIT}
	}
	return unix.NsecToTimespec(t.UnixNano())
}
