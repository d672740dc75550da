//go:build linux

package fuse

import (
	"context"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Node is a directory entry of the virtual tree. It holds no state beyond
// its position; every call resolves the path and forwards to the mirror.
type Node struct {
	gofuse.Inode
	fs *FS
}

var _ = (gofuse.NodeLookuper)((*Node)(nil))
var _ = (gofuse.NodeGetattrer)((*Node)(nil))
var _ = (gofuse.NodeReaddirer)((*Node)(nil))
var _ = (gofuse.NodeOpener)((*Node)(nil))
var _ = (gofuse.NodeCreater)((*Node)(nil))
var _ = (gofuse.NodeMkdirer)((*Node)(nil))
var _ = (gofuse.NodeMknoder)((*Node)(nil))
var _ = (gofuse.NodeUnlinker)((*Node)(nil))
var _ = (gofuse.NodeRmdirer)((*Node)(nil))
var _ = (gofuse.NodeRenamer)((*Node)(nil))
var _ = (gofuse.NodeSymlinker)((*Node)(nil))
var _ = (gofuse.NodeReadlinker)((*Node)(nil))
var _ = (gofuse.NodeLinker)((*Node)(nil))
var _ = (gofuse.NodeSetattrer)((*Node)(nil))
var _ = (gofuse.NodeStatfser)((*Node)(nil))
var _ = (gofuse.NodeAccesser)((*Node)(nil))

// virtualPath returns the path of the child name, or of n itself when name
// is empty.
func (n *Node) virtualPath(name string) string {
	p := "/" + n.Path(n.Root())
	if name == "" {
		return p
	}
	if p == "/" {
		return "/" + name
	}
	return p + "/" + name
}

func (n *Node) newChild(ctx context.Context, st *syscall.Stat_t) *gofuse.Inode {
	child := &Node{fs: n.fs}
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: st.Mode & syscall.S_IFMT, Ino: st.Ino})
}

// entry stats a freshly created path and fills out.
func (n *Node) entry(ctx context.Context, path string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	st, err := n.fs.ops.Lstat(path)
	if err != nil {
		return nil, toErrno(err)
	}
	out.Attr.FromStat(&st)
	return n.newChild(ctx, &st), 0
}

// chownToCaller hands a new entry to the calling user. Failure is ignored:
// an unprivileged server cannot chown and the entry keeps its owner.
func (n *Node) chownToCaller(ctx context.Context, path string) {
	if caller, ok := fuse.FromContext(ctx); ok && caller != nil {
		_ = n.fs.ops.Chown(path, int(caller.Uid), int(caller.Gid))
	}
}

// Lookup resolves a child entry.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := n.virtualPath(name)
	st, err := n.fs.ops.Lstat(path)
	if err != nil {
		return nil, toErrno(err)
	}
	out.Attr.FromStat(&st)
	n.fs.trace.Op("lookup", "path", path)
	return n.newChild(ctx, &st), 0
}

// Getattr returns attributes, from the handle when one is given.
func (n *Node) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if h, ok := fh.(*FileHandle); ok {
		return h.Getattr(ctx, out)
	}
	path := n.virtualPath("")
	st, err := n.fs.ops.Lstat(path)
	if err != nil {
		return toErrno(err)
	}
	out.Attr.FromStat(&st)
	n.fs.trace.Op("getattr", "path", path)
	return 0
}

// Readdir lists the directory from a fresh enumeration.
func (n *Node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	path := n.virtualPath("")
	ds, err := n.fs.ops.ReadDir(path)
	if err != nil {
		n.fs.trace.OpErr("readdir", err, "path", path)
		return nil, toErrno(err)
	}
	n.fs.trace.Op("readdir", "path", path)
	return ds, 0
}

// Open opens the file. Capture is decided by FS.Open.
func (n *Node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	fh, err := n.fs.Open(n.virtualPath(""), flags, 0, false)
	if err != nil {
		return nil, 0, toErrno(err)
	}
	return fh, fuse.FOPEN_DIRECT_IO, 0
}

// Create creates and opens a file with caller ownership.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	path := n.virtualPath(name)
	fh, err := n.fs.Open(path, flags, mode, true)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	if caller, ok := fuse.FromContext(ctx); ok && caller != nil {
		_ = syscall.Fchown(fh.fd, int(caller.Uid), int(caller.Gid))
	}

	var st syscall.Stat_t
	if err := syscall.Fstat(fh.fd, &st); err != nil {
		fh.Release(ctx)
		return nil, nil, 0, toErrno(err)
	}
	out.Attr.FromStat(&st)
	return n.newChild(ctx, &st), fh, fuse.FOPEN_DIRECT_IO, 0
}

// Mkdir creates a directory with caller ownership.
func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := n.virtualPath(name)
	if err := n.fs.ops.Mkdir(path, mode); err != nil {
		n.fs.trace.OpErr("mkdir", err, "path", path)
		return nil, toErrno(err)
	}
	n.chownToCaller(ctx, path)
	n.fs.trace.Op("mkdir", "path", path, "mode", mode)
	return n.entry(ctx, path, out)
}

// Mknod creates a special file with caller ownership.
func (n *Node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := n.virtualPath(name)
	if err := n.fs.ops.Mknod(path, mode, dev); err != nil {
		n.fs.trace.OpErr("mknod", err, "path", path)
		return nil, toErrno(err)
	}
	n.chownToCaller(ctx, path)
	n.fs.trace.Op("mknod", "path", path, "mode", mode)
	return n.entry(ctx, path, out)
}

// Unlink removes a file.
func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	path := n.virtualPath(name)
	n.fs.trace.Op("unlink", "path", path)
	return toErrno(n.fs.ops.Unlink(path))
}

// Rmdir removes a directory.
func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	path := n.virtualPath(name)
	n.fs.trace.Op("rmdir", "path", path)
	return toErrno(n.fs.ops.Rmdir(path))
}

// Rename moves an entry, possibly across directories.
func (n *Node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	np, ok := newParent.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	oldPath := n.virtualPath(name)
	newPath := np.virtualPath(newName)
	n.fs.trace.Op("rename", "from", oldPath, "to", newPath, "flags", flags)
	return toErrno(n.fs.ops.Rename(oldPath, newPath, flags))
}

// Symlink creates a symbolic link with caller ownership.
func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := n.virtualPath(name)
	if err := n.fs.ops.Symlink(target, path); err != nil {
		n.fs.trace.OpErr("symlink", err, "path", path, "target", target)
		return nil, toErrno(err)
	}
	n.chownToCaller(ctx, path)
	n.fs.trace.Op("symlink", "path", path, "target", target)
	return n.entry(ctx, path, out)
}

// Readlink reads a symbolic link target.
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.fs.ops.Readlink(n.virtualPath(""))
	if err != nil {
		return nil, toErrno(err)
	}
	return []byte(target), 0
}

// Link creates a hard link.
func (n *Node) Link(ctx context.Context, target gofuse.InodeEmbedder, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	tn, ok := target.(*Node)
	if !ok {
		return nil, syscall.EXDEV
	}
	oldPath := tn.virtualPath("")
	newPath := n.virtualPath(name)
	if err := n.fs.ops.Link(oldPath, newPath); err != nil {
		n.fs.trace.OpErr("link", err, "from", oldPath, "to", newPath)
		return nil, toErrno(err)
	}
	n.fs.trace.Op("link", "from", oldPath, "to", newPath)
	return n.entry(ctx, newPath, out)
}

// Setattr applies chmod, chown, truncate and utimens. With an open handle
// the change goes through the descriptor.
func (n *Node) Setattr(ctx context.Context, fh gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if h, ok := fh.(*FileHandle); ok {
		return h.Setattr(ctx, in, out)
	}

	path := n.virtualPath("")
	ops := n.fs.ops
	if mode, ok := in.GetMode(); ok {
		if err := ops.Chmod(path, mode); err != nil {
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
		if err := ops.Chown(path, u, g); err != nil {
			return toErrno(err)
		}
	}
	if size, ok := in.GetSize(); ok {
		if err := ops.Truncate(path, int64(size)); err != nil {
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
		if err := ops.Utimens(path, ap, mp); err != nil {
			return toErrno(err)
		}
	}
	n.fs.trace.Op("setattr", "path", path)

	st, err := ops.Lstat(path)
	if err != nil {
		return toErrno(err)
	}
	out.Attr.FromStat(&st)
	return 0
}

// Statfs returns statistics of the filesystem holding the mirror.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st, err := n.fs.ops.Statfs(n.virtualPath(""))
	if err != nil {
		return toErrno(err)
	}
	out.FromStatfsT(&st)
	return 0
}

// Access checks file permissions.
func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	return toErrno(n.fs.ops.Access(n.virtualPath(""), mask))
}
