// Package fusefs exposes a [u6fs.ReadingDriver] to the kernel through FUSE,
// read-only.
package fusefs

import (
	"context"
	"os"
	"path"
	"sync"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dargueta/u6fs"
	"github.com/dargueta/u6fs/errors"
	"github.com/sirupsen/logrus"
)

// FileSystem serves one driver. The kernel sends requests concurrently but
// drivers aren't safe for concurrent use, so every call goes through `lock`.
type FileSystem struct {
	driver u6fs.ReadingDriver
	logger *logrus.Entry
	lock   sync.Mutex
}

var _ fs.FS = (*FileSystem)(nil)

func New(driver u6fs.ReadingDriver, logger *logrus.Entry) *FileSystem {
	return &FileSystem{driver: driver, logger: logger}
}

func (fsys *FileSystem) Root() (fs.Node, error) {
	return &Dir{fsys: fsys, path: "/"}, nil
}

func (fsys *FileSystem) stat(entryPath string) (u6fs.FileStat, error) {
	fsys.lock.Lock()
	defer fsys.lock.Unlock()

	stat, err := fsys.driver.Stat(entryPath)
	return stat, fsys.toFuseError("getattr", entryPath, err)
}

func (fsys *FileSystem) readDir(entryPath string) ([]u6fs.DirectoryEntry, error) {
	fsys.lock.Lock()
	defer fsys.lock.Unlock()

	entries, err := fsys.driver.ReadDir(entryPath)
	return entries, fsys.toFuseError("readdir", entryPath, err)
}

func (fsys *FileSystem) readFile(entryPath string) ([]byte, error) {
	fsys.lock.Lock()
	defer fsys.lock.Unlock()

	contents, err := fsys.driver.ReadFile(entryPath)
	return contents, fsys.toFuseError("read", entryPath, err)
}

// toFuseError converts a driver error to the errno the kernel sees.
func (fsys *FileSystem) toFuseError(operation, entryPath string, err error) error {
	if err == nil {
		return nil
	}

	errno := errors.ErrnoOf(err)
	fsys.logger.WithFields(logrus.Fields{
		"operation": operation,
		"path":      entryPath,
		"errno":     int(errno),
	}).Debug(err.Error())
	return fuse.Errno(syscall.Errno(errno))
}

// fillAttr copies file metadata into a FUSE attribute struct. Permissions are
// always reported as 0755, regardless of what's on disk.
func fillAttr(stat *u6fs.FileStat, attr *fuse.Attr) {
	attr.Inode = stat.InodeNumber
	attr.Nlink = uint32(stat.Nlinks)
	attr.Uid = stat.Uid
	attr.Gid = stat.Gid
	attr.Size = uint64(stat.Size)
	attr.Blocks = uint64(stat.NumBlocks)
	attr.BlockSize = uint32(stat.BlockSize)
	attr.Atime = stat.LastAccessed
	attr.Mtime = stat.LastModified
	attr.Mode = 0o755
	if stat.IsDir() {
		attr.Mode |= os.ModeDir
	}
}

////////////////////////////////////////////////////////////////////////////////

// Dir is a directory node.
type Dir struct {
	fsys *FileSystem
	path string
}

var _ fs.Node = (*Dir)(nil)
var _ fs.NodeStringLookuper = (*Dir)(nil)
var _ fs.HandleReadDirAller = (*Dir)(nil)

func (d *Dir) Attr(ctx context.Context, attr *fuse.Attr) error {
	stat, err := d.fsys.stat(d.path)
	if err != nil {
		return err
	}
	fillAttr(&stat, attr)
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	childPath := path.Join(d.path, name)
	stat, err := d.fsys.stat(childPath)
	if err != nil {
		return nil, err
	}

	if stat.IsDir() {
		return &Dir{fsys: d.fsys, path: childPath}, nil
	}
	return &File{fsys: d.fsys, path: childPath}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	self, err := d.fsys.stat(d.path)
	if err != nil {
		return nil, err
	}
	entries, err := d.fsys.readDir(d.path)
	if err != nil {
		return nil, err
	}

	// The parent's inode number isn't known here, and the kernel doesn't need
	// it for "..".
	dirents := make([]fuse.Dirent, 0, len(entries)+2)
	dirents = append(
		dirents,
		fuse.Dirent{Inode: self.InodeNumber, Type: fuse.DT_Dir, Name: "."},
		fuse.Dirent{Type: fuse.DT_Dir, Name: ".."},
	)

	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		direntType := fuse.DT_File
		if entry.IsDir() {
			direntType = fuse.DT_Dir
		}
		dirents = append(
			dirents,
			fuse.Dirent{Inode: entry.Stat.InodeNumber, Type: direntType, Name: entry.Name},
		)
	}
	return dirents, nil
}

////////////////////////////////////////////////////////////////////////////////

// File is a plain file node. The whole file is read in one go.
type File struct {
	fsys *FileSystem
	path string
}

var _ fs.Node = (*File)(nil)
var _ fs.HandleReadAller = (*File)(nil)

func (f *File) Attr(ctx context.Context, attr *fuse.Attr) error {
	stat, err := f.fsys.stat(f.path)
	if err != nil {
		return err
	}
	fillAttr(&stat, attr)
	return nil
}

func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	return f.fsys.readFile(f.path)
}
