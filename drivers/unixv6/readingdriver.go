package unixv6

import (
	"fmt"

	"github.com/dargueta/u6fs"
	"github.com/dargueta/u6fs/errors"
)

var _ u6fs.ReadingDriver = (*FileSystem)(nil)

// Stat returns information about the file or directory at `entryPath`.
func (fs *FileSystem) Stat(entryPath string) (u6fs.FileStat, error) {
	inumber, err := fs.Lookup(RootInumber, entryPath)
	if err != nil {
		return u6fs.FileStat{}, err
	}

	inode, err := fs.ReadInode(inumber)
	if err != nil {
		return u6fs.FileStat{}, err
	}
	return inode.Stat(inumber), nil
}

// ReadDir lists the directory at `entryPath`, in on-disk order.
func (fs *FileSystem) ReadDir(entryPath string) ([]u6fs.DirectoryEntry, error) {
	inumber, err := fs.Lookup(RootInumber, entryPath)
	if err != nil {
		return nil, err
	}
	return fs.ReadDirInode(inumber)
}

// ReadFile returns the entire contents of the plain file at `entryPath`.
func (fs *FileSystem) ReadFile(entryPath string) ([]byte, error) {
	inumber, err := fs.Lookup(RootInumber, entryPath)
	if err != nil {
		return nil, err
	}

	file, err := fs.OpenFile(inumber)
	if err != nil {
		return nil, err
	}
	if file.inode.IsDir() {
		return nil, errors.ErrIsADirectory.WithMessage(
			fmt.Sprintf("can't read %q as a file", entryPath))
	}
	return file.ReadAll()
}
