package u6fs

import (
	"os"
	"time"
)

// FileStat is a platform-independent form of [syscall.Stat_t].
//
// If a file system doesn't support a particular feature, drivers should use a
// reasonable default value. For most of these 0 is fine, but for compatibility
// drivers should use 1 for `Nlinks`.
type FileStat struct {
	InodeNumber  uint64
	Nlinks       uint64
	ModeFlags    uint32
	Uid          uint32
	Gid          uint32
	Size         int64
	BlockSize    int64
	NumBlocks    int64
	LastAccessed time.Time
	LastModified time.Time
}

// IsDir returns true if the stat describes a directory.
func (stat *FileStat) IsDir() bool {
	return stat.ModeFlags&S_IFMT == S_IFDIR
}

// FileMode converts the POSIX mode flags to an [os.FileMode].
func (stat *FileStat) FileMode() os.FileMode {
	mode := os.FileMode(stat.ModeFlags & 0o777)
	if stat.IsDir() {
		mode |= os.ModeDir
	}
	return mode
}

// DirectoryEntry represents a file or directory encountered while listing a
// directory.
type DirectoryEntry struct {
	Name string
	Stat FileStat
}

// IsDir returns true if it's a directory.
func (d *DirectoryEntry) IsDir() bool {
	return d.Stat.IsDir()
}

// ReadingDriver is the interface for drivers supporting read operations. All
// paths are absolute and slash-separated; "/" and "" both name the root
// directory.
type ReadingDriver interface {
	// Stat returns information about the directory entry at the given path.
	Stat(path string) (FileStat, error)
	// ReadDir lists the directory at the given path, in on-disk order.
	ReadDir(path string) ([]DirectoryEntry, error)
	// ReadFile return the contents of the file at the given path.
	ReadFile(path string) ([]byte, error)
}
