package unixv6

import (
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dargueta/u6fs"
	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
)

// DirectoryReader iterates over the entries of a directory one sector at a time.
type DirectoryReader struct {
	file       *File
	sectorData []byte
	entries    []RawDirent
	cur        int
	last       int
}

// OpenDirectory opens the directory with inode number `inumber` for reading.
func (fs *FileSystem) OpenDirectory(inumber Inumber) (*DirectoryReader, error) {
	file, err := fs.OpenFile(inumber)
	if err != nil {
		return nil, err
	}
	if !file.inode.IsDir() {
		return nil, errors.ErrInvalidDirectoryInode.WithMessage(
			fmt.Sprintf("inode %d isn't a directory", inumber))
	}
	return &DirectoryReader{
		file:       file,
		sectorData: make([]byte, common.SectorSize),
	}, nil
}

// Next returns the name and inode number of the next entry in the directory.
// Empty slots are skipped. After the last entry it returns [io.EOF].
func (dir *DirectoryReader) Next() (string, Inumber, error) {
	for {
		if dir.cur == dir.last {
			bytesRead, err := dir.file.ReadBlock(dir.sectorData)
			if err != nil {
				return "", 0, err
			}
			if bytesRead == 0 {
				return "", 0, io.EOF
			}

			dir.entries, err = decodeDirents(dir.sectorData[:bytesRead])
			if err != nil {
				return "", 0, err
			}
			dir.cur = 0
			dir.last = len(dir.entries)
			continue
		}

		entry := &dir.entries[dir.cur]
		dir.cur++
		if entry.Inumber != 0 {
			return entry.NameString(), entry.Inumber, nil
		}
	}
}

// find returns the inode number of the entry called `name`.
func (dir *DirectoryReader) find(name string) (Inumber, error) {
	for {
		entryName, inumber, err := dir.Next()
		if err == io.EOF {
			return 0, errors.ErrNotFound.WithMessage(fmt.Sprintf("no entry named %q", name))
		} else if err != nil {
			return 0, err
		}
		if entryName == name {
			return inumber, nil
		}
	}
}

// Lookup resolves a slash-separated path relative to the directory `start`.
// Empty components are ignored, so the empty path resolves to `start` itself.
func (fs *FileSystem) Lookup(start Inumber, entryPath string) (Inumber, error) {
	current := start
	for _, component := range strings.Split(entryPath, "/") {
		if component == "" {
			continue
		}

		dir, err := fs.OpenDirectory(current)
		if err != nil {
			return 0, err
		}
		current, err = dir.find(component)
		if err != nil {
			return 0, err
		}
	}
	return current, nil
}

// splitEntryPath splits an absolute path into the parent directory's path and
// the name of the last component.
func splitEntryPath(entryPath string) (string, string) {
	trimmed := strings.TrimRight(entryPath, "/")
	return path.Split(trimmed)
}

// CreateEntry creates an empty file or directory at `entryPath` and returns its
// inode number. The parent directory must already exist.
func (fs *FileSystem) CreateEntry(entryPath string, mode uint16) (Inumber, error) {
	parentPath, name := splitEntryPath(entryPath)
	if len(name) > DirentMaxNameLength {
		return 0, errors.ErrNameTooLong.WithMessage(
			fmt.Sprintf("%q is longer than %d bytes", name, DirentMaxNameLength))
	}
	if name == "" {
		return 0, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%q doesn't name a directory entry", entryPath))
	}

	parent, err := fs.Lookup(RootInumber, parentPath)
	if err != nil {
		return 0, err
	}

	// This also fails if the parent isn't a directory.
	_, err = fs.Lookup(parent, name)
	if err == nil {
		return 0, errors.ErrExists.WithMessage(entryPath)
	} else if !stderrors.Is(err, errors.ErrNotFound) {
		return 0, err
	}

	parentFile, err := fs.OpenFile(parent)
	if err != nil {
		return 0, err
	}

	child, err := fs.CreateFile(mode)
	if err != nil {
		return 0, err
	}

	dirent := newRawDirent(child.Inumber(), name)
	direntBytes, err := dirent.MarshalBinary()
	if err != nil {
		return 0, err
	}

	err = parentFile.WriteBytes(direntBytes)
	if err != nil {
		return 0, err
	}
	err = parentFile.Flush()
	if err != nil {
		return 0, err
	}
	err = child.Flush()
	if err != nil {
		return 0, err
	}
	return child.Inumber(), nil
}

// AddFile creates a file at `entryPath` with the given contents.
func (fs *FileSystem) AddFile(entryPath string, mode uint16, data []byte) error {
	inumber, err := fs.CreateEntry(entryPath, mode)
	if err != nil {
		return err
	}

	file, err := fs.OpenFile(inumber)
	if err != nil {
		return err
	}
	err = file.WriteBytes(data)
	if err != nil {
		return err
	}
	return file.Flush()
}

// WalkFunc is called by [FileSystem.Walk] for every file and directory visited.
type WalkFunc func(entryPath string, inumber Inumber, isDir bool) error

type walkItem struct {
	inumber   Inumber
	entryPath string
}

// Walk visits `inumber` and everything beneath it, parents before children and
// children in the order they're stored. `prefix` is the path given to
// `inumber`; descendants are named relative to it. Entries named "." and ".."
// aren't followed.
func (fs *FileSystem) Walk(inumber Inumber, prefix string, callback WalkFunc) error {
	stack := []walkItem{{inumber: inumber, entryPath: prefix}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		inode, err := fs.ReadInode(item.inumber)
		if err != nil {
			return err
		}

		err = callback(item.entryPath, item.inumber, inode.IsDir())
		if err != nil {
			return err
		}
		if !inode.IsDir() {
			continue
		}

		children, err := fs.listDirectory(item.inumber)
		if err != nil {
			return err
		}

		// Push in reverse so that the first child is popped first.
		for i := len(children) - 1; i >= 0; i-- {
			if children[i].name == "." || children[i].name == ".." {
				continue
			}
			stack = append(
				stack,
				walkItem{
					inumber:   children[i].inumber,
					entryPath: item.entryPath + "/" + children[i].name,
				},
			)
		}
	}
	return nil
}

type directoryListing struct {
	name    string
	inumber Inumber
}

func (fs *FileSystem) listDirectory(inumber Inumber) ([]directoryListing, error) {
	dir, err := fs.OpenDirectory(inumber)
	if err != nil {
		return nil, err
	}

	var listing []directoryListing
	for {
		name, child, err := dir.Next()
		if err == io.EOF {
			return listing, nil
		} else if err != nil {
			return nil, err
		}
		listing = append(listing, directoryListing{name: name, inumber: child})
	}
}

// ReadDirInode lists the directory with inode number `inumber`, in on-disk
// order.
func (fs *FileSystem) ReadDirInode(inumber Inumber) ([]u6fs.DirectoryEntry, error) {
	listing, err := fs.listDirectory(inumber)
	if err != nil {
		return nil, err
	}

	entries := make([]u6fs.DirectoryEntry, 0, len(listing))
	for _, child := range listing {
		inode, err := fs.ReadInode(child.inumber)
		if err != nil {
			return nil, err
		}
		entries = append(
			entries,
			u6fs.DirectoryEntry{Name: child.name, Stat: inode.Stat(child.inumber)},
		)
	}
	return entries, nil
}
