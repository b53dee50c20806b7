// This is a compatibility shim for POSIX-defined errno codes across platforms.
// The syscall package doesn't define all the values we need on all systems,
// particularly things like EUCLEAN and EMEDIUMTYPE. The numeric values are the
// ones Linux uses, so adapters can hand them straight to the kernel.

package errors

import (
	"fmt"
)

type Errno int

const (
	EOK          Errno = 0
	EPERM        Errno = 1
	ENOENT       Errno = 2
	EIO          Errno = 5
	EBADF        Errno = 9
	ENOMEM       Errno = 12
	EACCES       Errno = 13
	EBUSY        Errno = 16
	EEXIST       Errno = 17
	ENOTDIR      Errno = 20
	EISDIR       Errno = 21
	EINVAL       Errno = 22
	EFBIG        Errno = 27
	ENOSPC       Errno = 28
	EROFS        Errno = 30
	EDOM         Errno = 33
	ERANGE       Errno = 34
	ENAMETOOLONG Errno = 36
	ENOSYS       Errno = 38
	ENOTEMPTY    Errno = 39
	ENOTSUP      Errno = 95
	EALREADY     Errno = 114
	ESTALE       Errno = 116
	EUCLEAN      Errno = 117
	EMEDIUMTYPE  Errno = 124
)

var errorMessagesByCode = map[Errno]string{
	EPERM:        "Operation not permitted",
	ENOENT:       "No such file or directory",
	EIO:          "Input/output error",
	EBADF:        "Bad file descriptor",
	ENOMEM:       "Cannot allocate memory",
	EACCES:       "Permission denied",
	EBUSY:        "Device or resource busy",
	EEXIST:       "File exists",
	ENOTDIR:      "Not a directory",
	EISDIR:       "Is a directory",
	EINVAL:       "Invalid argument",
	EFBIG:        "File too large",
	ENOSPC:       "No space left on device",
	EROFS:        "Read-only file system",
	EDOM:         "Numerical argument out of domain",
	ERANGE:       "Numerical result out of range",
	ENAMETOOLONG: "File name too long",
	ENOSYS:       "Function not implemented",
	ENOTEMPTY:    "Directory not empty",
	ENOTSUP:      "Operation not supported",
	EALREADY:     "Operation already in progress",
	ESTALE:       "Stale file handle",
	EUCLEAN:      "Structure needs cleaning",
	EMEDIUMTYPE:  "Wrong medium type",
}

// The conditions the file system has to tell apart. Several share an errno
// with a more generic POSIX meaning, so always compare against these with
// [errors.Is] rather than by code.
var ErrInvalidArgument = New(EINVAL)
var ErrInodeOutOfRange = NewWithMessage(ERANGE, "inode number out of range")
var ErrOffsetOutOfRange = NewWithMessage(EDOM, "offset out of range")
var ErrUnallocatedInode = NewWithMessage(ESTALE, "inode is not allocated")
var ErrInvalidDirectoryInode = NewWithMessage(ENOTDIR, "invalid directory inode")
var ErrNotFound = New(ENOENT)
var ErrExists = New(EEXIST)
var ErrNameTooLong = New(ENAMETOOLONG)
var ErrFileTooLarge = New(EFBIG)
var ErrBitmapFull = NewWithMessage(ENOSPC, "allocation bitmap is full")
var ErrBadBootSector = NewWithMessage(EMEDIUMTYPE, "bad boot sector")
var ErrIOFailed = New(EIO)
var ErrOutOfMemory = New(ENOMEM)
var ErrFileSystemCorrupted = New(EUCLEAN)
var ErrNotSupported = New(ENOTSUP)
var ErrIsADirectory = New(EISDIR)

func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
