package u6fs

// POSIX file mode bits, used when converting on-disk inode modes to a portable
// form. The syscall package doesn't define these on every platform.
const (
	S_IXOTH = 0o000001
	S_IWOTH = 0o000002
	S_IROTH = 0o000004
	S_IXGRP = 0o000010
	S_IWGRP = 0o000020
	S_IRGRP = 0o000040
	S_IXUSR = 0o000100
	S_IWUSR = 0o000200
	S_IRUSR = 0o000400
	S_ISVTX = 0o001000
	S_ISGID = 0o002000
	S_ISUID = 0o004000
	S_IFIFO = 0o010000
	S_IFCHR = 0o020000
	S_IFDIR = 0o040000
	S_IFBLK = 0o060000
	S_IFREG = 0o100000
	S_IFMT  = 0o170000
)

const S_IRWXO = S_IXOTH | S_IWOTH | S_IROTH
const S_IRWXG = S_IXGRP | S_IWGRP | S_IRGRP
const S_IRWXU = S_IXUSR | S_IWUSR | S_IRUSR
