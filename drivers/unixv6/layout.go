package unixv6

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dargueta/u6fs"
	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
	"github.com/noxer/bytewriter"
)

type Inumber uint16
type BlockNum uint16

const (
	BootBlockSector      = 0
	BootBlockMagicOffset = 0
	BootBlockMagic       = 107
	SuperblockSector     = 1

	RootInumber Inumber = 1

	InodeSize          = 32
	InodesPerSector    = common.SectorSize / InodeSize
	AddressesPerSector = common.SectorSize / 2
	NumAddressSlots    = 8

	DirentSize          = 16
	DirentMaxNameLength = 14
	DirentsPerSector    = common.SectorSize / DirentSize

	// MaxSmallFileSize is the largest file that can be addressed directly from
	// the inode's address slots.
	MaxSmallFileSize = NumAddressSlots * common.SectorSize
	// MaxFileSize is the largest file this implementation can address. The
	// eighth slot would be doubly indirect, which isn't supported.
	MaxFileSize = (NumAddressSlots - 1) * AddressesPerSector * common.SectorSize

	// maxEncodableSize is the largest value the 24-bit size field can hold.
	maxEncodableSize = 0xFFFFFF
)

type RawSuperblock struct {
	NumInodeSectors    uint16    // s_isize
	TotalSectors       uint16    // s_fsize
	FreeBitmapSectors  uint16    // s_fbmsize
	InodeBitmapSectors uint16    // s_ibmsize
	InodeStart         uint16    // s_inode_start
	BlockStart         uint16    // s_block_start
	FreeBitmapStart    uint16    // s_fbm_start
	InodeBitmapStart   uint16    // s_ibm_start
	FLock              uint8     // s_flock
	ILock              uint8     // s_ilock
	FModFlags          uint8     // s_fmod
	ReadOnly           uint8     // s_ronly
	ModifiedTime       [2]uint16 // s_time
	Padding            [244]uint16
}

type Inode struct {
	Flags        uint16
	NLink        uint8
	UID          uint8
	GID          uint8
	Size0        uint8 // High byte of the size
	Size1        uint16
	Addr         [NumAddressSlots]BlockNum
	AccessedTime [2]uint16
	ModifiedTime [2]uint16
}

type RawDirent struct {
	Inumber Inumber
	Name    [DirentMaxNameLength]byte
}

const (
	FlagIsAllocated     = 0o100000 // Collides with S_IFREG
	FileTypeMask        = 0o060000
	FileTypeBlockDevice = 0o060000
	FileTypeDirectory   = 0o040000
	FileTypeCharDevice  = 0o020000
	FlagIsLargeFile     = 0o010000 // Collides with S_IFIFO
	FileTypePlainFile   = 0o000000
	FlagSetUID          = 0o004000 // S_ISUID
	FlagSetGID          = 0o002000 // S_ISGID
	FlagSticky          = 0o001000 // S_ISVTX
	OwnerPermMask       = 0o000700 // S_IRWXU
	FlagOwnerR          = 0o000400 // S_IRUSR
	FlagOwnerW          = 0o000200 // S_IWUSR
	FlagOwnerX          = 0o000100 // S_IXUSR
	GroupPermMask       = 0o000070 // S_IRWXG
	FlagGroupR          = 0o000040 // S_IRGRP
	FlagGroupW          = 0o000020 // S_IWGRP
	FlagGroupX          = 0o000010 // S_IXGRP
	OtherPermMask       = 0o000007 // S_IRWXO
	FlagOtherR          = 0o000004 // S_IROTH
	FlagOtherW          = 0o000002 // S_IWOTH
	FlagOtherX          = 0o000001 // S_IXOTH
)

// DefaultDirectoryMode is the mode given to directories created by Format and
// by the command-line tools.
const DefaultDirectoryMode = FileTypeDirectory | OwnerPermMask | FlagGroupR |
	FlagGroupX | FlagOtherR | FlagOtherX

// DefaultFileMode is the mode given to plain files created by the command-line
// tools.
const DefaultFileMode = FileTypePlainFile | FlagOwnerR | FlagOwnerW | FlagGroupR |
	FlagOtherR

////////////////////////////////////////////////////////////////////////////////
// Inodes

func (inode *Inode) IsAllocated() bool {
	return inode.Flags&FlagIsAllocated != 0
}

func (inode *Inode) IsDir() bool {
	return inode.Flags&FileTypeMask == FileTypeDirectory
}

func (inode *Inode) IsLarge() bool {
	return inode.Flags&FlagIsLargeFile != 0
}

// Size returns the size of the file in bytes.
func (inode *Inode) Size() int64 {
	return int64(inode.Size0)<<16 | int64(inode.Size1)
}

// SetSize splits `size` across the two on-disk size fields.
func (inode *Inode) SetSize(size int64) error {
	if size < 0 || size > maxEncodableSize {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("file size must be in [0, %d], got %d", maxEncodableSize, size))
	}
	inode.Size0 = uint8(size >> 16)
	inode.Size1 = uint16(size & 0xFFFF)
	return nil
}

// NumSectors gives the number of data sectors the file's contents occupy. This
// doesn't include indirect address sectors.
func (inode *Inode) NumSectors() int64 {
	return (inode.Size() + common.SectorSize - 1) / common.SectorSize
}

// Stat converts the on-disk inode into the portable form.
func (inode *Inode) Stat(inumber Inumber) u6fs.FileStat {
	mode := uint32(inode.Flags)

	// Clear the IsAllocated flag because it corresponds to modern S_IFREG, and
	// also clear FlagIsLargeFile because it corresponds to S_IFIFO. These two
	// bits have no meaning outside the file system's internals, so they can be
	// cleared.
	mode &^= FlagIsAllocated | FlagIsLargeFile

	// Unix V6 indicates a regular file with X & FileTypeMask = 0. Nowadays we
	// need to OR in the S_IFREG flag to indicate this is a regular file.
	if mode&u6fs.S_IFMT == 0 {
		mode |= u6fs.S_IFREG
	}

	return u6fs.FileStat{
		InodeNumber:  uint64(inumber),
		Nlinks:       uint64(inode.NLink),
		ModeFlags:    mode,
		Uid:          uint32(inode.UID),
		Gid:          uint32(inode.GID),
		Size:         inode.Size(),
		BlockSize:    common.SectorSize,
		NumBlocks:    inode.NumSectors(),
		LastAccessed: DeserializeTimestamp(inode.AccessedTime),
		LastModified: DeserializeTimestamp(inode.ModifiedTime),
	}
}

// decodeInode reads the inode stored at byte offset `offset` of a sector.
func decodeInode(sectorData []byte, offset int) (Inode, error) {
	var inode Inode
	err := binary.Read(
		bytes.NewReader(sectorData[offset:offset+InodeSize]),
		binary.LittleEndian,
		&inode,
	)
	if err != nil {
		return inode, errors.ErrFileSystemCorrupted.Wrap(err)
	}
	return inode, nil
}

// encodeInode serializes `inode` into the slot at byte offset `offset` of a
// sector, leaving the rest of the sector alone.
func encodeInode(sectorData []byte, offset int, inode *Inode) error {
	writer := bytewriter.New(sectorData[offset : offset+InodeSize])
	err := binary.Write(writer, binary.LittleEndian, inode)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Directory entries

// NameString returns the entry's name, cut at the first null byte. Names that
// are exactly [DirentMaxNameLength] bytes long have no terminator.
func (dirent *RawDirent) NameString() string {
	end := bytes.IndexByte(dirent.Name[:], 0)
	if end < 0 {
		end = DirentMaxNameLength
	}
	return string(dirent.Name[:end])
}

// newRawDirent builds a directory entry. The caller must ensure `name` is at
// most [DirentMaxNameLength] bytes.
func newRawDirent(inumber Inumber, name string) RawDirent {
	dirent := RawDirent{Inumber: inumber}
	copy(dirent.Name[:], name)
	return dirent
}

func (dirent *RawDirent) MarshalBinary() ([]byte, error) {
	buffer := make([]byte, DirentSize)
	err := binary.Write(bytewriter.New(buffer), binary.LittleEndian, dirent)
	if err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}
	return buffer, nil
}

func decodeDirents(data []byte) ([]RawDirent, error) {
	dirents := make([]RawDirent, len(data)/DirentSize)
	err := binary.Read(bytes.NewReader(data[:len(dirents)*DirentSize]), binary.LittleEndian, dirents)
	if err != nil {
		return nil, errors.ErrFileSystemCorrupted.Wrap(err)
	}
	return dirents, nil
}

////////////////////////////////////////////////////////////////////////////////
// Timestamps

// SerializeTimestamp splits a timestamp into two words, high word first as the
// PDP-11 stores 32-bit integers.
func SerializeTimestamp(tstamp time.Time) [2]uint16 {
	seconds := uint32(tstamp.Unix())
	return [2]uint16{uint16(seconds >> 16), uint16(seconds & 0xFFFF)}
}

func DeserializeTimestamp(tstamp [2]uint16) time.Time {
	return time.Unix(int64(tstamp[0])<<16|int64(tstamp[1]), 0)
}
