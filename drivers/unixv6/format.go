package unixv6

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
	"github.com/noxer/bytewriter"
)

// FormatOptions gives the geometry of a new file system.
type FormatOptions struct {
	// TotalSectors is the size of the image, in sectors.
	TotalSectors uint
	// InodeSectors is the number of sectors in the inode table. Each holds
	// [InodesPerSector] inodes.
	InodeSectors uint
}

// firstInodeSector is where Format puts the inode table, right after the
// superblock.
const firstInodeSector = SuperblockSector + 1

// getBitmapSizeInSectors returns the minimum number of sectors required to store
// a bitmap containing the given number of bits.
func getBitmapSizeInSectors(bits uint) uint {
	const bitsPerSector = common.SectorSize * 8
	return (bits + bitsPerSector - 1) / bitsPerSector
}

func (options *FormatOptions) validate() error {
	if options.InodeSectors == 0 {
		return errors.ErrInvalidArgument.WithMessage("the inode table needs at least one sector")
	}
	if options.TotalSectors > math.MaxUint16 {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"images can be at most %d sectors, got %d",
				math.MaxUint16,
				options.TotalSectors,
			),
		)
	}

	// Boot sector, superblock, the inode table, and at least one data sector.
	minSectors := firstInodeSector + options.InodeSectors + 1
	if options.TotalSectors < minSectors {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"an image with %d inode sectors must be at least %d sectors, got %d",
				options.InodeSectors,
				minSectors,
				options.TotalSectors,
			),
		)
	}
	return nil
}

// Format writes an empty file system to `image`, consisting of the boot sector,
// the superblock, the inode table, and an empty root directory. Data sectors
// aren't cleared, but the image is extended to its full size if needed.
func Format(image io.WriteSeeker, options FormatOptions) error {
	err := options.validate()
	if err != nil {
		return err
	}

	blockStart := firstInodeSector + options.InodeSectors
	totalInodes := options.InodeSectors * InodesPerSector
	nowTs := SerializeTimestamp(time.Now())

	superblock := RawSuperblock{
		NumInodeSectors:    uint16(options.InodeSectors),
		TotalSectors:       uint16(options.TotalSectors),
		FreeBitmapSectors:  uint16(getBitmapSizeInSectors(options.TotalSectors - blockStart)),
		InodeBitmapSectors: uint16(getBitmapSizeInSectors(totalInodes)),
		InodeStart:         firstInodeSector,
		BlockStart:         uint16(blockStart),
		ModifiedTime:       nowTs,
	}

	// The root directory starts out empty, without even "." and "..".
	rootDirectoryInode := Inode{
		Flags:        FlagIsAllocated | DefaultDirectoryMode,
		NLink:        2,
		AccessedTime: nowTs,
		ModifiedTime: nowTs,
	}

	// Everything up to the first data sector is built in memory and written in
	// one go. Unused inodes are all zeroes.
	metadata := make([]byte, blockStart*common.SectorSize)
	metadata[BootBlockSector*common.SectorSize+BootBlockMagicOffset] = BootBlockMagic

	writer := bytewriter.New(metadata[SuperblockSector*common.SectorSize:])
	err = binary.Write(writer, binary.LittleEndian, &superblock)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}

	rootOffset := firstInodeSector*common.SectorSize + int(RootInumber)*InodeSize
	err = encodeInode(metadata, rootOffset, &rootDirectoryInode)
	if err != nil {
		return err
	}

	_, err = image.Seek(0, io.SeekStart)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	_, err = image.Write(metadata)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}

	// Write the last sector so that the image is the right size. For streams
	// with a fixed size this is harmless.
	lastSector := common.PhysicalBlock(options.TotalSectors - 1)
	_, err = image.Seek(common.SectorToFileOffset(lastSector), io.SeekStart)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	_, err = image.Write(make([]byte, common.SectorSize))
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return nil
}
