package unixv6

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
	"github.com/hashicorp/go-multierror"
)

// FileSystem is a mounted Unix V6 image.
type FileSystem struct {
	image        io.ReadWriteSeeker
	device       *common.SectorStream
	superblock   RawSuperblock
	inodeBitmap  *common.Allocator
	sectorBitmap *common.Allocator
}

// Mount opens the image file at `path` for reading and writing and mounts it.
func Mount(path string) (*FileSystem, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.ErrNotFound.Wrap(err)
		}
		return nil, errors.ErrIOFailed.Wrap(err)
	}
	return MountImage(file)
}

// MountImage mounts the file system in `image`. If `image` is an [io.Closer]
// it's closed on failure, and by [FileSystem.Unmount] on success.
func MountImage(image io.ReadWriteSeeker) (*FileSystem, error) {
	fs := &FileSystem{
		image:  image,
		device: common.NewSectorStream(image),
	}

	err := fs.mount()
	if err != nil {
		fs.inodeBitmap = nil
		fs.sectorBitmap = nil
		closeErr := closeImage(image)
		if closeErr != nil {
			return nil, multierror.Append(err, closeErr)
		}
		return nil, err
	}
	return fs, nil
}

func closeImage(image io.ReadWriteSeeker) error {
	closer, ok := image.(io.Closer)
	if !ok {
		return nil
	}
	err := closer.Close()
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (fs *FileSystem) mount() error {
	sectorData := make([]byte, common.SectorSize)

	err := fs.device.ReadSector(BootBlockSector, sectorData)
	if err != nil {
		return err
	}
	if sectorData[BootBlockMagicOffset] != BootBlockMagic {
		return errors.ErrBadBootSector.WithMessage(
			fmt.Sprintf(
				"expected %d at offset %d, got %d",
				BootBlockMagic,
				BootBlockMagicOffset,
				sectorData[BootBlockMagicOffset],
			),
		)
	}

	err = fs.device.ReadSector(SuperblockSector, sectorData)
	if err != nil {
		return err
	}
	err = binary.Read(bytes.NewReader(sectorData), binary.LittleEndian, &fs.superblock)
	if err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}

	err = fs.createBitmaps()
	if err != nil {
		return err
	}
	return fs.rebuildBitmaps()
}

// createBitmaps allocates empty inode and sector bitmaps sized from the
// superblock.
func (fs *FileSystem) createBitmaps() error {
	sb := &fs.superblock

	// Inode 0 doesn't exist, but it's simpler to give it a bit and mark it as
	// used than to offset everything by one.
	inodeBitmap, err := common.NewAllocator(0, fs.NumInodes())
	if err != nil {
		return errors.ErrFileSystemCorrupted.Wrap(err)
	}
	err = inodeBitmap.MarkUsed(0)
	if err != nil {
		return err
	}

	if sb.BlockStart >= sb.TotalSectors {
		return errors.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"first data sector %d is past the end of the %d-sector image",
				sb.BlockStart,
				sb.TotalSectors,
			),
		)
	}
	sectorBitmap, err := common.NewAllocator(
		common.UnitID(sb.BlockStart),
		uint(sb.TotalSectors-sb.BlockStart),
	)
	if err != nil {
		return errors.ErrFileSystemCorrupted.Wrap(err)
	}

	fs.inodeBitmap = inodeBitmap
	fs.sectorBitmap = sectorBitmap
	return nil
}

// rebuildBitmaps marks every allocated inode, and every sector reachable from
// one, as in use. Inodes that can't be read, e.g. because the inode table runs
// past the end of the image, are treated as free. Failing to resolve a sector
// of a readable inode aborts.
func (fs *FileSystem) rebuildBitmaps() error {
	for i := uint(1); i < fs.NumInodes(); i++ {
		inumber := Inumber(i)
		inode, err := fs.ReadInode(inumber)
		if err != nil {
			continue
		}
		err = fs.inodeBitmap.MarkUsed(common.UnitID(inumber))
		if err != nil {
			return err
		}

		err = fs.markSectorsOfInode(&inode)
		if err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileSystem) markSectorsOfInode(inode *Inode) error {
	numSectors := inode.NumSectors()
	for block := int64(0); block < numSectors; block++ {
		sector, err := fs.FindSector(inode, block)
		if stderrors.Is(err, errors.ErrOffsetOutOfRange) {
			break
		} else if err != nil {
			return err
		}
		fs.markSector(sector)
	}

	// The indirect sectors hold addresses, not data, but they're still taken.
	if inode.Size() > MaxSmallFileSize {
		numIndirect := (numSectors + AddressesPerSector - 1) / AddressesPerSector
		for slot := int64(0); slot < numIndirect; slot++ {
			fs.markSector(inode.Addr[slot])
		}
	}
	return nil
}

// markSector marks a data sector as used. Sector numbers outside the data area,
// e.g. 0 for a hole, aren't tracked and are ignored.
func (fs *FileSystem) markSector(sector BlockNum) {
	if fs.sectorBitmap.IsInRange(common.UnitID(sector)) {
		// Can't fail, the range was just checked.
		_ = fs.sectorBitmap.MarkUsed(common.UnitID(sector))
	}
}

// Unmount closes the image if it's an [io.Closer] and releases the allocation
// bitmaps. The bitmaps are released even if closing fails.
func (fs *FileSystem) Unmount() error {
	if fs.image == nil {
		return errors.ErrInvalidArgument.WithMessage("file system isn't mounted")
	}

	fs.inodeBitmap = nil
	fs.sectorBitmap = nil
	image := fs.image
	fs.image = nil
	return closeImage(image)
}

// Superblock returns a copy of the superblock read when the image was mounted.
func (fs *FileSystem) Superblock() RawSuperblock {
	return fs.superblock
}

// NumInodes gives the number of inode slots in the inode table, including the
// nonexistent inode 0.
func (fs *FileSystem) NumInodes() uint {
	return uint(fs.superblock.NumInodeSectors) * InodesPerSector
}

func (fs *FileSystem) InodeBitmap() *common.Allocator {
	return fs.inodeBitmap
}

func (fs *FileSystem) SectorBitmap() *common.Allocator {
	return fs.sectorBitmap
}

func (fs *FileSystem) checkMounted() error {
	if fs.inodeBitmap == nil || fs.sectorBitmap == nil {
		return errors.ErrInvalidArgument.WithMessage("file system isn't mounted")
	}
	return nil
}

// allocateSector reserves the lowest free data sector. Its contents are left
// untouched.
func (fs *FileSystem) allocateSector() (BlockNum, error) {
	err := fs.checkMounted()
	if err != nil {
		return 0, err
	}
	sector, err := fs.sectorBitmap.AllocateSingle()
	if err != nil {
		return 0, err
	}
	return BlockNum(sector), nil
}
