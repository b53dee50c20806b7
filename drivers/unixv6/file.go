package unixv6

import (
	"fmt"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
)

// File is an open handle on a file's contents. It holds a copy of the inode;
// changes made by [File.WriteBytes] only reach the disk on [File.Flush].
type File struct {
	fs      *FileSystem
	inumber Inumber
	inode   Inode
	cursor  int64
	dirty   bool
}

// OpenFile opens the file or directory with the given inode number, with the
// cursor at the beginning.
func (fs *FileSystem) OpenFile(inumber Inumber) (*File, error) {
	inode, err := fs.ReadInode(inumber)
	if err != nil {
		return nil, err
	}
	return &File{fs: fs, inumber: inumber, inode: inode}, nil
}

// CreateFile allocates a new inode, writes it to disk as an empty file with
// the given mode, and returns a handle on it.
func (fs *FileSystem) CreateFile(mode uint16) (*File, error) {
	inumber, err := fs.AllocateInode()
	if err != nil {
		return nil, err
	}

	file := &File{
		fs:      fs,
		inumber: inumber,
		inode:   Inode{Flags: mode | FlagIsAllocated},
	}
	err = fs.WriteInode(inumber, &file.inode)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (file *File) Inumber() Inumber {
	return file.inumber
}

// Inode returns a copy of the handle's cached inode.
func (file *File) Inode() Inode {
	return file.inode
}

func (file *File) Size() int64 {
	return file.inode.Size()
}

// Tell returns the cursor's position in bytes.
func (file *File) Tell() int64 {
	return file.cursor
}

// Dirty returns true if the cached inode has changes not yet written to disk.
func (file *File) Dirty() bool {
	return file.dirty
}

// ReadBlock reads the sector under the cursor into `buffer`, which must be
// exactly one sector long, and advances the cursor. It returns the number of
// bytes of the sector that belong to the file, which is less than a full
// sector only at the end of the file. At the end of the file it returns 0.
func (file *File) ReadBlock(buffer []byte) (int, error) {
	if len(buffer) != common.SectorSize {
		return 0, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("buffer must be %d bytes, got %d", common.SectorSize, len(buffer)))
	}

	size := file.inode.Size()
	if file.cursor >= size {
		return 0, nil
	}

	sector, err := file.fs.FindSector(&file.inode, file.cursor/common.SectorSize)
	if err != nil {
		return 0, err
	}
	err = file.fs.device.ReadSector(common.PhysicalBlock(sector), buffer)
	if err != nil {
		return 0, err
	}

	bytesRead := size - file.cursor
	if bytesRead > common.SectorSize {
		bytesRead = common.SectorSize
	}
	file.cursor += bytesRead
	return int(bytesRead), nil
}

// Seek moves the cursor to `offset` bytes from the beginning of the file. The
// offset must be a multiple of the sector size, or exactly the end of the file.
func (file *File) Seek(offset int64) error {
	size := file.inode.Size()
	if offset < 0 || offset > size {
		return errors.ErrOffsetOutOfRange.WithMessage(
			fmt.Sprintf("can't seek to %d in a %d-byte file", offset, size))
	}
	if offset != size && offset%common.SectorSize != 0 {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("offset %d isn't a multiple of %d", offset, common.SectorSize))
	}
	file.cursor = offset
	return nil
}

// ReadAll returns the entire contents of the file. The cursor is left at the
// end.
func (file *File) ReadAll() ([]byte, error) {
	err := file.Seek(0)
	if err != nil {
		return nil, err
	}

	contents := make([]byte, 0, file.inode.Size())
	buffer := make([]byte, common.SectorSize)
	for {
		bytesRead, err := file.ReadBlock(buffer)
		if err != nil {
			return nil, err
		}
		if bytesRead == 0 {
			return contents, nil
		}
		contents = append(contents, buffer[:bytesRead]...)
	}
}

// WriteBytes appends `data` to the end of the file, allocating sectors as
// needed. The cursor doesn't move.
//
// If appending would make the file larger than [MaxFileSize], nothing is
// written or allocated and [errors.ErrFileTooLarge] is returned. Other failures
// can leave some of the data written and some sectors allocated.
func (file *File) WriteBytes(data []byte) error {
	size := file.inode.Size()
	if size+int64(len(data)) > MaxFileSize {
		return errors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf(
				"appending %d bytes to a %d-byte file would exceed the limit of %d",
				len(data),
				size,
				MaxFileSize,
			),
		)
	}

	sectorData := make([]byte, common.SectorSize)
	for len(data) > 0 {
		block := size / common.SectorSize
		offsetInSector := size % common.SectorSize

		var sector BlockNum
		var err error
		if offsetInSector == 0 {
			// The file ends on a sector boundary so we need a fresh sector.
			sector, err = file.appendSector(block)
			if err != nil {
				return err
			}
			for i := range sectorData {
				sectorData[i] = 0
			}
		} else {
			// Fill up the partially-used last sector first.
			sector, err = file.fs.FindSector(&file.inode, block)
			if err != nil {
				return err
			}
			err = file.fs.device.ReadSector(common.PhysicalBlock(sector), sectorData)
			if err != nil {
				return err
			}
		}

		bytesCopied := copy(sectorData[offsetInSector:], data)
		err = file.fs.device.WriteSector(common.PhysicalBlock(sector), sectorData)
		if err != nil {
			return err
		}

		data = data[bytesCopied:]
		size += int64(bytesCopied)
		err = file.inode.SetSize(size)
		if err != nil {
			return err
		}
		file.dirty = true
	}
	return nil
}

// appendSector allocates a sector and makes it the file's `block`th block,
// which must be one past its current last block.
func (file *File) appendSector(block int64) (BlockNum, error) {
	sector, err := file.fs.allocateSector()
	if err != nil {
		return 0, err
	}

	if block < NumAddressSlots {
		file.inode.Addr[block] = sector
		file.dirty = true
		return sector, nil
	}

	if block == NumAddressSlots {
		err = file.convertToIndirect()
		if err != nil {
			return 0, err
		}
	}

	slot := block / AddressesPerSector
	entry := block % AddressesPerSector

	var addresses []BlockNum
	if entry == 0 {
		// The previous indirect sector is full.
		indirectSector, err := file.fs.allocateSector()
		if err != nil {
			return 0, err
		}
		file.inode.Addr[slot] = indirectSector
		addresses = make([]BlockNum, AddressesPerSector)
	} else {
		addresses, err = file.fs.readAddressSector(file.inode.Addr[slot])
		if err != nil {
			return 0, err
		}
	}

	addresses[entry] = sector
	err = file.fs.writeAddressSector(file.inode.Addr[slot], addresses)
	if err != nil {
		return 0, err
	}
	file.dirty = true
	return sector, nil
}

// convertToIndirect moves the eight direct addresses into a new indirect sector
// referenced from the first address slot, and marks the file as large.
func (file *File) convertToIndirect() error {
	indirectSector, err := file.fs.allocateSector()
	if err != nil {
		return err
	}

	addresses := make([]BlockNum, AddressesPerSector)
	copy(addresses, file.inode.Addr[:])
	err = file.fs.writeAddressSector(indirectSector, addresses)
	if err != nil {
		return err
	}

	file.inode.Addr = [NumAddressSlots]BlockNum{indirectSector}
	file.inode.Flags |= FlagIsLargeFile
	file.dirty = true
	return nil
}

// Flush writes the cached inode to disk.
func (file *File) Flush() error {
	err := file.fs.WriteInode(file.inumber, &file.inode)
	if err != nil {
		return err
	}
	file.dirty = false
	return nil
}
