package unixv6

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"

	"github.com/dargueta/u6fs/drivers/common"
	"github.com/dargueta/u6fs/errors"
)

// inodeLocation returns the sector an inode is stored in, and the byte offset
// of the inode within that sector.
func (fs *FileSystem) inodeLocation(inumber Inumber) (common.PhysicalBlock, int, error) {
	if inumber < 1 || uint(inumber) >= fs.NumInodes() {
		return 0, 0, errors.ErrInodeOutOfRange.WithMessage(
			fmt.Sprintf("%d not in [1, %d)", inumber, fs.NumInodes()))
	}

	sector := common.PhysicalBlock(fs.superblock.InodeStart) +
		common.PhysicalBlock(inumber/InodesPerSector)
	offset := int(inumber%InodesPerSector) * InodeSize
	return sector, offset, nil
}

// ReadInode reads the inode numbered `inumber` from disk. If the inode isn't
// allocated, the record is returned along with [errors.ErrUnallocatedInode].
func (fs *FileSystem) ReadInode(inumber Inumber) (Inode, error) {
	sector, offset, err := fs.inodeLocation(inumber)
	if err != nil {
		return Inode{}, err
	}

	sectorData := make([]byte, common.SectorSize)
	err = fs.device.ReadSector(sector, sectorData)
	if err != nil {
		return Inode{}, err
	}

	inode, err := decodeInode(sectorData, offset)
	if err != nil {
		return Inode{}, err
	}
	if !inode.IsAllocated() {
		return inode, errors.ErrUnallocatedInode.WithMessage(fmt.Sprintf("inode %d", inumber))
	}
	return inode, nil
}

// WriteInode overwrites the on-disk inode numbered `inumber`. The other inodes
// sharing its sector are preserved.
func (fs *FileSystem) WriteInode(inumber Inumber, inode *Inode) error {
	sector, offset, err := fs.inodeLocation(inumber)
	if err != nil {
		return err
	}

	sectorData := make([]byte, common.SectorSize)
	err = fs.device.ReadSector(sector, sectorData)
	if err != nil {
		return err
	}

	err = encodeInode(sectorData, offset, inode)
	if err != nil {
		return err
	}
	return fs.device.WriteSector(sector, sectorData)
}

// AllocateInode reserves the lowest free inode number. Nothing is written to
// disk.
func (fs *FileSystem) AllocateInode() (Inumber, error) {
	err := fs.checkMounted()
	if err != nil {
		return 0, err
	}

	unit, err := fs.inodeBitmap.AllocateSingle()
	if err != nil {
		return 0, err
	}
	return Inumber(unit), nil
}

// FindSector returns the sector holding the `offset`th sector-sized block of
// the file described by `inode`.
func (fs *FileSystem) FindSector(inode *Inode, offset int64) (BlockNum, error) {
	if !inode.IsAllocated() {
		return 0, errors.ErrUnallocatedInode
	}

	size := inode.Size()
	if size > MaxFileSize {
		return 0, errors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("file is %d bytes, can't address more than %d", size, MaxFileSize))
	}
	if offset < 0 || offset*common.SectorSize >= size {
		return 0, errors.ErrOffsetOutOfRange.WithMessage(
			fmt.Sprintf("block %d of a %d-byte file", offset, size))
	}

	if size <= MaxSmallFileSize {
		return inode.Addr[offset], nil
	}

	slot := offset / AddressesPerSector
	indirect, err := fs.readAddressSector(inode.Addr[slot])
	if err != nil {
		return 0, err
	}
	return indirect[offset%AddressesPerSector], nil
}

func (fs *FileSystem) readAddressSector(sector BlockNum) ([]BlockNum, error) {
	sectorData := make([]byte, common.SectorSize)
	err := fs.device.ReadSector(common.PhysicalBlock(sector), sectorData)
	if err != nil {
		return nil, err
	}

	addresses := make([]BlockNum, AddressesPerSector)
	for i := range addresses {
		addresses[i] = BlockNum(binary.LittleEndian.Uint16(sectorData[i*2:]))
	}
	return addresses, nil
}

func (fs *FileSystem) writeAddressSector(sector BlockNum, addresses []BlockNum) error {
	sectorData := make([]byte, common.SectorSize)
	for i, address := range addresses {
		binary.LittleEndian.PutUint16(sectorData[i*2:], uint16(address))
	}
	return fs.device.WriteSector(common.PhysicalBlock(sector), sectorData)
}

// ScanInodes calls `callback` with each inode in order, starting from 1. It
// stops without error at the first unallocated inode, and stops and returns
// the error if reading an inode or `callback` fails.
func (fs *FileSystem) ScanInodes(callback func(Inumber, *Inode) error) error {
	for i := uint(1); i < fs.NumInodes(); i++ {
		inode, err := fs.ReadInode(Inumber(i))
		if stderrors.Is(err, errors.ErrUnallocatedInode) {
			return nil
		} else if err != nil {
			return err
		}

		err = callback(Inumber(i), &inode)
		if err != nil {
			return err
		}
	}
	return nil
}
