// Package common contains the storage primitives the file system is built on:
// whole-sector I/O against the disk image and bitmap allocation of numbered
// units.
package common

// PhysicalBlock is the index of a sector on the disk image.
type PhysicalBlock uint

// UnitID identifies one slot tracked by an [Allocator], e.g. an inode number or
// a sector number.
type UnitID uint32

// SectorSize is the fundamental unit of all disk I/O, in bytes.
const SectorSize = 512
