// Bitmap allocator

package common

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/u6fs/errors"
)

// Allocator tracks which units in the range [Base(), Base() + Capacity()) are in
// use. The capacity is fixed at creation and never grows; once every unit is
// used, allocation fails with [errors.ErrBitmapFull].
//
// Nothing is ever freed: the on-disk format this serves has no deletion.
type Allocator struct {
	allocationBitmap bitmap.Bitmap
	base             UnitID
	capacity         uint
}

// NewAllocator creates a new allocation bitmap covering `capacity` units
// starting at `base`, with all bits cleared.
func NewAllocator(base UnitID, capacity uint) (*Allocator, error) {
	if capacity == 0 {
		return nil, errors.ErrInvalidArgument.WithMessage(
			"can't create an allocation bitmap with no units")
	}
	if uint64(base)+uint64(capacity) > math.MaxUint16+1 {
		return nil, errors.ErrOutOfMemory.WithMessage(
			fmt.Sprintf(
				"allocation bitmap [%d, %d) exceeds the 16-bit address space",
				base,
				uint64(base)+uint64(capacity),
			),
		)
	}

	return &Allocator{
		allocationBitmap: bitmap.New(int(capacity)),
		base:             base,
		capacity:         capacity,
	}, nil
}

// Base returns the ID of the first unit tracked by the bitmap.
func (alloc *Allocator) Base() UnitID {
	return alloc.base
}

// Capacity returns the number of units tracked by the bitmap.
func (alloc *Allocator) Capacity() uint {
	return alloc.capacity
}

func (alloc *Allocator) indexOf(unit UnitID) (int, error) {
	if unit < alloc.base || uint(unit-alloc.base) >= alloc.capacity {
		return -1, errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"invalid unit id: %d not in range [%d, %d)",
				unit,
				alloc.base,
				uint(alloc.base)+alloc.capacity,
			),
		)
	}
	return int(unit - alloc.base), nil
}

// FindNextFree returns the lowest unit that isn't in use, without marking it.
// If no units are available, it returns an error.
func (alloc *Allocator) FindNextFree() (UnitID, error) {
	data := alloc.allocationBitmap.Data(false)
	for byteIndex, value := range data {
		if value == 0xff {
			continue
		}
		for i := byteIndex * 8; i < (byteIndex+1)*8 && uint(i) < alloc.capacity; i++ {
			if !alloc.allocationBitmap.Get(i) {
				return alloc.base + UnitID(i), nil
			}
		}
	}

	return 0, errors.ErrBitmapFull.WithMessage(
		fmt.Sprintf("all %d units starting at %d are in use", alloc.capacity, alloc.base))
}

// MarkUsed flags a unit as allocated. Marking a unit that's already in use is
// not an error.
func (alloc *Allocator) MarkUsed(unit UnitID) error {
	index, err := alloc.indexOf(unit)
	if err != nil {
		return err
	}
	alloc.allocationBitmap.Set(index, true)
	return nil
}

// IsUsed returns true if `unit` is allocated. Units outside the bitmap's range
// are reported as unused.
func (alloc *Allocator) IsUsed(unit UnitID) bool {
	index, err := alloc.indexOf(unit)
	if err != nil {
		return false
	}
	return alloc.allocationBitmap.Get(index)
}

// IsInRange returns true if `unit` is tracked by this bitmap.
func (alloc *Allocator) IsInRange(unit UnitID) bool {
	_, err := alloc.indexOf(unit)
	return err == nil
}

// AllocateSingle allocates the first available unit it finds and returns its
// ID. If no units are available, it returns an error.
func (alloc *Allocator) AllocateSingle() (UnitID, error) {
	unit, err := alloc.FindNextFree()
	if err != nil {
		return 0, err
	}
	return unit, alloc.MarkUsed(unit)
}

// CountUsed returns the number of units currently allocated.
func (alloc *Allocator) CountUsed() uint {
	total := uint(0)
	for i := 0; uint(i) < alloc.capacity; i++ {
		if alloc.allocationBitmap.Get(i) {
			total++
		}
	}
	return total
}

// Print writes a human-readable dump of the bitmap to `w`, 64 units per line in
// groups of 8.
func (alloc *Allocator) Print(w io.Writer, name string) error {
	var builder strings.Builder

	fmt.Fprintf(&builder, "**********BitMap Block %s START**********\n", name)
	fmt.Fprintf(&builder, "length: %d\n", alloc.capacity)
	fmt.Fprintf(&builder, "min: %d\n", alloc.base)
	fmt.Fprintf(&builder, "max: %d\n", uint(alloc.base)+alloc.capacity-1)
	fmt.Fprintf(&builder, "used: %d\n", alloc.CountUsed())
	builder.WriteString("content:\n")

	for lineStart := 0; uint(lineStart) < alloc.capacity; lineStart += 64 {
		fmt.Fprintf(&builder, "%d:", lineStart/64)
		for i := lineStart; i < lineStart+64 && uint(i) < alloc.capacity; i++ {
			if i%8 == 0 {
				builder.WriteByte(' ')
			}
			if alloc.allocationBitmap.Get(i) {
				builder.WriteByte('1')
			} else {
				builder.WriteByte('0')
			}
		}
		builder.WriteByte('\n')
	}
	fmt.Fprintf(&builder, "**********BitMap Block %s END************\n", name)

	_, err := io.WriteString(w, builder.String())
	return err
}
