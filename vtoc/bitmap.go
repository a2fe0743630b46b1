// Package vtoc implements the free-sector bitmap shared by every DOS-family
// format (DOS 1/2/2.5/MyDOS/LiteDOS) and by Sparta, generalizing the
// allocator in dargueta-disko's drivers/common/allocatormap.go to the
// on-disk bit convention: sector/8 selects the byte, 7-(sector mod 8)
// selects the bit within it, and 1 means free, 0 means
// allocated. That is exactly boljen/go-bitmap's own bit order, so the
// in-memory representation can be read and written straight from the sector
// bytes without any re-packing step.
package vtoc

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/eightbitatr/atrfs"
)

// Bitmap is a free-sector (or free-cluster, for LiteDOS) bitmap covering a
// contiguous range [Base, Base+Count) of unit numbers.
type Bitmap struct {
	bits  bitmap.Bitmap
	Base  uint
	Count uint
}

// NewBitmap creates an all-allocated bitmap covering count units starting at
// base. Callers mark reserved and data units free explicitly; nothing is
// free by default, matching how a freshly formatted image starts out with
// every sector accounted for until the format routine frees the unused ones.
func NewBitmap(base, count uint) *Bitmap {
	return &Bitmap{bits: bitmap.New(int(count)), Base: base, Count: count}
}

// FromBytes wraps raw on-disk bytes (read directly out of a VTOC sector) as
// a Bitmap covering count units starting at base. The byte slice is used in
// place, not copied, so writes through the Bitmap are visible in buf and vice
// versa.
func FromBytes(buf []byte, base, count uint) *Bitmap {
	return &Bitmap{bits: bitmap.Bitmap(buf), Base: base, Count: count}
}

// Bytes returns the backing bit storage, sized to hold Count bits.
func (b *Bitmap) Bytes() []byte {
	return []byte(b.bits)
}

func (b *Bitmap) index(unit uint) (int, error) {
	if unit < b.Base || unit >= b.Base+b.Count {
		return 0, fmt.Errorf("unit %d out of range [%d, %d)", unit, b.Base, b.Base+b.Count)
	}
	return int(unit - b.Base), nil
}

// IsFree reports whether unit is marked free. An out-of-range unit is always
// reported allocated, since it isn't covered by this bitmap at all.
func (b *Bitmap) IsFree(unit uint) bool {
	i, err := b.index(unit)
	if err != nil {
		return false
	}
	return b.bits.Get(i)
}

// MarkAllocated clears the free bit for unit.
func (b *Bitmap) MarkAllocated(unit uint) *atrfs.DriverError {
	i, err := b.index(unit)
	if err != nil {
		return atrfs.ErrInvalid.WithMessage("%s", err)
	}
	b.bits.Set(i, false)
	return nil
}

// MarkFree sets the free bit for unit.
func (b *Bitmap) MarkFree(unit uint) *atrfs.DriverError {
	i, err := b.index(unit)
	if err != nil {
		return atrfs.ErrInvalid.WithMessage("%s", err)
	}
	b.bits.Set(i, true)
	return nil
}

// CountFree returns the number of free units, which every format keeps in
// sync with an on-disk free-sector counter.
func (b *Bitmap) CountFree() uint {
	var n uint
	for i := uint(0); i < b.Count; i++ {
		if b.bits.Get(int(i)) {
			n++
		}
	}
	return n
}

// AllocateFirst finds the lowest-numbered free unit, marks it allocated, and
// returns its unit number. MyDOS and Sparta single-sector allocation both use
// first-fit scanning.
func (b *Bitmap) AllocateFirst() (uint, *atrfs.DriverError) {
	for i := uint(0); i < b.Count; i++ {
		if b.bits.Get(int(i)) {
			b.bits.Set(int(i), false)
			return b.Base + i, nil
		}
	}
	return 0, atrfs.ErrNoSpace
}

// AllocateContiguousRun finds the first run of count consecutive free units,
// marks them all allocated, and returns the run's starting unit number. Used
// by MyDOS's mkdir (an 8-sector contiguous directory).
func (b *Bitmap) AllocateContiguousRun(count uint) (uint, *atrfs.DriverError) {
	if count == 0 {
		return 0, atrfs.ErrInvalid.WithMessage("cannot allocate a run of 0 units")
	}

	runLen := uint(0)
	var runStart uint
	for i := uint(0); i < b.Count; i++ {
		if !b.bits.Get(int(i)) {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
		if runLen == count {
			for j := runStart; j < runStart+count; j++ {
				b.bits.Set(int(j), false)
			}
			return b.Base + runStart, nil
		}
	}
	return 0, atrfs.ErrNoSpace
}
