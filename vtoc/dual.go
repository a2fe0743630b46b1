package vtoc

import "github.com/eightbitatr/atrfs"

// DualBitmap composes two Bitmaps the way DOS 2.5 does: a primary bitmap
// covering the low sector range and a second, duplicate-on-write bitmap
// covering the high range. The original firmware treats the second
// bitmap's copy of the low range as write-only; this module follows that
// behavior rather than "fixing" it (see DESIGN.md).
type DualBitmap struct {
	Primary *Bitmap
	Second  *Bitmap
}

// IsFree checks whichever bitmap covers unit.
func (d *DualBitmap) IsFree(unit uint) bool {
	if unit >= d.Primary.Base && unit < d.Primary.Base+d.Primary.Count {
		return d.Primary.IsFree(unit)
	}
	return d.Second.IsFree(unit)
}

// MarkAllocated clears the bit in whichever bitmap covers unit, and mirrors
// the write into the duplicate low-range copy the second bitmap carries.
func (d *DualBitmap) MarkAllocated(unit uint) *atrfs.DriverError {
	return d.mutate(unit, false)
}

// MarkFree sets the bit in whichever bitmap covers unit, mirroring the
// duplicate copy the same way MarkAllocated does.
func (d *DualBitmap) MarkFree(unit uint) *atrfs.DriverError {
	return d.mutate(unit, true)
}

func (d *DualBitmap) mutate(unit uint, free bool) *atrfs.DriverError {
	var derr *atrfs.DriverError
	if unit >= d.Primary.Base && unit < d.Primary.Base+d.Primary.Count {
		if free {
			derr = d.Primary.MarkFree(unit)
		} else {
			derr = d.Primary.MarkAllocated(unit)
		}
		if derr != nil {
			return derr
		}
		// Mirror into the second bitmap's duplicate low-range copy, if it
		// has one. Real DOS 2.5 images carry this duplicate; we write it
		// for byte-fidelity even though nothing reads it back.
		if unit >= d.Second.Base && unit < d.Second.Base+d.Second.Count {
			if free {
				return d.Second.MarkFree(unit)
			}
			return d.Second.MarkAllocated(unit)
		}
		return nil
	}

	if free {
		return d.Second.MarkFree(unit)
	}
	return d.Second.MarkAllocated(unit)
}

// CountFree sums the free counters of both bitmaps, clamped to each
// bitmap's own coverage so the duplicate low-range copy in Second isn't
// double-counted.
func (d *DualBitmap) CountFree() uint {
	return d.Primary.CountFree() + d.countFreeExclusive()
}

func (d *DualBitmap) countFreeExclusive() uint {
	var n uint
	for i := uint(0); i < d.Second.Count; i++ {
		unit := d.Second.Base + i
		if unit >= d.Primary.Base && unit < d.Primary.Base+d.Primary.Count {
			continue
		}
		if d.Second.IsFree(unit) {
			n++
		}
	}
	return n
}

// AllocateFirst scans the primary bitmap first, then the second's
// exclusive range, matching DOS 2.5's split-search allocation policy.
func (d *DualBitmap) AllocateFirst() (uint, *atrfs.DriverError) {
	if unit, derr := d.Primary.AllocateFirst(); derr == nil {
		if unit >= d.Second.Base && unit < d.Second.Base+d.Second.Count {
			_ = d.Second.MarkAllocated(unit)
		}
		return unit, nil
	}

	for i := uint(0); i < d.Second.Count; i++ {
		unit := d.Second.Base + i
		if unit >= d.Primary.Base && unit < d.Primary.Base+d.Primary.Count {
			continue
		}
		if d.Second.IsFree(unit) {
			return unit, d.Second.MarkAllocated(unit)
		}
	}
	return 0, atrfs.ErrNoSpace
}

// AllocateContiguousRun tries the primary bitmap, then the second. A run is
// never split across the two, matching that MyDOS (the only DOS-family
// variant needing contiguous runs) never uses a dual-bitmap layout.
func (d *DualBitmap) AllocateContiguousRun(count uint) (uint, *atrfs.DriverError) {
	if unit, derr := d.Primary.AllocateContiguousRun(count); derr == nil {
		return unit, nil
	}
	return d.Second.AllocateContiguousRun(count)
}
