package vtoc

import "github.com/eightbitatr/atrfs"

// ExtendingBitmap is MyDOS's variable-length VTOC: the bitmap starts at
// sector 360 offset 10 like every other DOS-family format, but for images
// larger than 943 sectors it grows downward across sectors 359, 358, ... as
// needed, one whole sector (SectorSize*8 bits) at a time. Each backing
// sector is wrapped as its own
// Bitmap; ExtendingBitmap dispatches to whichever one covers a given unit.
type ExtendingBitmap struct {
	sections []*Bitmap
}

// NewExtendingBitmap assembles an ExtendingBitmap from sections ordered by
// increasing Base. Sections must be contiguous and non-overlapping; callers
// build them from the VTOC sectors MyDOS allocates for the bitmap extension.
func NewExtendingBitmap(sections ...*Bitmap) *ExtendingBitmap {
	return &ExtendingBitmap{sections: sections}
}

func (e *ExtendingBitmap) sectionFor(unit uint) *Bitmap {
	for _, s := range e.sections {
		if unit >= s.Base && unit < s.Base+s.Count {
			return s
		}
	}
	return nil
}

func (e *ExtendingBitmap) IsFree(unit uint) bool {
	s := e.sectionFor(unit)
	if s == nil {
		return false
	}
	return s.IsFree(unit)
}

func (e *ExtendingBitmap) MarkAllocated(unit uint) *atrfs.DriverError {
	s := e.sectionFor(unit)
	if s == nil {
		return atrfs.ErrInvalid.WithMessage("unit %d not covered by any VTOC extension sector", unit)
	}
	return s.MarkAllocated(unit)
}

func (e *ExtendingBitmap) MarkFree(unit uint) *atrfs.DriverError {
	s := e.sectionFor(unit)
	if s == nil {
		return atrfs.ErrInvalid.WithMessage("unit %d not covered by any VTOC extension sector", unit)
	}
	return s.MarkFree(unit)
}

func (e *ExtendingBitmap) CountFree() uint {
	var n uint
	for _, s := range e.sections {
		n += s.CountFree()
	}
	return n
}

// AllocateFirst scans sections in the order they were given to
// NewExtendingBitmap, which callers construct low-sector-first so this
// matches MyDOS's first-fit-across-the-whole-image allocation policy.
func (e *ExtendingBitmap) AllocateFirst() (uint, *atrfs.DriverError) {
	for _, s := range e.sections {
		if unit, derr := s.AllocateFirst(); derr == nil {
			return unit, nil
		}
	}
	return 0, atrfs.ErrNoSpace
}

// AllocateContiguousRun tries each section in order; a run is never split
// across sections.
func (e *ExtendingBitmap) AllocateContiguousRun(count uint) (uint, *atrfs.DriverError) {
	for _, s := range e.sections {
		if unit, derr := s.AllocateContiguousRun(count); derr == nil {
			return unit, nil
		}
	}
	return 0, atrfs.ErrNoSpace
}
