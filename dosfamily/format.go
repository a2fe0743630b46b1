package dosfamily

import (
	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
)

// Format writes a fresh VTOC and empty root directory for v onto c, which
// must already be a zero-filled, correctly sized container (as returned by
// container.Create). The boot sectors, VTOC sector(s), and root directory
// sectors are marked allocated, as are the bitmap bits for sectors past the
// end of the image; every other sector is marked free. The root
// directory itself is left zero-filled, which is already a well-formed
// empty directory: a zero Flags byte is the end-of-directory sentinel.
func Format(c *container.Container, v Variant) *atrfs.DriverError {
	marker := byte(markerDOS2OrMyDOSOr25)
	switch {
	case v.IsDOS1:
		marker = markerDOS1
	case v.FSType == atrfs.FSTypeLiteDOS:
		// LiteDOS tags the marker byte's top two bits 01 and packs
		// (clusterSize - 1) into the low 6 bits, so it can never collide
		// with the DOS1/DOS2 marker values (1 and 2, both 00 in those
		// bits); detect.sanityLiteDOS checks the tag and
		// detect.openLiteDOS recovers the cluster size from the low bits.
		marker = 0x40 | byte(v.ClusterSize-1)
	}

	primarySector, derr := c.Sector(uint(v.VTOCSector))
	if derr != nil {
		return derr
	}
	primarySector[vtocMarkerOffset] = marker
	for i := 0; i < vtocBitmapLen; i++ {
		primarySector[vtocBitmapOffset+i] = 0xFF
	}
	if derr := c.WriteSector(uint(v.VTOCSector), primarySector); derr != nil {
		return derr
	}

	if v.HasSecondVTOC {
		secondSector, derr := c.Sector(uint(v.SecondVTOCSector))
		if derr != nil {
			return derr
		}
		for i := range secondSector {
			secondSector[i] = 0xFF
		}
		if derr := c.WriteSector(uint(v.SecondVTOCSector), secondSector); derr != nil {
			return derr
		}
	}

	if v.IsMyDOS && uint(v.TotalSectors) > vtocBitmapCoverage {
		remaining := uint(v.TotalSectors) - vtocBitmapCoverage
		extSector := uint(v.VTOCSector) - 1
		bitsPerSector := uint(v.SectorSize) * 8
		for remaining > 0 && extSector >= 1 {
			sec, derr := c.Sector(extSector)
			if derr != nil {
				return derr
			}
			for i := range sec {
				sec[i] = 0xFF
			}
			if derr := c.WriteSector(extSector, sec); derr != nil {
				return derr
			}
			if remaining <= bitsPerSector {
				remaining = 0
			} else {
				remaining -= bitsPerSector
			}
			extSector--
		}
	}

	alloc, _, derr := loadVTOC(c, v)
	if derr != nil {
		return derr
	}

	// The primary bitmap always spans 944 units; sectors past the end of a
	// smaller image must not be counted or handed out as free.
	coverageEnd := uint(vtocBitmapCoverage)
	if v.ClusterSize > 1 {
		coverageEnd *= v.ClusterSize
	}
	for sec := uint(v.TotalSectors) + 1; sec < coverageEnd; sec++ {
		if alloc.IsFree(sec) {
			if derr := alloc.MarkAllocated(sec); derr != nil {
				return derr
			}
		}
	}

	// Sector 0 doesn't exist on an Atari disk; its bit is permanently
	// allocated so it never gets handed out by AllocateFirst.
	if derr := alloc.MarkAllocated(0); derr != nil {
		return derr
	}
	for sec := uint(1); sec <= 3; sec++ {
		if derr := alloc.MarkAllocated(sec); derr != nil {
			return derr
		}
	}
	if derr := alloc.MarkAllocated(uint(v.VTOCSector)); derr != nil {
		return derr
	}
	if v.HasSecondVTOC {
		if derr := alloc.MarkAllocated(uint(v.SecondVTOCSector)); derr != nil {
			return derr
		}
	}
	for i := uint16(0); i < v.RootDirSectors; i++ {
		if derr := alloc.MarkAllocated(uint(v.RootDirStart) + uint(i)); derr != nil {
			return derr
		}
	}

	return writeFreeCount(c, v, uint16(alloc.CountFree()))
}
