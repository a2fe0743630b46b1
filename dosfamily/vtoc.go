package dosfamily

import (
	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/common"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/vtoc"
)

// VTOC sector byte offsets. The marker byte is at offset 0; the bitmap
// itself starts at offset 10 and covers 118 bytes (sectors 0..943). The
// free-sector counter sits between them.
const (
	vtocMarkerOffset      = 0
	vtocFreeCountOffset   = 3
	vtocBitmapOffset      = 10
	vtocBitmapLen         = 118
	vtocBitmapCoverage    = vtocBitmapLen * 8 // 944 sectors, 0..943
	markerDOS1            = 1
	markerDOS2OrMyDOSOr25 = 2
)

// loadVTOC builds the free-sector allocator for the given variant out of
// the container's VTOC sector(s), and returns the marker byte read from the
// primary VTOC sector for sanity checks.
func loadVTOC(c *container.Container, v Variant) (vtoc.Allocator, byte, *atrfs.DriverError) {
	primarySector, derr := c.Sector(uint(v.VTOCSector))
	if derr != nil {
		return nil, 0, derr
	}
	marker := primarySector[vtocMarkerOffset]

	primary := vtoc.FromBytes(primarySector[vtocBitmapOffset:vtocBitmapOffset+vtocBitmapLen], 0, vtocBitmapCoverage)

	if v.ClusterSize > 1 {
		return vtoc.NewClusterBitmap(primary, v.ClusterSize), marker, nil
	}

	if v.HasSecondVTOC {
		secondSector, derr := c.Sector(uint(v.SecondVTOCSector))
		if derr != nil {
			return nil, 0, derr
		}
		// DOS 2.5's second VTOC sector bitmap covers 720..1023 starting at
		// byte offset 0 (no marker byte reserved in the extension sector).
		second := vtoc.FromBytes(secondSector[0:38], 720, 720+38*8-720)
		return &vtoc.DualBitmap{Primary: primary, Second: second}, marker, nil
	}

	if v.IsMyDOS && uint(v.TotalSectors) > vtocBitmapCoverage {
		sections := []*vtoc.Bitmap{primary}
		remaining := uint(v.TotalSectors) - vtocBitmapCoverage
		nextBase := uint(vtocBitmapCoverage)
		extSector := uint(v.VTOCSector) - 1
		bitsPerSector := uint(v.SectorSize) * 8

		for remaining > 0 && extSector >= 1 {
			count := bitsPerSector
			if count > remaining {
				count = remaining
			}
			sec, derr := c.Sector(extSector)
			if derr != nil {
				return nil, 0, derr
			}
			sections = append(sections, vtoc.FromBytes(sec[:(count+7)/8], nextBase, count))
			nextBase += count
			remaining -= count
			extSector--
		}

		return vtoc.NewExtendingBitmap(sections...), marker, nil
	}

	return primary, marker, nil
}

// readFreeCount reads the on-disk free-sector counter from the primary VTOC
// sector.
func readFreeCount(c *container.Container, v Variant) (uint16, *atrfs.DriverError) {
	sec, derr := c.Sector(uint(v.VTOCSector))
	if derr != nil {
		return 0, derr
	}
	return common.ReadUint16LE(sec[vtocFreeCountOffset : vtocFreeCountOffset+2]), nil
}

// writeFreeCount writes n back into the primary VTOC sector's counter.
func writeFreeCount(c *container.Container, v Variant, n uint16) *atrfs.DriverError {
	sec, derr := c.Sector(uint(v.VTOCSector))
	if derr != nil {
		return derr
	}
	common.WriteUint16LE(sec[vtocFreeCountOffset:vtocFreeCountOffset+2], n)
	return nil
}
