package sparta

import (
	"time"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/vtoc"
)

// Format writes a fresh volume header, free bitmap, and empty root
// directory for a Sparta/SDFS volume onto c, which must already be a
// zero-filled, correctly sized container (as returned by container.Create).
// The bitmap occupies the sectors immediately after the header, the root
// directory's map sector is the first sector past the bitmap, and the root
// directory's first data sector (holding its header entry) follows the map
// sector. revision
// selects the 126-entry or 1423-entry directory size class through
// VolumeHeader.MaxDirEntries.
func Format(c *container.Container, volumeName string, revision byte) *atrfs.DriverError {
	bitsPerSector := uint(c.SectorSize) * 8
	bitmapSectors := uint16((uint(c.SectorCount) + bitsPerSector - 1) / bitsPerSector)
	firstBitmap := uint16(2)
	rootMap := firstBitmap + bitmapSectors
	rootData := rootMap + 1

	hdr := VolumeHeader{
		Revision:      revision,
		Dir:           rootMap,
		Sectors:       uint16(c.SectorCount),
		BitmapSectors: bitmapSectors,
		FirstBitmap:   firstBitmap,
		VolumeName:    volumeName,
	}

	bm := vtoc.NewBitmap(0, uint(c.SectorCount))
	for sec := uint(1); sec <= uint(rootData); sec++ {
		if derr := bm.MarkAllocated(sec); derr != nil {
			return derr
		}
	}
	for sec := uint(rootData) + 1; sec < uint(c.SectorCount); sec++ {
		if derr := bm.MarkFree(sec); derr != nil {
			return derr
		}
	}
	hdr.Free = uint16(bm.CountFree())

	sec1, derr := c.Sector(1)
	if derr != nil {
		return derr
	}
	hdr.Encode(sec1)
	if derr := c.WriteSector(1, sec1); derr != nil {
		return derr
	}

	run := bm.Bytes()
	for i := uint16(0); i < bitmapSectors; i++ {
		start := int(i) * int(c.SectorSize)
		end := start + int(c.SectorSize)
		if end > len(run) {
			end = len(run)
		}
		chunk := make([]byte, c.SectorSize)
		copy(chunk, run[start:end])
		if derr := c.WriteSector(uint(firstBitmap)+uint(i), chunk); derr != nil {
			return derr
		}
	}

	mapSec, derr := c.Sector(uint(rootMap))
	if derr != nil {
		return derr
	}
	setMapSlot(mapSec, 0, rootData)
	if derr := c.WriteSector(uint(rootMap), mapSec); derr != nil {
		return derr
	}

	rootSec, derr := c.Sector(uint(rootData))
	if derr != nil {
		return derr
	}
	now := time.Now()
	hdrEnt := Dirent{MapSector: 0, Size: 2 * direntSize, Name: volumeName, Stamp: now}
	buf := make([]byte, direntSize)
	hdrEnt.Encode(buf)
	copy(rootSec[0:direntSize], buf)
	// The header's own blank trailing entry, matching how extendDirectory
	// and Mkdir always leave one unused slot past the last live entry.
	blank := make([]byte, direntSize)
	copy(rootSec[direntSize:2*direntSize], blank)
	return c.WriteSector(uint(rootData), rootSec)
}
