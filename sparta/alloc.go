package sparta

import (
	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/vtoc"
)

// bitmapRun owns the contiguous run of bitmap_sectors sectors starting at
// first_bitmap, concatenated into one vtoc.Bitmap covering every sector of
// the image (bit index == sector number): sector/8 selects the byte,
// 7-(sector mod 8) the bit.
type bitmapRun struct {
	c           *container.Container
	firstSector uint16
	numSectors  uint16
	bm          *vtoc.Bitmap
}

func loadBitmapRun(c *container.Container, firstSector, numSectors uint16, totalSectors uint) (*bitmapRun, *atrfs.DriverError) {
	buf := make([]byte, int(numSectors)*int(c.SectorSize))
	for i := uint16(0); i < numSectors; i++ {
		sec, derr := c.Sector(uint(firstSector) + uint(i))
		if derr != nil {
			return nil, derr
		}
		copy(buf[int(i)*int(c.SectorSize):], sec)
	}
	return &bitmapRun{
		c:           c,
		firstSector: firstSector,
		numSectors:  numSectors,
		bm:          vtoc.FromBytes(buf, 0, totalSectors),
	}, nil
}

// flush writes the concatenated bitmap buffer back out across its sectors.
func (r *bitmapRun) flush() *atrfs.DriverError {
	buf := r.bm.Bytes()
	for i := uint16(0); i < r.numSectors; i++ {
		start := int(i) * int(r.c.SectorSize)
		end := start + int(r.c.SectorSize)
		if end > len(buf) {
			end = len(buf)
		}
		chunk := make([]byte, r.c.SectorSize)
		copy(chunk, buf[start:end])
		if derr := r.c.WriteSector(uint(r.firstSector)+uint(i), chunk); derr != nil {
			return derr
		}
	}
	return nil
}

func (r *bitmapRun) AllocateFirst() (uint, *atrfs.DriverError) {
	unit, derr := r.bm.AllocateFirst()
	if derr != nil {
		return 0, derr
	}
	return unit, r.flush()
}

func (r *bitmapRun) MarkFree(unit uint) *atrfs.DriverError {
	if derr := r.bm.MarkFree(unit); derr != nil {
		return derr
	}
	return r.flush()
}

func (r *bitmapRun) MarkAllocated(unit uint) *atrfs.DriverError {
	if derr := r.bm.MarkAllocated(unit); derr != nil {
		return derr
	}
	return r.flush()
}

func (r *bitmapRun) CountFree() uint { return r.bm.CountFree() }
