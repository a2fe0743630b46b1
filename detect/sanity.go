// Package detect implements the per-format sanity predicates and the
// fixed-order auto-detect sweep that picks an engine for an image whose
// on-disk format isn't already known, generalizing the geometry-sniffing
// validity checks in dargueta-disko's drivers/fat8/driver.go Mount() into a
// predicate-per-variant table.
package detect

import (
	"fmt"

	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/vtoc"
)

const (
	vtocSector          = 360
	vtocMarkerOffset    = 0
	vtocFreeCountOffset = 3
	vtocBitmapOffset    = 10
	vtocBitmapLen       = 118
	vtocBitmapCoverage  = vtocBitmapLen * 8

	markerDOS1 = 1
	markerDOS2 = 2

	rootDirStart   = 361
	rootDirSectors = 8
	direntSize     = 16
	flagDir        = 0x10
	flagDeleted    = 0x80
)

// reservedSectorsSane checks the universal invariant that sector 0 and the
// VTOC/root-directory range (360..368) are always allocated (bit clear) in a
// properly formatted image.
func reservedSectorsSane(bm *vtoc.Bitmap) error {
	if bm.IsFree(0) {
		return fmt.Errorf("bitmap bit 0 (sector 0) is marked free, should be permanently allocated")
	}
	for s := uint(360); s <= 368; s++ {
		if bm.IsFree(s) {
			return fmt.Errorf("bitmap bit %d is marked free, should be reserved for VTOC/root directory", s)
		}
	}
	return nil
}

// rootDirFlagsSane rejects a root directory whose flag byte has undefined
// bits set failure semantics for sanity().
func rootDirFlagsSane(c *container.Container) error {
	const validBits = 0x01 | 0x02 | 0x04 | 0x10 | 0x20 | 0x40 | 0x80
	for s := uint(rootDirStart); s < rootDirStart+rootDirSectors; s++ {
		sec, derr := c.Sector(s)
		if derr != nil {
			return derr
		}
		for slot := 0; slot < 8; slot++ {
			flags := sec[slot*direntSize]
			if flags&^validBits != 0 {
				return fmt.Errorf("root directory sector %d slot %d has undefined flag bits set: %#02x", s, slot, flags)
			}
		}
	}
	return nil
}

func vtocMarkerAndBitmap(c *container.Container) (byte, *vtoc.Bitmap, error) {
	sec, derr := c.Sector(vtocSector)
	if derr != nil {
		return 0, nil, derr
	}
	marker := sec[vtocMarkerOffset]
	buf := append([]byte(nil), sec[vtocBitmapOffset:vtocBitmapOffset+vtocBitmapLen]...)
	return marker, vtoc.FromBytes(buf, 0, vtocBitmapCoverage), nil
}

// sanityDOS1 checks for the VTOC marker byte 1 and the universal reserved-
// sector/root-directory-flag invariants.
func sanityDOS1(c *container.Container) error {
	marker, bm, err := vtocMarkerAndBitmap(c)
	if err != nil {
		return err
	}
	if marker != markerDOS1 {
		return fmt.Errorf("VTOC marker byte %d, want %d (DOS1)", marker, markerDOS1)
	}
	if err := reservedSectorsSane(bm); err != nil {
		return err
	}
	return rootDirFlagsSane(c)
}

// sanityDOS2 checks for the shared DOS2/DOS2.5/MyDOS marker byte 2, a free
// counter that fits within the image's total sectors, and the universal
// invariants, but rejects images too large to fit the single primary bitmap
// (those are DOS2.5 or MyDOS candidates instead).
func sanityDOS2(c *container.Container) error {
	marker, bm, err := vtocMarkerAndBitmap(c)
	if err != nil {
		return err
	}
	if marker != markerDOS2 {
		return fmt.Errorf("VTOC marker byte %d, want %d (DOS2)", marker, markerDOS2)
	}
	if c.SectorCount > vtocBitmapCoverage {
		return fmt.Errorf("image has %d sectors, too many for a single %d-sector primary bitmap", c.SectorCount, vtocBitmapCoverage)
	}
	sec, derr := c.Sector(vtocSector)
	if derr != nil {
		return derr
	}
	free := uint(sec[vtocFreeCountOffset]) | uint(sec[vtocFreeCountOffset+1])<<8
	if free > c.SectorCount {
		return fmt.Errorf("VTOC free-sector count %d exceeds total sectors %d", free, c.SectorCount)
	}
	if err := reservedSectorsSane(bm); err != nil {
		return err
	}
	if err := rootDirFlagsSane(c); err != nil {
		return err
	}
	if hasSubdirectoryFlag(c) {
		return fmt.Errorf("root directory contains a subdirectory entry, not plain DOS2")
	}
	return nil
}

// sanityDOS25 checks for the shared marker byte 2, at least 1024 sectors, a
// readable second VTOC sector at 1024, and the universal reserved-sector/
// root-directory-flag invariants. Unlike sanityDOS2 it has no size ceiling
// and does not check the free counter or look for subdirectory entries.
func sanityDOS25(c *container.Container) error {
	marker, bm, err := vtocMarkerAndBitmap(c)
	if err != nil {
		return err
	}
	if marker != markerDOS2 {
		return fmt.Errorf("VTOC marker byte %d, want %d (DOS2.5)", marker, markerDOS2)
	}
	if c.SectorCount < 1024 {
		return fmt.Errorf("image has only %d sectors, too few to hold a second VTOC at sector 1024", c.SectorCount)
	}
	if _, derr := c.Sector(1024); derr != nil {
		return derr
	}
	if err := reservedSectorsSane(bm); err != nil {
		return err
	}
	return rootDirFlagsSane(c)
}

// sanityMyDOS accepts the shared marker byte plus evidence of hierarchical
// subdirectories (a root-directory entry with the DIR flag set) or an image
// too large for the single primary bitmap (which only MyDOS's extending
// bitmap can cover without a second fixed-position VTOC sector). This is an
// approximation: nothing in the bitmap layout itself distinguishes a flat
// MyDOS volume from plain DOS2 bit-for-bit, so detection leans on the one
// behavioral difference that is observable without mounting the image for
// write.
func sanityMyDOS(c *container.Container) error {
	marker, bm, err := vtocMarkerAndBitmap(c)
	if err != nil {
		return err
	}
	if marker != markerDOS2 {
		return fmt.Errorf("VTOC marker byte %d, want %d (MyDOS)", marker, markerDOS2)
	}
	if err := reservedSectorsSane(bm); err != nil {
		return err
	}
	if err := rootDirFlagsSane(c); err != nil {
		return err
	}
	if c.SectorCount <= vtocBitmapCoverage && !hasSubdirectoryFlag(c) {
		return fmt.Errorf("no subdirectory entries and image fits the primary bitmap; not distinguishable from DOS2")
	}
	return nil
}

func hasSubdirectoryFlag(c *container.Container) bool {
	for s := uint(rootDirStart); s < rootDirStart+rootDirSectors; s++ {
		sec, derr := c.Sector(s)
		if derr != nil {
			return false
		}
		for slot := 0; slot < 8; slot++ {
			flags := sec[slot*direntSize]
			if flags == 0 {
				return false
			}
			if flags&flagDeleted == 0 && flags&flagDir != 0 {
				return true
			}
		}
	}
	return false
}

// sanityLiteDOS requires the VTOC byte 0 top two bits to read 01 and the
// remaining 6 bits to encode a valid cluster size.
func sanityLiteDOS(c *container.Container) error {
	sec, derr := c.Sector(vtocSector)
	if derr != nil {
		return derr
	}
	b := sec[vtocMarkerOffset]
	if b&0xC0 != 0x40 {
		return fmt.Errorf("VTOC byte 0 top bits %#02x, want 01", b>>6)
	}
	clusterSize := uint(b&0x3F) + 1
	switch clusterSize {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return fmt.Errorf("invalid LiteDOS cluster-size encoding: %d", clusterSize)
	}
	return rootDirFlagsSane(c)
}

// sanitySparta requires sector 1's byte 0 to be 'S' and its decoded volume
// header to describe a bitmap that plausibly covers the image.
func sanitySparta(c *container.Container) error {
	sec, derr := c.Sector(1)
	if derr != nil {
		return derr
	}
	if sec[0] != 'S' {
		return fmt.Errorf("sector 1 byte 0 is %#02x, want 'S' (0x53)", sec[0])
	}
	hdr, ok := decodeHeaderForSanity(sec)
	if !ok {
		return fmt.Errorf("sector 1 does not decode as a Sparta volume header")
	}
	if hdr.free > hdr.sectors {
		return fmt.Errorf("free-sector count %d exceeds total sectors %d", hdr.free, hdr.sectors)
	}
	if uint(hdr.bitmapSectors)*c.SectorSize*8 < uint(hdr.sectors) {
		return fmt.Errorf("bitmap_sectors=%d too small to cover %d sectors", hdr.bitmapSectors, hdr.sectors)
	}
	if hdr.firstBitmap < 2 || uint(hdr.firstBitmap)+uint(hdr.bitmapSectors) > c.SectorCount {
		return fmt.Errorf("first_bitmap=%d/bitmap_sectors=%d out of range for a %d-sector image", hdr.firstBitmap, hdr.bitmapSectors, c.SectorCount)
	}
	return nil
}

// minimalSpartaHeader decodes only the handful of sector-1 fields the sanity
// check needs, so the predicate does not depend on sparta's full
// VolumeHeader decoder (detect imports sparta only to open the engine once
// the predicate has passed).
type minimalSpartaHeader struct {
	sectors, free, bitmapSectors, firstBitmap uint16
}

func decodeHeaderForSanity(sec []byte) (minimalSpartaHeader, bool) {
	if sec[0] != 'S' {
		return minimalSpartaHeader{}, false
	}
	le := func(off int) uint16 { return uint16(sec[off]) | uint16(sec[off+1])<<8 }
	return minimalSpartaHeader{
		sectors:       le(4),
		free:          le(6),
		bitmapSectors: le(8),
		firstBitmap:   le(10),
	}, true
}
