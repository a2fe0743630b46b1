// Package sparta implements the SpartaDOS/SDFS on-disk layout: sector-map
// ("inode") files, hierarchical directories with timestamps, sparse holes,
// and a contiguous multi-sector free bitmap, generalizing the inode/dirent
// split mined from dargueta-disko's drivers/unixv6 and the allocate/free
// pattern from drivers/common/blockmanager.go to Sparta's own traversal and
// sparse-file rules.
package sparta

import (
	"bytes"
	"time"

	"github.com/noxer/bytewriter"

	"github.com/eightbitatr/atrfs/common"
)

// marker is the byte-0 value identifying a Sparta volume header, per the
// sanity predicate's "'S' for Sparta" rule.
const marker = 'S'

// RevisionSD20 is the last revision using the 126-entry directory size class;
// anything higher uses the 1423-entry SDFS class.
const RevisionSD20 = 0x20

// Sector-1 volume header byte layout. Not specified at the byte level by the
// on-disk format description available to us; this offset assignment is an
// implementation decision, documented in DESIGN.md, that keeps every named
// field (dir, sectors, free, bitmap_sectors, first_bitmap, volume_name,
// revision) in one 2-byte-aligned little-endian header sector.
const (
	hdrOffMarker        = 0
	hdrOffRevision      = 1
	hdrOffDir           = 2
	hdrOffSectors       = 4
	hdrOffFree          = 6
	hdrOffBitmapSectors = 8
	hdrOffFirstBitmap   = 10
	hdrOffVolumeName    = 12
	hdrVolumeNameLen    = 8
)

// VolumeHeader is sector 1 of a Sparta-formatted image.
type VolumeHeader struct {
	Revision      byte
	Dir           uint16 // root directory's first map sector
	Sectors       uint16 // total sector count (redundant with the container header)
	Free          uint16 // free-sector counter
	BitmapSectors uint16
	FirstBitmap   uint16
	VolumeName    string
}

// DecodeVolumeHeader parses sector 1. ok is false if the marker byte isn't
// 'S'.
func DecodeVolumeHeader(sec []byte) (VolumeHeader, bool) {
	if sec[hdrOffMarker] != marker {
		return VolumeHeader{}, false
	}
	name := bytes.TrimRight(sec[hdrOffVolumeName:hdrOffVolumeName+hdrVolumeNameLen], " ")
	return VolumeHeader{
		Revision:      sec[hdrOffRevision],
		Dir:           common.ReadUint16LE(sec[hdrOffDir:]),
		Sectors:       common.ReadUint16LE(sec[hdrOffSectors:]),
		Free:          common.ReadUint16LE(sec[hdrOffFree:]),
		BitmapSectors: common.ReadUint16LE(sec[hdrOffBitmapSectors:]),
		FirstBitmap:   common.ReadUint16LE(sec[hdrOffFirstBitmap:]),
		VolumeName:    string(name),
	}, true
}

// Encode writes h back into sec (which must be at least a full sector long),
// via a bounded cursor writer over the header's contiguous field layout.
func (h VolumeHeader) Encode(sec []byte) {
	w := bytewriter.New(sec)

	var dir, sectors, free, bitmapSectors, firstBitmap [2]byte
	common.WriteUint16LE(dir[:], h.Dir)
	common.WriteUint16LE(sectors[:], h.Sectors)
	common.WriteUint16LE(free[:], h.Free)
	common.WriteUint16LE(bitmapSectors[:], h.BitmapSectors)
	common.WriteUint16LE(firstBitmap[:], h.FirstBitmap)

	name := make([]byte, hdrVolumeNameLen)
	for i := range name {
		name[i] = ' '
	}
	copy(name, h.VolumeName)

	w.Write([]byte{marker, h.Revision})
	w.Write(dir[:])
	w.Write(sectors[:])
	w.Write(free[:])
	w.Write(bitmapSectors[:])
	w.Write(firstBitmap[:])
	w.Write(name)
}

// MaxDirEntries returns the per-revision directory entry-count limit
// (including the header entry and the trailing blank), per the Sparta
// directory-extension policy.
func (h VolumeHeader) MaxDirEntries() int {
	if h.Revision <= RevisionSD20 {
		return 126
	}
	return 1423
}

// decodeSpartaDate converts the (day, month, year-mod-100) triple into a
// time.Time in the host's local zone, applying the "year < 78 => 2000+year
// else 1900+year" convention.
func decodeSpartaDate(day, month, yearMod100, hour, min, sec byte) time.Time {
	year := int(yearMod100)
	if year < 78 {
		year += 2000
	} else {
		year += 1900
	}
	if day == 0 && month == 0 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), int(day), int(hour), int(min), int(sec), 0, time.Local)
}

// encodeSpartaDate is decodeSpartaDate's inverse.
func encodeSpartaDate(t time.Time) (day, month, yearMod100, hour, min, sec byte) {
	if t.IsZero() {
		return 0, 0, 0, 0, 0, 0
	}
	t = t.Local()
	return byte(t.Day()), byte(t.Month()), byte(t.Year() % 100),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second())
}
