package dosfamily

import (
	"github.com/noxer/bytewriter"

	"github.com/eightbitatr/atrfs/common"
)

// Directory-entry flag bits.
const (
	FlagOpenForWrite = 0x01
	FlagDOS2Created  = 0x02
	FlagNoFileNumber = 0x04
	FlagDirectory    = 0x10
	FlagLocked       = 0x20
	FlagInUse        = 0x40
	FlagDeleted      = 0x80
)

const direntSize = 16

// Dirent is one 16-byte DOS-family directory entry: flags, sector count,
// starting sector, and an 8.3 padded name.
type Dirent struct {
	Flags       byte
	SectorCount uint16
	StartSector uint16
	RawName     [8]byte
	RawExt      [3]byte
}

// DecodeDirent reads a 16-byte directory entry out of buf.
func DecodeDirent(buf []byte) Dirent {
	var d Dirent
	d.Flags = buf[0]
	d.SectorCount = common.ReadUint16LE(buf[1:3])
	d.StartSector = common.ReadUint16LE(buf[3:5])
	copy(d.RawName[:], buf[5:13])
	copy(d.RawExt[:], buf[13:16])
	return d
}

// Encode packs the entry back into a 16-byte slice, via a bounded cursor
// writer so a layout mistake overruns an error instead of an adjacent
// sector's bytes.
func (d Dirent) Encode(buf []byte) {
	w := bytewriter.New(buf[:direntSize])
	var le [2]byte
	w.Write([]byte{d.Flags})
	common.WriteUint16LE(le[:], d.SectorCount)
	w.Write(le[:])
	common.WriteUint16LE(le[:], d.StartSector)
	w.Write(le[:])
	w.Write(d.RawName[:])
	w.Write(d.RawExt[:])
}

// IsEndMarker reports whether this is the zero-flags end-of-directory
// sentinel: the scan halts here and every following entry is implicitly
// zero too.
func (d Dirent) IsEndMarker() bool {
	return d.Flags == 0
}

// IsDeleted reports the DELETED flag. A deleted entry never has any other
// flag bit set.
func (d Dirent) IsDeleted() bool {
	return d.Flags&FlagDeleted != 0
}

// IsInUse reports whether this slot names a live file or directory.
func (d Dirent) IsInUse() bool {
	return d.Flags&FlagInUse != 0 && !d.IsDeleted()
}

func (d Dirent) IsDir() bool      { return d.Flags&FlagDirectory != 0 }
func (d Dirent) IsLocked() bool   { return d.Flags&FlagLocked != 0 }
func (d Dirent) NoFileNumber() bool { return d.Flags&FlagNoFileNumber != 0 }

// Name formats the entry's name the way readdir does: trailing spaces
// stripped, joined with "." only if the extension is non-empty.
func (d Dirent) Name() string {
	return common.UnpadName8_3(d.nameBytes())
}

func (d Dirent) nameBytes() [11]byte {
	var out [11]byte
	copy(out[0:8], d.RawName[:])
	copy(out[8:11], d.RawExt[:])
	return out
}

// SetName packs stem.ext into the entry's padded fields.
func (d *Dirent) SetName(stem, ext string) {
	padded := common.PadName8_3(stem, ext)
	copy(d.RawName[:], padded[0:8])
	copy(d.RawExt[:], padded[8:11])
}
