package sparta

import (
	"bytes"
	"strings"
	"time"

	"github.com/noxer/bytewriter"

	"github.com/eightbitatr/atrfs/common"
)

// Directory-entry and header-entry status flags. Zero identifies the
// directory's header entry (always slot 0); nonzero values are status flags
// on a regular entry.
const (
	flagLocked = 0x01
	flagInUse  = 0x08
	flagDir    = 0x20
	flagDeleted = 0x10
)

// direntSize is the fixed size of both the header entry and regular entries;
// they share the same 23-byte physical layout.
const direntSize = 23

const (
	offStatus    = 0
	offMapSector = 1
	offSize      = 3
	offName      = 6
	offNameLen   = 11
	offDay       = 17
	offMonth     = 18
	offYear      = 19
	offHour      = 20
	offMin       = 21
	offSec       = 22
)

// Dirent is one 23-byte Sparta directory slot: either the directory's own
// header (slot 0, status byte 0) or a regular file/subdirectory entry.
type Dirent struct {
	Status    byte
	MapSector uint16
	Size      uint32 // file size, or (for the header) directory length in bytes
	Name      string
	Stamp     time.Time
}

// IsHeader reports whether this is a directory's own header entry.
func (d Dirent) IsHeader() bool { return d.Status == 0 }

func (d Dirent) IsLocked() bool  { return d.Status&flagLocked != 0 }
func (d Dirent) IsInUse() bool   { return d.Status&flagInUse != 0 }
func (d Dirent) IsDeleted() bool { return d.Status&flagDeleted != 0 }
func (d Dirent) IsDir() bool     { return d.Status&flagDir != 0 }

// DecodeDirent parses a 23-byte slot.
func DecodeDirent(buf []byte) Dirent {
	day, month, year := buf[offDay], buf[offMonth], buf[offYear]
	hour, min, sec := buf[offHour], buf[offMin], buf[offSec]
	name := string(bytes.TrimRight(buf[offName:offName+offNameLen], " "))
	return Dirent{
		Status:    buf[offStatus],
		MapSector: common.ReadUint16LE(buf[offMapSector:]),
		Size:      common.ReadUint24LE(buf[offSize:]),
		Name:      name,
		Stamp:     decodeSpartaDate(day, month, year, hour, min, sec),
	}
}

// Encode writes d back into buf (23 bytes), via a bounded cursor writer over
// the entry's exact byte range.
func (d Dirent) Encode(buf []byte) {
	w := bytewriter.New(buf[:direntSize])

	var le2 [2]byte
	common.WriteUint16LE(le2[:], d.MapSector)
	var le3 [3]byte
	common.WriteUint24LE(le3[:], d.Size)

	name := make([]byte, offNameLen)
	for i := range name {
		name[i] = ' '
	}
	copy(name, strings.ToUpper(d.Name))

	day, month, year, hour, min, sec := encodeSpartaDate(d.Stamp)

	w.Write([]byte{d.Status})
	w.Write(le2[:])
	w.Write(le3[:])
	w.Write(name)
	w.Write([]byte{day, month, year, hour, min, sec})
}
