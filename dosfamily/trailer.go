package dosfamily

// Trailer is the decoded form of a data sector's last 3 bytes.
// Which fields are meaningful depends on the Variant: DOS 1 packs Next into
// the first two trailer bytes and UsedCount plus the EOF bit into the third,
// never using FileNumber; DOS 2/DOS 2.5/MyDOS/LiteDOS use FileNumber, Next,
// and UsedCount across all three bytes.
type Trailer struct {
	FileNumber int // -1 if NoFileNo is set or the variant doesn't use one
	NoFileNo   bool
	Next       uint16
	UsedCount  byte // DOS1: low 7 bits of the third byte; its high bit is EOF
	EOF        bool // DOS1 only
}

// decodeTrailerDOS2 decodes the 3-byte trailer used by DOS2/DOS2.5/MyDOS/
// LiteDOS: byte S-3 packs (file_number<<2)|next_high unless NOFILENO is set,
// in which case the whole byte is the next-sector high byte.
func decodeTrailerDOS2(b0, b1, b2 byte) Trailer {
	// A MyDOS file with NOFILENO set always encodes next_high in the full
	// byte; we can't distinguish "NOFILENO plus small next_high" from
	// "file number 0" without the owning dirent's NOFILENO flag, so callers
	// pass that in via decodeTrailer below.
	return Trailer{
		FileNumber: int(b0 >> 2),
		Next:       (uint16(b0&0x03) << 8) | uint16(b1),
		UsedCount:  b2,
	}
}

// decodeTrailer decodes the sector-chain trailer at the end of a sector,
// given whether the owning file has NOFILENO set (MyDOS only) and whether
// the variant is DOS 1 (different byte layout entirely).
func decodeTrailer(buf []byte, isDOS1 bool, noFileNo bool) Trailer {
	n := len(buf)
	if isDOS1 {
		seq := buf[n-1]
		return Trailer{
			FileNumber: -1,
			NoFileNo:   true,
			Next:       (uint16(buf[n-3]) << 8) | uint16(buf[n-2]),
			UsedCount:  seq &^ 0x80,
			EOF:        seq&0x80 != 0,
		}
	}

	b0, b1, b2 := buf[n-3], buf[n-2], buf[n-1]
	if noFileNo {
		return Trailer{
			FileNumber: -1,
			NoFileNo:   true,
			Next:       (uint16(b0) << 8) | uint16(b1),
			UsedCount:  b2,
		}
	}
	t := decodeTrailerDOS2(b0, b1, b2)
	return t
}

// encodeTrailer writes t back into the last 3 bytes of buf, in the DOS 1,
// NOFILENO, or file-number layout.
func encodeTrailer(buf []byte, t Trailer, isDOS1 bool) {
	n := len(buf)
	if isDOS1 {
		buf[n-3] = byte(t.Next >> 8)
		buf[n-2] = byte(t.Next)
		v := t.UsedCount &^ 0x80
		if t.EOF {
			v |= 0x80
		}
		buf[n-1] = v
		return
	}

	if t.NoFileNo {
		buf[n-3] = byte(t.Next >> 8)
		buf[n-2] = byte(t.Next)
		buf[n-1] = t.UsedCount
		return
	}

	buf[n-3] = byte(t.FileNumber<<2) | byte(t.Next>>8&0x03)
	buf[n-2] = byte(t.Next)
	buf[n-1] = t.UsedCount
}
