// Package container implements the .atr container format: the 16-byte header
// and the sector-addressable byte region that follows it. It is the lowest
// layer every on-disk format engine is built on
package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/compression"
	"github.com/eightbitatr/atrfs/geometry"
)

const (
	headerSize  = 16
	magicByte0  = 0x96
	magicByte1  = 0x02
	paragraphSz = 16
)

// Container owns the raw bytes of a .atr image and presents sectors 1..N as
// addressable byte ranges. It never silently wraps an out-of-range sector
// index; every accessor returns an error instead.
type Container struct {
	// raw is the entire file, header included.
	raw []byte

	SectorSize   uint
	SectorCount  uint
	ShortSectors bool
	// SSBytes is the number of bytes the short-sector anomaly removes from
	// the file relative to SectorCount*SectorSize.
	SSBytes uint

	ReadOnly   bool
	Compressed bool

	// SizeWarning is set if the file size doesn't match the geometry implied
	// by the header. This is a warning, not a fatal error.
	SizeWarning string

	// Geometry is the matched named geometry, if the image's byte size
	// happens to equal exactly one predefined layout. Used only for
	// diagnostics (.fsinfo); it never affects decoding.
	Geometry geometry.Geometry
}

// matchGeometry fills in c.Geometry if the image's sector data size
// (SectorCount*SectorSize, without the header or the short-sector
// correction) matches exactly one predefined geometry.
func (c *Container) matchGeometry() {
	matches := geometry.MatchBySize(c.SectorCount * c.SectorSize)
	if len(matches) == 1 {
		c.Geometry = matches[0]
	}
}

// Open reads a whole .atr image (optionally gzip-wrapped RLE8 compressed, see
// the compression package) into memory and parses its header.
func Open(r io.Reader) (*Container, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, atrfs.ErrIO.Wrap(err)
	}

	wasCompressed := compression.Sniff(data)
	if wasCompressed {
		data, err = compression.DecompressImageToBytes(bytes.NewReader(data))
		if err != nil {
			return nil, atrfs.ErrIO.WithMessage("failed to decompress image: %s", err)
		}
	}

	c, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	c.Compressed = wasCompressed
	c.matchGeometry()
	return c, nil
}

func parseHeader(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, atrfs.ErrInvalid.WithMessage("image too short for a .atr header: %d bytes", len(data))
	}
	hdr := data[:headerSize]
	if hdr[0] != magicByte0 || hdr[1] != magicByte1 {
		return nil, atrfs.ErrInvalid.WithMessage(
			"bad .atr magic: got %#02x %#02x, want %#02x %#02x",
			hdr[0], hdr[1], magicByte0, magicByte1,
		)
	}

	seccountLo := uint32(hdr[2]) | uint32(hdr[3])<<8
	sectorSize := uint(hdr[4]) | uint(hdr[5])<<8
	seccountHi := uint32(hdr[6]) | uint32(hdr[7])<<8

	if sectorSize != 128 && sectorSize != 256 && sectorSize != 512 {
		return nil, atrfs.ErrInvalid.WithMessage("invalid sector size %d", sectorSize)
	}

	totalParagraphs := uint64(seccountLo) + uint64(seccountHi)<<16
	totalBytes := totalParagraphs * paragraphSz

	shortSectors := false
	if sectorSize > 128 && totalBytes%uint64(sectorSize) != 0 {
		shortSectors = true
	}

	sectorCount := totalBytes / uint64(sectorSize)
	ssBytes := uint(0)
	if shortSectors {
		ssBytes = 3 * (uint(sectorSize) - 128)
		// The three short sectors are stored as 128 bytes each instead of
		// sectorSize, and the paragraph count covers only the bytes actually
		// stored; add the missing bytes back to recover the sector count.
		sectorCount = (totalBytes + uint64(ssBytes)) / uint64(sectorSize)
	}

	c := &Container{
		raw:          data,
		SectorSize:   sectorSize,
		SectorCount:  uint(sectorCount),
		ShortSectors: shortSectors,
		SSBytes:      ssBytes,
	}

	expectedSize := headerSize + uint(sectorCount)*sectorSize - ssBytes
	if uint(len(data)) != expectedSize {
		c.SizeWarning = fmt.Sprintf(
			"file size %d does not match geometry-derived size %d (sectors=%d, sector_size=%d, short_sectors=%v)",
			len(data), expectedSize, sectorCount, sectorSize, shortSectors,
		)
	}

	return c, nil
}

// Create formats a brand new zero-filled image with the given geometry and
// writes a fresh header. This is used by mkfs-style tooling (cmd/atrtool) and
// by tests; no DOS engine currently supports growing an image after creation
// (dynamic resizing is not supported).
func Create(sectorCount uint, sectorSize uint) (*Container, error) {
	if sectorSize != 128 && sectorSize != 256 && sectorSize != 512 {
		return nil, atrfs.ErrInvalid.WithMessage("invalid sector size %d", sectorSize)
	}

	shortSectors := sectorSize > 128
	ssBytes := uint(0)
	if shortSectors {
		ssBytes = 3 * (sectorSize - 128)
	}

	totalBytes := headerSize + sectorCount*sectorSize - ssBytes
	data := make([]byte, totalBytes)

	totalParagraphs := (uint64(sectorCount)*uint64(sectorSize) - uint64(ssBytes)) / paragraphSz
	data[0] = magicByte0
	data[1] = magicByte1
	data[2] = byte(totalParagraphs)
	data[3] = byte(totalParagraphs >> 8)
	data[4] = byte(sectorSize)
	data[5] = byte(sectorSize >> 8)
	data[6] = byte(totalParagraphs >> 16)
	data[7] = byte(totalParagraphs >> 24)

	c := &Container{
		raw:          data,
		SectorSize:   sectorSize,
		SectorCount:  sectorCount,
		ShortSectors: shortSectors,
		SSBytes:      ssBytes,
	}
	c.matchGeometry()
	return c, nil
}

// offsetOf returns the byte offset of the start of the given 1-based sector
// index.
func (c *Container) offsetOf(index uint) uint {
	if c.ShortSectors && index <= 3 {
		return headerSize + (index-1)*128
	}
	correction := uint(0)
	if c.ShortSectors {
		correction = 3 * (c.SectorSize - 128)
	}
	return headerSize + (index-1)*c.SectorSize - correction
}

// sectorByteLen returns the number of bytes actually stored for the given
// sector (128 for the first three sectors of a short-sector image, SectorSize
// otherwise).
func (c *Container) sectorByteLen(index uint) uint {
	if c.ShortSectors && index <= 3 {
		return 128
	}
	return c.SectorSize
}

// Sector returns the given 1-based sector. It is always SectorSize bytes
// long regardless of the short-sector anomaly: short sectors are zero-padded
// on read and truncated on offset computation, so engines never need to
// special-case the first three sectors' size, only their addressing. A
// full-size sector is returned as a mutable view into the image; a short
// sector is returned as a copy, so changes to it only reach the image
// through WriteSector.
func (c *Container) Sector(index uint) ([]byte, *atrfs.DriverError) {
	if index < 1 || index > c.SectorCount {
		return nil, atrfs.ErrInvalid.WithMessage(
			"sector %d out of range [1, %d]", index, c.SectorCount,
		)
	}

	length := c.sectorByteLen(index)
	off := c.offsetOf(index)
	if off+length > uint(len(c.raw)) {
		return nil, atrfs.ErrIO.WithMessage(
			"sector %d (offset %d, len %d) extends past end of image (%d bytes)",
			index, off, length, len(c.raw),
		)
	}

	if length == c.SectorSize {
		return c.raw[off : off+length], nil
	}

	// Short sector: copy the real (short) bytes into a scratch buffer padded
	// out to SectorSize, so callers can always assume a full-size sector.
	// Writes to the copy are lost unless it is passed to WriteSector, which
	// keeps only the first 128 bytes of sectors 1-3 per the .atr
	// short-sector anomaly.
	padded := make([]byte, c.SectorSize)
	copy(padded, c.raw[off:off+length])
	return padded, nil
}

// WriteSector writes data (which must be SectorSize bytes) back into the
// image at the given sector. For short sectors only the first 128 bytes are
// persisted.
func (c *Container) WriteSector(index uint, data []byte) *atrfs.DriverError {
	if c.ReadOnly {
		return atrfs.ErrReadOnly
	}
	if uint(len(data)) != c.SectorSize {
		return atrfs.ErrInvalid.WithMessage(
			"sector write must be exactly %d bytes, got %d", c.SectorSize, len(data),
		)
	}
	if index < 1 || index > c.SectorCount {
		return atrfs.ErrInvalid.WithMessage(
			"sector %d out of range [1, %d]", index, c.SectorCount,
		)
	}

	length := c.sectorByteLen(index)
	off := c.offsetOf(index)
	if off+length > uint(len(c.raw)) {
		return atrfs.ErrIO.WithMessage("sector %d extends past end of image", index)
	}
	copy(c.raw[off:off+length], data[:length])
	return nil
}

// Bytes returns the raw backing buffer, header included. Callers must not
// retain it past the Container's lifetime if the Container is later resized
// (resizing is not currently supported by any engine).
func (c *Container) Bytes() []byte {
	return c.raw
}

// WriteTo writes the raw image (uncompressed, header included) to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.raw)
	return int64(n), err
}

// Backing wraps the Container's raw buffer as an io.ReadWriteSeeker sharing
// the same backing array, for callers (streaming copy tools, test fixtures)
// that want seekable access to the whole image without going through
// Sector/WriteSector.
func (c *Container) Backing() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(c.raw)
}
