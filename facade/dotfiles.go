package facade

import (
	"fmt"
	"os"
	"strings"

	"github.com/eightbitatr/atrfs"
)

// specialFile is one root-level introspection dotfile. Unlike ".info"
// (which shadows any real path by suffix), these only ever exist at fixed
// root-level names.
type specialFile struct {
	name  string
	stat  func(f *FileSystemFacade) (atrfs.FileStat, *atrfs.DriverError)
	read  func(f *FileSystemFacade, offset int64, size int) ([]byte, *atrfs.DriverError)
	write func(f *FileSystemFacade, buf []byte, offset int64) (int, *atrfs.DriverError)
}

var rootDotfiles = []specialFile{bootinfoFile, bootsectorsFile, fsinfoFile}

// specialFile looks up path against the fixed root dotfile names. It only
// matches root-level paths: "/.bootinfo", not "/SUB/.bootinfo".
func (f *FileSystemFacade) specialFile(path string) (specialFile, bool) {
	if !strings.HasPrefix(path, "/") {
		return specialFile{}, false
	}
	name := path[1:]
	if strings.Contains(name, "/") {
		return specialFile{}, false
	}
	for _, sf := range rootDotfiles {
		if sf.name == name {
			return sf, true
		}
	}
	return specialFile{}, false
}

func readOnlyStat(size int64) atrfs.FileStat {
	return atrfs.FileStat{ModeFlags: os.FileMode(0444), Size: size}
}

// bootinfoFile reports a short human-readable summary of the boot-sector
// header and the mounted image's geometry, read-only.
var bootinfoFile = specialFile{
	name: ".bootinfo",
	stat: func(f *FileSystemFacade) (atrfs.FileStat, *atrfs.DriverError) {
		text, derr := bootinfoText(f)
		if derr != nil {
			return atrfs.FileStat{}, derr
		}
		return readOnlyStat(int64(len(text))), nil
	},
	read: func(f *FileSystemFacade, offset int64, size int) ([]byte, *atrfs.DriverError) {
		text, derr := bootinfoText(f)
		if derr != nil {
			return nil, derr
		}
		return sliceString(text, offset, size), nil
	},
	write: func(f *FileSystemFacade, buf []byte, offset int64) (int, *atrfs.DriverError) {
		return 0, atrfs.ErrReadOnly
	},
}

func bootinfoText(f *FileSystemFacade) (string, *atrfs.DriverError) {
	sec1, derr := f.c.Sector(1)
	if derr != nil {
		return "", derr
	}
	var b strings.Builder
	fmt.Fprintf(&b, "fstype: %s\n", f.engine.FSType())
	fmt.Fprintf(&b, "sector_size: %d\n", f.c.SectorSize)
	fmt.Fprintf(&b, "sector_count: %d\n", f.c.SectorCount)
	fmt.Fprintf(&b, "short_sectors: %v\n", f.c.ShortSectors)
	if f.c.Geometry.Name != "" {
		fmt.Fprintf(&b, "geometry: %s\n", f.c.Geometry.Name)
	}
	if f.c.SizeWarning != "" {
		fmt.Fprintf(&b, "warning: %s\n", f.c.SizeWarning)
	}
	fmt.Fprintf(&b, "boot sector 1 first bytes: % x\n", sec1[:8])
	return b.String(), nil
}

// bootsectorsFile exposes the concatenation of sectors 1-3 (the boot
// region), writable in place subject to the short-sector length
// constraint the container already enforces on those three sectors.
var bootsectorsFile = specialFile{
	name: ".bootsectors",
	stat: func(f *FileSystemFacade) (atrfs.FileStat, *atrfs.DriverError) {
		return readOnlyStatRW(int64(bootsectorsLen(f))), nil
	},
	read: func(f *FileSystemFacade, offset int64, size int) ([]byte, *atrfs.DriverError) {
		data, derr := bootsectorsRead(f)
		if derr != nil {
			return nil, derr
		}
		return sliceBytes(data, offset, size), nil
	},
	write: func(f *FileSystemFacade, buf []byte, offset int64) (int, *atrfs.DriverError) {
		return bootsectorsWrite(f, buf, offset)
	},
}

func readOnlyStatRW(size int64) atrfs.FileStat {
	return atrfs.FileStat{ModeFlags: os.FileMode(0644), Size: size}
}

func perBootSectorLen(f *FileSystemFacade) int {
	if f.c.ShortSectors {
		return 128
	}
	return int(f.c.SectorSize)
}

func bootsectorsLen(f *FileSystemFacade) int {
	return perBootSectorLen(f) * 3
}

func bootsectorsRead(f *FileSystemFacade) ([]byte, *atrfs.DriverError) {
	n := perBootSectorLen(f)
	out := make([]byte, 0, n*3)
	for sec := uint(1); sec <= 3; sec++ {
		data, derr := f.c.Sector(sec)
		if derr != nil {
			return nil, derr
		}
		out = append(out, data[:n]...)
	}
	return out, nil
}

// bootsectorsWrite mutates sectors 1-3 directly. The total write must fit
// within the 3-sector boot region (3*128 bytes on an image with the
// short-sector anomaly, 3*sector_size bytes otherwise); anything longer is
// rejected rather than silently truncated.
func bootsectorsWrite(f *FileSystemFacade, buf []byte, offset int64) (int, *atrfs.DriverError) {
	n := perBootSectorLen(f)
	regionLen := int64(n * 3)
	if offset < 0 || offset+int64(len(buf)) > regionLen {
		return 0, atrfs.ErrInvalid.WithMessage(
			"write to .bootsectors must stay within %d bytes (got offset %d, len %d)",
			regionLen, offset, len(buf),
		)
	}

	for i, b := range buf {
		pos := offset + int64(i)
		sec := uint(pos/int64(n)) + 1
		within := int(pos % int64(n))
		data, derr := f.c.Sector(sec)
		if derr != nil {
			return i, derr
		}
		data[within] = b
		if derr := f.c.WriteSector(sec, data); derr != nil {
			return i, derr
		}
	}
	return len(buf), nil
}

// fsinfoFile reports aggregate volume statistics, read-only, at the root.
var fsinfoFile = specialFile{
	name: ".fsinfo",
	stat: func(f *FileSystemFacade) (atrfs.FileStat, *atrfs.DriverError) {
		text := fsinfoText(f)
		return readOnlyStat(int64(len(text))), nil
	},
	read: func(f *FileSystemFacade, offset int64, size int) ([]byte, *atrfs.DriverError) {
		return sliceString(fsinfoText(f), offset, size), nil
	},
	write: func(f *FileSystemFacade, buf []byte, offset int64) (int, *atrfs.DriverError) {
		return 0, atrfs.ErrReadOnly
	},
}

func fsinfoText(f *FileSystemFacade) string {
	stat := f.engine.StatFS()
	var b strings.Builder
	fmt.Fprintf(&b, "fstype: %s\n", f.engine.FSType())
	fmt.Fprintf(&b, "label: %s\n", stat.Label)
	fmt.Fprintf(&b, "block_size: %d\n", stat.BlockSize)
	fmt.Fprintf(&b, "total_blocks: %d\n", stat.TotalBlocks)
	fmt.Fprintf(&b, "blocks_free: %d\n", stat.BlocksFree)
	fmt.Fprintf(&b, "max_name_length: %d\n", stat.MaxNameLength)
	if f.c.Geometry.Name != "" {
		fmt.Fprintf(&b, "geometry: %s\n", f.c.Geometry.Name)
	}
	fmt.Fprintf(&b, "compressed_on_open: %v\n", f.c.Compressed)
	return b.String()
}

func sliceBytes(data []byte, offset int64, size int) []byte {
	if offset >= int64(len(data)) {
		return nil
	}
	end := offset + int64(size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out
}
