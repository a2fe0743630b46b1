// Package dosfamily implements the sector-chain file layout shared by
// classic Atari DOS 1, DOS 2.0s, DOS 2.0d, DOS 2.5, MyDOS 4.5x, and LiteDOS,
// as one Variant-parameterized engine rather than five near-duplicate ones.
package dosfamily

import (
	"os"
	"strings"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/common"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/vtoc"
)

var (
	_ atrfs.Engine       = (*Engine)(nil)
	_ atrfs.SectorLister = (*Engine)(nil)
)

// Engine implements atrfs.Engine for one mounted DOS-family image.
type Engine struct {
	c       *container.Container
	variant Variant
	alloc   vtoc.Allocator
}

// OpenEngine loads the VTOC and returns an Engine ready to serve requests.
func OpenEngine(c *container.Container, v Variant) (*Engine, *atrfs.DriverError) {
	alloc, _, derr := loadVTOC(c, v)
	if derr != nil {
		return nil, derr
	}
	return &Engine{c: c, variant: v, alloc: alloc}, nil
}

func (e *Engine) FSType() atrfs.FSType { return e.variant.FSType }

// syncFreeCounter writes the allocator's current free-unit count back into
// the VTOC sector, keeping the on-disk counter consistent with the bitmap.
// Every operation that changes a bit calls this once after the change;
// operations that don't change any bit must not call it, so a no-op
// mutation never touches the counter.
func (e *Engine) syncFreeCounter() *atrfs.DriverError {
	return writeFreeCount(e.c, e.variant, uint16(e.alloc.CountFree()))
}

// direntSlot addresses directory-entry i within the contiguous run of
// directory sectors starting at dirStart, applying the 256-byte-sector
// "only the first 8 slots per sector" rule.
func (e *Engine) direntSlot(dirStart uint16, i int) (sectorIdx uint, byteOff int) {
	sectorIdx = uint(dirStart) + uint(i/8)
	if e.variant.SectorSize == 256 {
		byteOff = (i % 8) * direntSize
	} else {
		byteOff = (i % 8) * direntSize
	}
	return sectorIdx, byteOff
}

func (e *Engine) maxRootEntries() int {
	return int(e.variant.RootDirSectors) * 8
}

// readDirent reads directory slot i of the directory rooted at dirStart.
func (e *Engine) readDirent(dirStart uint16, i int) (Dirent, *atrfs.DriverError) {
	secIdx, off := e.direntSlot(dirStart, i)
	sec, derr := e.c.Sector(secIdx)
	if derr != nil {
		return Dirent{}, derr
	}
	return DecodeDirent(sec[off : off+direntSize]), nil
}

func (e *Engine) writeDirent(dirStart uint16, i int, d Dirent) *atrfs.DriverError {
	secIdx, off := e.direntSlot(dirStart, i)
	sec, derr := e.c.Sector(secIdx)
	if derr != nil {
		return derr
	}
	d.Encode(sec[off : off+direntSize])
	return e.c.WriteSector(secIdx, sec)
}

// findInDir scans directory slots in order, stopping at the end marker, and
// returns the index of the entry matching name (case-insensitive), or -1.
func (e *Engine) findInDir(dirStart uint16, name string) (int, Dirent, *atrfs.DriverError) {
	stem, ext, ok := common.SplitStemExt(name)
	if !ok {
		return -1, Dirent{}, atrfs.ErrNameTooLong
	}
	target := common.PadName8_3(stem, ext)

	for i := 0; i < e.maxRootEntries(); i++ {
		d, derr := e.readDirent(dirStart, i)
		if derr != nil {
			return -1, Dirent{}, derr
		}
		if d.IsEndMarker() {
			break
		}
		if d.IsDeleted() {
			continue
		}
		want := d.nameBytes()
		if strings.EqualFold(string(want[:]), string(target[:])) {
			return i, d, nil
		}
	}
	return -1, Dirent{}, atrfs.ErrNotFound
}

// Resolve walks path through the root directory (and, for MyDOS,
// subdirectories) and returns the resolved entry's location.
func (e *Engine) Resolve(path string) (atrfs.ResolveResult, *atrfs.DriverError) {
	segs := common.SplitSegments(path)
	if len(segs) == 0 {
		return atrfs.ResolveResult{
			StartSector: e.variant.RootDirStart,
			SectorCount: e.variant.RootDirSectors,
			IsDir:       true,
			FileNumber:  -1,
		}, nil
	}

	dirStart := e.variant.RootDirStart
	for i, seg := range segs {
		isLast := i == len(segs)-1
		isInfo := false
		name := seg
		if isLast && strings.HasSuffix(strings.ToUpper(seg), ".INFO") && len(seg) > 5 {
			// A ".info" suffix marks a metadata request rather than a real
			// directory entry. We only honor this when the
			// base name without the suffix would itself be a legal 8.3 name.
			base := seg[:len(seg)-5]
			if _, _, ok := common.SplitStemExt(base); ok {
				isInfo = true
				name = base
			}
		}

		idx, d, derr := e.findInDir(dirStart, name)
		if derr != nil {
			return atrfs.ResolveResult{}, derr
		}

		if !isLast {
			if !d.IsDir() || !e.variant.IsMyDOS {
				return atrfs.ResolveResult{}, atrfs.ErrNotDirectory
			}
			dirStart = d.StartSector
			continue
		}

		fileNumber := -1
		if !d.NoFileNumber() {
			fileNumber = idx
		}
		return atrfs.ResolveResult{
			StartSector:   d.StartSector,
			ParentDir:     dirStart,
			SectorCount:   d.SectorCount,
			Locked:        d.IsLocked(),
			FileNumber:    fileNumber,
			DirEntryIndex: idx,
			IsDir:         d.IsDir(),
			IsInfoRequest: isInfo,
		}, nil
	}

	return atrfs.ResolveResult{}, atrfs.ErrNotFound
}

// ReadDir enumerates a directory's live entries in slot order.
func (e *Engine) ReadDir(path string) ([]atrfs.DirectoryEntry, *atrfs.DriverError) {
	dirStart := e.variant.RootDirStart
	if path != "/" && path != "" {
		res, derr := e.Resolve(path)
		if derr != nil {
			return nil, derr
		}
		if !res.IsDir {
			return nil, atrfs.ErrNotDirectory
		}
		dirStart = res.StartSector
	}

	var out []atrfs.DirectoryEntry
	for i := 0; i < e.maxRootEntries(); i++ {
		d, derr := e.readDirent(dirStart, i)
		if derr != nil {
			return nil, derr
		}
		if d.IsEndMarker() {
			break
		}
		if d.IsDeleted() || !d.IsInUse() {
			continue
		}
		out = append(out, atrfs.DirectoryEntry{
			Name:  d.Name(),
			IsDir: d.IsDir(),
			Stat:  e.statFromDirent(d, i),
		})
	}
	return out, nil
}

func (e *Engine) statFromDirent(d Dirent, dirIndex int) atrfs.FileStat {
	mode := os.FileMode(0644)
	if d.IsDir() {
		mode |= os.ModeDir | 0111
	}
	if d.IsLocked() {
		mode &^= 0222
	}
	size, _ := e.computeSize(d, dirIndex)
	return atrfs.FileStat{
		ModeFlags: mode,
		Size:      size,
		BlockSize: int64(e.variant.SectorSize),
		NumBlocks: int64(d.SectorCount),
		Locked:    d.IsLocked(),
	}
}

// Getattr resolves path and returns its FileStat.
func (e *Engine) Getattr(path string) (atrfs.FileStat, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return atrfs.FileStat{}, derr
	}
	if path == "/" || path == "" {
		return atrfs.FileStat{ModeFlags: os.ModeDir | 0755}, nil
	}
	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return atrfs.FileStat{}, derr
	}
	return e.statFromDirent(d, res.DirEntryIndex), nil
}

// StatFS reports aggregate volume statistics.
func (e *Engine) StatFS() atrfs.FSStat {
	files := uint64(64)
	if e.variant.IsMyDOS {
		files = 0
	}
	return atrfs.FSStat{
		BlockSize:     int64(e.variant.SectorSize),
		TotalBlocks:   uint64(e.variant.TotalSectors),
		BlocksFree:    uint64(e.alloc.CountFree()),
		Files:         files,
		MaxNameLength: 12,
	}
}
