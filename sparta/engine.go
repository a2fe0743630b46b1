package sparta

import (
	"os"
	"strings"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/common"
	"github.com/eightbitatr/atrfs/container"
)

var (
	_ atrfs.Engine       = (*Engine)(nil)
	_ atrfs.SectorLister = (*Engine)(nil)
)

// Engine implements atrfs.Engine for a Sparta/SDFS-formatted image.
type Engine struct {
	c      *container.Container
	hdr    VolumeHeader
	bitmap *bitmapRun
}

// OpenEngine loads the volume header and bitmap from sector 1 and returns an
// Engine ready to serve requests.
func OpenEngine(c *container.Container) (*Engine, *atrfs.DriverError) {
	sec1, derr := c.Sector(1)
	if derr != nil {
		return nil, derr
	}
	hdr, ok := DecodeVolumeHeader(sec1)
	if !ok {
		return nil, atrfs.ErrInvalid.WithMessage("sector 1 is not a Sparta volume header")
	}
	bm, derr := loadBitmapRun(c, hdr.FirstBitmap, hdr.BitmapSectors, uint(c.SectorCount))
	if derr != nil {
		return nil, derr
	}
	return &Engine{c: c, hdr: hdr, bitmap: bm}, nil
}

func (e *Engine) FSType() atrfs.FSType { return atrfs.FSTypeSparta }

func (e *Engine) syncFreeCounter() *atrfs.DriverError {
	e.hdr.Free = uint16(e.bitmap.CountFree())
	sec, derr := e.c.Sector(1)
	if derr != nil {
		return derr
	}
	e.hdr.Encode(sec)
	return e.c.WriteSector(1, sec)
}

// allocSector grabs one free sector and zero-fills it before handing it back,
// per the Sparta allocation policy.
func (e *Engine) allocSector() (uint16, *atrfs.DriverError) {
	unit, derr := e.bitmap.AllocateFirst()
	if derr != nil {
		return 0, derr
	}
	zero := make([]byte, e.c.SectorSize)
	if derr := e.c.WriteSector(unit, zero); derr != nil {
		return 0, derr
	}
	if derr := e.syncFreeCounter(); derr != nil {
		return 0, derr
	}
	return uint16(unit), nil
}

func (e *Engine) freeSector(sec uint16) *atrfs.DriverError {
	if derr := e.bitmap.MarkFree(uint(sec)); derr != nil {
		return derr
	}
	return e.syncFreeCounter()
}

// getSector follows the map chain from mapSector for the given zero-based
// sequence number, verifying the previous-pointer back-link at every map
// crossing. If allocate is set and the located slot is a sparse hole, a new
// data sector is allocated, recorded, and returned. The head map sector is
// returned too; growing the chain only appends map sectors after it, so it
// is always mapSector.
func (e *Engine) getSector(mapSector uint16, sequence int, allocate bool) (uint16, uint16, *atrfs.DriverError) {
	perMap := slotsPerMapSector(e.c.SectorSize)
	cur := mapSector
	var prevMap uint16
	for seq := sequence; ; {
		sec, derr := e.c.Sector(uint(cur))
		if derr != nil {
			return 0, mapSector, derr
		}
		if prevMap != 0 && mapPrev(sec) != prevMap {
			return 0, mapSector, atrfs.ErrIO.WithMessage(
				"map sector %d previous-pointer %d does not match %d", cur, mapPrev(sec), prevMap,
			)
		}
		if seq < perMap {
			slot := mapSlot(sec, seq)
			if slot == 0 {
				if !allocate {
					return 0, mapSector, nil
				}
				newSec, derr := e.allocSector()
				if derr != nil {
					return 0, mapSector, derr
				}
				setMapSlot(sec, seq, newSec)
				if derr := e.c.WriteSector(uint(cur), sec); derr != nil {
					return 0, mapSector, derr
				}
				return newSec, mapSector, nil
			}
			return slot, mapSector, nil
		}

		next := mapNext(sec)
		if next == 0 {
			if !allocate {
				return 0, mapSector, nil
			}
			newMap, derr := e.allocSector()
			if derr != nil {
				return 0, mapSector, derr
			}
			nsec, derr := e.c.Sector(uint(newMap))
			if derr != nil {
				return 0, mapSector, derr
			}
			setMapPrev(nsec, cur)
			if derr := e.c.WriteSector(uint(newMap), nsec); derr != nil {
				return 0, mapSector, derr
			}
			setMapNext(sec, newMap)
			if derr := e.c.WriteSector(uint(cur), sec); derr != nil {
				return 0, mapSector, derr
			}
			next = newMap
		}
		prevMap = cur
		cur = next
		seq -= perMap
	}
}

// direntLocation is a directory entry's byte position within its map chain:
// the map-sequence-number of the data sector(s) it falls in, plus the byte
// offset within that sector.
type direntLocation struct {
	seq    int
	offset int
}

func locateDirent(sectorSize uint, index int) direntLocation {
	byteOff := index * direntSize
	return direntLocation{seq: byteOff / int(sectorSize), offset: byteOff % int(sectorSize)}
}

// getDirent reads directory entry index of the directory whose header's map
// sector is mapSector. Entries 23 bytes wide do not align to sector
// boundaries, so an entry may straddle two non-contiguous data sectors.
func (e *Engine) getDirent(mapSector uint16, index int) (Dirent, *atrfs.DriverError) {
	loc := locateDirent(e.c.SectorSize, index)
	dataSec, _, derr := e.getSector(mapSector, loc.seq, false)
	if derr != nil {
		return Dirent{}, derr
	}
	if dataSec == 0 {
		return Dirent{}, nil
	}
	sec, derr := e.c.Sector(uint(dataSec))
	if derr != nil {
		return Dirent{}, derr
	}

	buf := make([]byte, direntSize)
	remaining := int(e.c.SectorSize) - loc.offset
	if remaining >= direntSize {
		copy(buf, sec[loc.offset:loc.offset+direntSize])
		return DecodeDirent(buf), nil
	}

	copy(buf, sec[loc.offset:])
	nextSec, _, derr := e.getSector(mapSector, loc.seq+1, false)
	if derr != nil {
		return Dirent{}, derr
	}
	if nextSec != 0 {
		sec2, derr := e.c.Sector(uint(nextSec))
		if derr != nil {
			return Dirent{}, derr
		}
		copy(buf[remaining:], sec2[:direntSize-remaining])
	}
	return DecodeDirent(buf), nil
}

// putDirent writes d into directory entry index, allocating new map/data
// sectors as needed (get_sector's allocate=true path).
func (e *Engine) putDirent(mapSector uint16, index int, d Dirent) *atrfs.DriverError {
	loc := locateDirent(e.c.SectorSize, index)
	dataSec, _, derr := e.getSector(mapSector, loc.seq, true)
	if derr != nil {
		return derr
	}
	sec, derr := e.c.Sector(uint(dataSec))
	if derr != nil {
		return derr
	}

	buf := make([]byte, direntSize)
	d.Encode(buf)

	remaining := int(e.c.SectorSize) - loc.offset
	if remaining >= direntSize {
		copy(sec[loc.offset:loc.offset+direntSize], buf)
		return e.c.WriteSector(uint(dataSec), sec)
	}

	copy(sec[loc.offset:], buf[:remaining])
	if derr := e.c.WriteSector(uint(dataSec), sec); derr != nil {
		return derr
	}
	nextSec, _, derr := e.getSector(mapSector, loc.seq+1, true)
	if derr != nil {
		return derr
	}
	sec2, derr := e.c.Sector(uint(nextSec))
	if derr != nil {
		return derr
	}
	copy(sec2[:direntSize-remaining], buf[remaining:])
	return e.c.WriteSector(uint(nextSec), sec2)
}

// findInDir scans a directory's entries (skipping slot 0, the header) for
// name, returning its index or -1.
func (e *Engine) findInDir(mapSector uint16, name string) (int, Dirent, *atrfs.DriverError) {
	hdrEnt, derr := e.getDirent(mapSector, 0)
	if derr != nil {
		return -1, Dirent{}, derr
	}
	count := int(hdrEnt.Size) / direntSize
	target := strings.ToUpper(name)
	for i := 1; i < count; i++ {
		d, derr := e.getDirent(mapSector, i)
		if derr != nil {
			return -1, Dirent{}, derr
		}
		if !d.IsInUse() || d.IsDeleted() {
			continue
		}
		if strings.EqualFold(d.Name, target) {
			return i, d, nil
		}
	}
	return -1, Dirent{}, atrfs.ErrNotFound
}

// Resolve walks path through the directory tree starting at the volume's
// root map sector.
func (e *Engine) Resolve(path string) (atrfs.ResolveResult, *atrfs.DriverError) {
	segs := common.SplitSegments(path)
	if len(segs) == 0 {
		return atrfs.ResolveResult{StartSector: e.hdr.Dir, IsDir: true, FileNumber: -1}, nil
	}

	dirMap := e.hdr.Dir
	for i, seg := range segs {
		isLast := i == len(segs)-1
		isInfo := false
		name := seg
		if isLast && strings.HasSuffix(strings.ToUpper(seg), ".INFO") && len(seg) > 5 {
			isInfo = true
			name = seg[:len(seg)-5]
		}

		idx, d, derr := e.findInDir(dirMap, name)
		if derr != nil {
			return atrfs.ResolveResult{}, derr
		}

		if !isLast {
			if !d.IsDir() {
				return atrfs.ResolveResult{}, atrfs.ErrNotDirectory
			}
			dirMap = d.MapSector
			continue
		}

		return atrfs.ResolveResult{
			StartSector:   d.MapSector,
			ParentDir:     dirMap,
			Locked:        d.IsLocked(),
			FileNumber:    -1,
			DirEntryIndex: idx,
			IsDir:         d.IsDir(),
			IsInfoRequest: isInfo,
		}, nil
	}
	return atrfs.ResolveResult{}, atrfs.ErrNotFound
}

// ReadDir enumerates a directory's live entries in slot order.
func (e *Engine) ReadDir(path string) ([]atrfs.DirectoryEntry, *atrfs.DriverError) {
	dirMap := e.hdr.Dir
	if path != "/" && path != "" {
		res, derr := e.Resolve(path)
		if derr != nil {
			return nil, derr
		}
		if !res.IsDir {
			return nil, atrfs.ErrNotDirectory
		}
		dirMap = res.StartSector
	}

	hdrEnt, derr := e.getDirent(dirMap, 0)
	if derr != nil {
		return nil, derr
	}
	count := int(hdrEnt.Size) / direntSize

	var out []atrfs.DirectoryEntry
	for i := 1; i < count; i++ {
		d, derr := e.getDirent(dirMap, i)
		if derr != nil {
			return nil, derr
		}
		if !d.IsInUse() || d.IsDeleted() {
			continue
		}
		out = append(out, atrfs.DirectoryEntry{Name: d.Name, IsDir: d.IsDir(), Stat: e.statFromDirent(d)})
	}
	return out, nil
}

func (e *Engine) statFromDirent(d Dirent) atrfs.FileStat {
	mode := os.FileMode(0644)
	if d.IsDir() {
		mode |= os.ModeDir | 0111
	}
	if d.IsLocked() {
		mode &^= 0222
	}
	return atrfs.FileStat{
		ModeFlags:    mode,
		Size:         int64(d.Size),
		BlockSize:    int64(e.c.SectorSize),
		LastModified: d.Stamp,
		Locked:       d.IsLocked(),
	}
}

// Getattr resolves path and returns its FileStat.
func (e *Engine) Getattr(path string) (atrfs.FileStat, *atrfs.DriverError) {
	if path == "/" || path == "" {
		return atrfs.FileStat{ModeFlags: os.ModeDir | 0755}, nil
	}
	res, derr := e.Resolve(path)
	if derr != nil {
		return atrfs.FileStat{}, derr
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return atrfs.FileStat{}, derr
	}
	return e.statFromDirent(d), nil
}

// ListSectors returns path's map sector followed by every allocated data
// sector in sequence order (sparse holes omitted), with each further map
// sector of the chain listed after the data sectors of the map sector that
// points to it, for Diag-Info's sector-map analysis.
func (e *Engine) ListSectors(path string) ([]uint16, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return nil, derr
	}
	mapSector := res.StartSector
	out := []uint16{mapSector}
	perMap := slotsPerMapSector(e.c.SectorSize)
	cur := mapSector
	for cur != 0 {
		sec, derr := e.c.Sector(uint(cur))
		if derr != nil {
			return nil, derr
		}
		for i := 0; i < perMap; i++ {
			if slot := mapSlot(sec, i); slot != 0 {
				out = append(out, slot)
			}
		}
		next := mapNext(sec)
		if next != 0 {
			out = append(out, next)
		}
		cur = next
	}
	return out, nil
}

// StatFS reports aggregate volume statistics.
func (e *Engine) StatFS() atrfs.FSStat {
	return atrfs.FSStat{
		BlockSize:     int64(e.c.SectorSize),
		TotalBlocks:   uint64(e.hdr.Sectors),
		BlocksFree:    uint64(e.bitmap.CountFree()),
		MaxNameLength: 11,
		Label:         e.hdr.VolumeName,
	}
}
