package sparta

import (
	"os"
	"strings"
	"time"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/common"
)

// touchParent updates dirPath's own entry (in its parent) with the current
// time, per the touch-parent-directory policy: every mutation inside a
// directory updates that directory's entry timestamp in its parent, while
// the directory's own header timestamp is the creation time and never
// changes again.
func (e *Engine) touchParent(dirPath string) *atrfs.DriverError {
	if dirPath == "/" || dirPath == "" {
		return nil
	}
	res, derr := e.Resolve(dirPath)
	if derr != nil {
		return derr
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	d.Stamp = time.Now()
	return e.putDirent(res.ParentDir, res.DirEntryIndex, d)
}

// extendDirectory appends one blank entry to the directory rooted at
// mapSector, enforcing the per-revision entry-count limit, and returns its
// index. The directory header's length field is updated to match.
func (e *Engine) extendDirectory(mapSector uint16) (int, *atrfs.DriverError) {
	hdrEnt, derr := e.getDirent(mapSector, 0)
	if derr != nil {
		return 0, derr
	}
	count := int(hdrEnt.Size) / direntSize
	if count >= e.hdr.MaxDirEntries() {
		return 0, atrfs.ErrNoSpace.WithMessage("directory is at its entry-count limit")
	}

	blank := Dirent{}
	if derr := e.putDirent(mapSector, count, blank); derr != nil {
		return 0, derr
	}

	hdrEnt.Size = uint32((count + 1) * direntSize)
	if derr := e.putDirent(mapSector, 0, hdrEnt); derr != nil {
		return 0, derr
	}
	return count, nil
}

// findFreeSlot scans the directory for a deleted-or-never-used slot before
// resorting to extendDirectory. Sparta entries never move once created, but
// a deleted slot is still eligible for reuse the same way DOS-family slots
// are.
func (e *Engine) findFreeSlot(mapSector uint16) (int, *atrfs.DriverError) {
	hdrEnt, derr := e.getDirent(mapSector, 0)
	if derr != nil {
		return 0, derr
	}
	count := int(hdrEnt.Size) / direntSize
	for i := 1; i < count; i++ {
		d, derr := e.getDirent(mapSector, i)
		if derr != nil {
			return 0, derr
		}
		if !d.IsInUse() || d.IsDeleted() {
			return i, nil
		}
	}
	return e.extendDirectory(mapSector)
}

// freeFileChain walks a file's sector map freeing every data sector and
// every map sector.
func (e *Engine) freeFileChain(mapSector uint16) *atrfs.DriverError {
	if mapSector == 0 {
		return nil
	}
	perMap := slotsPerMapSector(e.c.SectorSize)
	cur := mapSector
	for cur != 0 {
		sec, derr := e.c.Sector(uint(cur))
		if derr != nil {
			return derr
		}
		for i := 0; i < perMap; i++ {
			if slot := mapSlot(sec, i); slot != 0 {
				if derr := e.freeSector(slot); derr != nil {
					return derr
				}
			}
		}
		next := mapNext(sec)
		if derr := e.freeSector(cur); derr != nil {
			return derr
		}
		cur = next
	}
	return nil
}

func splitParent(path string) (parent, name string) {
	dir, base := common.SplitPath(path)
	return dir, base
}

// Read returns up to size bytes of path's content starting at offset. A
// sparse hole (unallocated map slot) reads back as zeros.
func (e *Engine) Read(path string, offset int64, size int) ([]byte, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return nil, derr
	}
	if res.IsDir {
		return nil, atrfs.ErrIsDirectory
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return nil, derr
	}
	if offset >= int64(d.Size) {
		return nil, nil
	}
	end := offset + int64(size)
	if end > int64(d.Size) {
		end = int64(d.Size)
	}

	out := make([]byte, 0, end-offset)
	secSize := int64(e.c.SectorSize)
	for pos := offset; pos < end; {
		seq := int(pos / secSize)
		within := int(pos % secSize)
		n := secSize - int64(within)
		if pos+n > end {
			n = end - pos
		}

		dataSec, _, derr := e.getSector(d.MapSector, seq, false)
		if derr != nil {
			return nil, derr
		}
		if dataSec == 0 {
			out = append(out, make([]byte, n)...)
		} else {
			sec, derr := e.c.Sector(uint(dataSec))
			if derr != nil {
				return nil, derr
			}
			out = append(out, sec[within:within+int(n)]...)
		}
		pos += n
	}
	return out, nil
}

// Write stores buf at offset, allocating sectors (and map sectors) as needed
// to cover the new extent, and grows the file's recorded size if the write
// extends past the current end.
func (e *Engine) Write(path string, buf []byte, offset int64) (int, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return 0, derr
	}
	if res.IsDir {
		return 0, atrfs.ErrIsDirectory
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return 0, derr
	}

	secSize := int64(e.c.SectorSize)
	end := offset + int64(len(buf))
	written := 0
	for pos := offset; pos < end; {
		seq := int(pos / secSize)
		within := int(pos % secSize)
		n := secSize - int64(within)
		if pos+n > end {
			n = end - pos
		}

		dataSec, _, derr := e.getSector(d.MapSector, seq, true)
		if derr != nil {
			if written == 0 {
				return 0, derr
			}
			break
		}
		sec, derr := e.c.Sector(uint(dataSec))
		if derr != nil {
			return written, derr
		}
		copy(sec[within:within+int(n)], buf[written:written+int(n)])
		if derr := e.c.WriteSector(uint(dataSec), sec); derr != nil {
			return written, derr
		}
		written += int(n)
		pos += n
	}

	if uint32(end) > d.Size {
		d.Size = uint32(end)
	}
	if derr := e.putDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return written, derr
	}
	return written, nil
}

// Create adds a new, empty (sparse) file entry: one allocated map sector
// with no data-sector slots filled in yet.
func (e *Engine) Create(path string, mode os.FileMode) *atrfs.DriverError {
	parent, name := splitParent(path)
	res, derr := e.Resolve(parent)
	if derr != nil {
		return derr
	}
	if !res.IsDir && parent != "/" {
		return atrfs.ErrNotDirectory
	}
	dirMap := e.hdr.Dir
	if parent != "/" && parent != "" {
		dirMap = res.StartSector
	}

	if _, _, derr := e.findInDir(dirMap, name); derr == nil {
		return atrfs.ErrExists
	}

	mapSec, derr := e.allocSector()
	if derr != nil {
		return derr
	}

	slot, derr := e.findFreeSlot(dirMap)
	if derr != nil {
		return derr
	}

	status := byte(flagInUse)
	if mode&0222 == 0 {
		status |= flagLocked
	}
	d := Dirent{Status: status, MapSector: mapSec, Name: strings.ToUpper(name), Stamp: time.Now()}
	if derr := e.putDirent(dirMap, slot, d); derr != nil {
		return derr
	}
	return e.touchParent(parent)
}

// Mkdir allocates a map sector and a data sector for the new directory's
// header entry, installs the subdirectory's entry in the parent, and
// touches the parent's timestamp.
func (e *Engine) Mkdir(path string, mode os.FileMode) *atrfs.DriverError {
	parent, name := splitParent(path)
	dirMap := e.hdr.Dir
	if parent != "/" && parent != "" {
		res, derr := e.Resolve(parent)
		if derr != nil {
			return derr
		}
		if !res.IsDir {
			return atrfs.ErrNotDirectory
		}
		dirMap = res.StartSector
	}

	if _, _, derr := e.findInDir(dirMap, name); derr == nil {
		return atrfs.ErrExists
	}

	newMap, derr := e.allocSector()
	if derr != nil {
		return derr
	}
	now := time.Now()
	hdrEnt := Dirent{MapSector: 0, Size: 2 * direntSize, Name: strings.ToUpper(name), Stamp: now}
	if derr := e.putDirent(newMap, 0, hdrEnt); derr != nil {
		return derr
	}
	// The header's own blank trailing entry.
	if derr := e.putDirent(newMap, 1, Dirent{}); derr != nil {
		return derr
	}

	slot, derr := e.findFreeSlot(dirMap)
	if derr != nil {
		return derr
	}
	status := byte(flagInUse | flagDir)
	if mode&0222 == 0 {
		status |= flagLocked
	}
	d := Dirent{Status: status, MapSector: newMap, Size: 2 * direntSize, Name: strings.ToUpper(name), Stamp: now}
	if derr := e.putDirent(dirMap, slot, d); derr != nil {
		return derr
	}
	return e.touchParent(parent)
}

// Unlink removes a file entry, freeing its sector-map chain.
func (e *Engine) Unlink(path string) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	if res.IsDir {
		return atrfs.ErrIsDirectory
	}
	if res.Locked {
		return atrfs.ErrPermission
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	if derr := e.freeFileChain(d.MapSector); derr != nil {
		return derr
	}
	d.Status |= flagDeleted
	if derr := e.putDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return derr
	}
	parent, _ := splitParent(path)
	return e.touchParent(parent)
}

// Rmdir removes an empty subdirectory.
func (e *Engine) Rmdir(path string) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	if !res.IsDir {
		return atrfs.ErrNotDirectory
	}
	entries, derr := e.ReadDir(path)
	if derr != nil {
		return derr
	}
	if len(entries) > 0 {
		return atrfs.ErrNotEmpty
	}

	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	if derr := e.freeFileChain(d.MapSector); derr != nil {
		return derr
	}
	d.Status |= flagDeleted
	if derr := e.putDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return derr
	}
	parent, _ := splitParent(path)
	return e.touchParent(parent)
}

// Chmod maps the writable bit onto the LOCKED status flag.
func (e *Engine) Chmod(path string, mode os.FileMode) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	if mode&0222 == 0 {
		d.Status |= flagLocked
	} else {
		d.Status &^= flagLocked
	}
	return e.putDirent(res.ParentDir, res.DirEntryIndex, d)
}

// Truncate grows or shrinks a file to size bytes. Growth pads the last data
// sector's unused tail with zeros and extends the map sparsely (no data
// sectors allocated for the gap); shrink frees data sectors past the new end
// and any now-unneeded map-sector tail, clearing the last kept map sector's
// next pointer before freeing the rest.
func (e *Engine) Truncate(path string, size int64) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}

	secSize := int64(e.c.SectorSize)
	if size >= int64(d.Size) {
		if size > int64(d.Size) {
			lastSeq := int((int64(d.Size) - 1) / secSize)
			within := int((int64(d.Size) - 1) % secSize)
			if d.Size > 0 {
				if dataSec, _, derr := e.getSector(d.MapSector, lastSeq, false); derr == nil && dataSec != 0 {
					sec, derr := e.c.Sector(uint(dataSec))
					if derr != nil {
						return derr
					}
					for i := within + 1; i < int(secSize); i++ {
						sec[i] = 0
					}
					if derr := e.c.WriteSector(uint(dataSec), sec); derr != nil {
						return derr
					}
				}
			}
		}
		d.Size = uint32(size)
		return e.putDirent(res.ParentDir, res.DirEntryIndex, d)
	}

	// Shrinking: free every data sector whose sequence number is at or past
	// the new end, then trim unused map-sector tail.
	newLastSeq := -1
	if size > 0 {
		newLastSeq = int((size - 1) / secSize)
	}
	perMap := slotsPerMapSector(e.c.SectorSize)
	oldLastSeq := int((int64(d.Size) - 1) / secSize)
	if d.Size == 0 {
		oldLastSeq = -1
	}

	for seq := oldLastSeq; seq > newLastSeq; seq-- {
		dataSec, _, derr := e.getSector(d.MapSector, seq, false)
		if derr != nil {
			return derr
		}
		if dataSec != 0 {
			if derr := e.freeSector(dataSec); derr != nil {
				return derr
			}
		}
	}

	oldMapsUsed := oldLastSeq/perMap + 1
	if oldLastSeq < 0 {
		oldMapsUsed = 1
	}
	newMapsUsed := newLastSeq/perMap + 1
	if newLastSeq < 0 {
		newMapsUsed = 1
	}
	if newMapsUsed < oldMapsUsed {
		cur := d.MapSector
		var lastKept uint16
		for i := 0; i < newMapsUsed; i++ {
			sec, derr := e.c.Sector(uint(cur))
			if derr != nil {
				return derr
			}
			lastKept = cur
			cur = mapNext(sec)
		}
		if lastKept != 0 {
			sec, derr := e.c.Sector(uint(lastKept))
			if derr != nil {
				return derr
			}
			setMapNext(sec, 0)
			if derr := e.c.WriteSector(uint(lastKept), sec); derr != nil {
				return derr
			}
		}
		for cur != 0 {
			sec, derr := e.c.Sector(uint(cur))
			if derr != nil {
				return derr
			}
			next := mapNext(sec)
			if derr := e.freeSector(cur); derr != nil {
				return derr
			}
			cur = next
		}
	}

	d.Size = uint32(size)
	return e.putDirent(res.ParentDir, res.DirEntryIndex, d)
}

// Utimens writes directly into the dirent's date/time fields. A zero
// time.Time for either argument is treated as UTIME_OMIT (leave unchanged).
func (e *Engine) Utimens(path string, atime, mtime time.Time) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	d, derr := e.getDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	if !mtime.IsZero() {
		d.Stamp = mtime
	}
	return e.putDirent(res.ParentDir, res.DirEntryIndex, d)
}

// Rename supports RENAME_NOREPLACE, RENAME_EXCHANGE, and default-replace
// semantics, updating both the parent's entry and (for a directory) the
// directory's own header name field.
func (e *Engine) Rename(oldPath, newPath string, flags atrfs.RenameFlags) *atrfs.DriverError {
	oldRes, derr := e.Resolve(oldPath)
	if derr != nil {
		return derr
	}
	oldDirent, derr := e.getDirent(oldRes.ParentDir, oldRes.DirEntryIndex)
	if derr != nil {
		return derr
	}

	newParent, newName := splitParent(newPath)
	newDirMap := e.hdr.Dir
	if newParent != "/" && newParent != "" {
		pres, derr := e.Resolve(newParent)
		if derr != nil {
			return derr
		}
		if !pres.IsDir {
			return atrfs.ErrNotDirectory
		}
		newDirMap = pres.StartSector
	}

	existingIdx, existingDirent, existsErr := e.findInDir(newDirMap, newName)
	exists := existsErr == nil

	if flags&atrfs.RenameExchange != 0 {
		if !exists {
			return atrfs.ErrNotFound
		}
		newContent := oldDirent
		newContent.Name = strings.ToUpper(newName)
		oldContent := existingDirent
		oldContent.Name = oldDirent.Name
		if derr := e.putDirent(newDirMap, existingIdx, newContent); derr != nil {
			return derr
		}
		return e.putDirent(oldRes.ParentDir, oldRes.DirEntryIndex, oldContent)
	}

	if exists && flags&atrfs.RenameNoReplace != 0 {
		return atrfs.ErrExists
	}
	if oldDirent.IsDir() && exists {
		return atrfs.ErrExists
	}
	if oldDirent.IsDir() && strings.HasPrefix(strings.ToUpper(newPath)+"/", strings.ToUpper(oldPath)+"/") {
		return atrfs.ErrInvalid.WithMessage("cannot move a directory into its own subtree")
	}

	slot := existingIdx
	if !exists {
		var ferr *atrfs.DriverError
		slot, ferr = e.findFreeSlot(newDirMap)
		if ferr != nil {
			return ferr
		}
	} else {
		if derr := e.freeFileChain(existingDirent.MapSector); derr != nil {
			return derr
		}
	}

	newContent := oldDirent
	newContent.Name = strings.ToUpper(newName)
	if derr := e.putDirent(newDirMap, slot, newContent); derr != nil {
		return derr
	}

	oldDirent.Status |= flagDeleted
	if derr := e.putDirent(oldRes.ParentDir, oldRes.DirEntryIndex, oldDirent); derr != nil {
		return derr
	}

	if newContent.IsDir() {
		hdrEnt, derr := e.getDirent(newContent.MapSector, 0)
		if derr == nil {
			hdrEnt.Name = strings.ToUpper(newName)
			_ = e.putDirent(newContent.MapSector, 0, hdrEnt)
		}
	}

	oldParent, _ := splitParent(oldPath)
	if derr := e.touchParent(oldParent); derr != nil {
		return derr
	}
	return e.touchParent(newParent)
}
