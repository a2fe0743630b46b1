package dosfamily

import (
	"os"
	"strings"
	"time"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/common"
)

// payloadLen returns how many content bytes one data sector holds, which is
// sector_size minus the 3-byte trailer for every variant including DOS 1:
// DOS 1 packs a real next-sector pointer into the trailer's first two bytes
// and the used-count/EOF byte into the third, the same 125-byte budget as
// the other variants' 128-byte sectors.
func (e *Engine) payloadLen() int {
	return int(e.variant.SectorSize) - 3
}

// Read follows path's chain and returns up to size bytes starting at offset.
func (e *Engine) Read(path string, offset int64, size int) ([]byte, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return nil, derr
	}
	if res.IsDir {
		return nil, atrfs.ErrIsDirectory
	}

	content, derr := e.readContent(res)
	if derr != nil {
		return nil, derr
	}

	if offset >= int64(len(content)) {
		return nil, nil
	}
	end := offset + int64(size)
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	out := make([]byte, end-offset)
	copy(out, content[offset:end])
	return out, nil
}

func (e *Engine) readContent(res atrfs.ResolveResult) ([]byte, *atrfs.DriverError) {
	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return nil, derr
	}
	links, derr := e.walkChain(d.StartSector, res.DirEntryIndex, d.NoFileNumber())
	if derr != nil {
		return nil, derr
	}

	plen := e.payloadLen()
	out := make([]byte, 0, len(links)*plen)
	for _, l := range links {
		n := int(l.Trailer.UsedCount)
		if n > plen {
			n = plen
		}
		out = append(out, l.Data[:n]...)
	}
	return out, nil
}

// Write mutates path's content starting at offset, extending the chain with
// newly allocated sectors if necessary
func (e *Engine) Write(path string, buf []byte, offset int64) (int, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return 0, derr
	}
	if res.IsDir {
		return 0, atrfs.ErrIsDirectory
	}
	if res.Locked {
		return 0, atrfs.ErrPermission
	}

	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return 0, derr
	}

	old, derr := e.readContent(res)
	if derr != nil {
		return 0, derr
	}

	newLen := offset + int64(len(buf))
	if newLen < int64(len(old)) {
		newLen = int64(len(old))
	}
	content := make([]byte, newLen)
	copy(content, old)
	copy(content[offset:], buf)

	links, derr := e.walkChain(d.StartSector, res.DirEntryIndex, d.NoFileNumber())
	if derr != nil {
		return 0, derr
	}

	plen := e.payloadLen()
	neededSectors := (len(content) + plen - 1) / plen
	if neededSectors == 0 {
		neededSectors = 1
	}

	sectors := make([]uint16, 0, neededSectors)
	for _, l := range links {
		sectors = append(sectors, l.Sector)
	}

	noFileNo := d.NoFileNumber()
	allocFailed := false
	for len(sectors) < neededSectors {
		unit, derr := e.alloc.AllocateFirst()
		if derr != nil {
			allocFailed = true
			break
		}
		if e.variant.Is1023Capped && unit > 1023 {
			noFileNo = true
		}
		sectors = append(sectors, uint16(unit))
	}

	if allocFailed {
		// Nothing has been written to any sector yet, so there's no partial
		// mutation to roll back. If the allocated sectors don't even cover
		// the requested write offset, nothing was or can be written.
		capacity := int64(len(sectors)) * int64(plen)
		if capacity <= offset {
			for _, s := range sectors[len(links):] {
				_ = e.alloc.MarkFree(uint(s))
			}
			return 0, atrfs.ErrNoSpace
		}
		content = content[:capacity]
	}

	if err := e.commitChain(sectors, content, noFileNo, res.DirEntryIndex); err != nil {
		return 0, err
	}

	d.StartSector = sectors[0]
	d.SectorCount = uint16(len(sectors))
	if noFileNo {
		d.Flags |= FlagNoFileNumber
	}
	if derr := e.writeDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return 0, derr
	}
	if len(sectors) != len(links) {
		if derr := e.syncFreeCounter(); derr != nil {
			return 0, derr
		}
	}

	written := len(buf)
	if int64(len(content)) < offset+int64(len(buf)) {
		written = int(int64(len(content)) - offset)
	}
	return written, nil
}

// commitChain writes content across sectors (allocating nothing itself --
// sectors must already be sized to hold content) and patches each sector's
// trailer to link to the next and record how many payload bytes are used.
func (e *Engine) commitChain(sectors []uint16, content []byte, noFileNo bool, dirIndex int) *atrfs.DriverError {
	plen := e.payloadLen()
	secSize := int(e.variant.SectorSize)

	for i, secNum := range sectors {
		buf := make([]byte, secSize)
		start := i * plen
		end := start + plen
		if end > len(content) {
			end = len(content)
		}
		if start < end {
			copy(buf, content[start:end])
		}
		used := end - start

		t := Trailer{UsedCount: byte(used)}
		if i == len(sectors)-1 {
			t.Next = 0
			t.EOF = true
		} else {
			t.Next = sectors[i+1]
			t.UsedCount = byte(plen)
		}
		if !e.variant.IsDOS1 {
			if noFileNo {
				t.NoFileNo = true
			} else {
				t.FileNumber = dirIndex & 0x3F
			}
		}
		encodeTrailer(buf, t, e.variant.IsDOS1)

		if derr := e.c.WriteSector(uint(secNum), buf); derr != nil {
			return derr
		}
	}
	return nil
}

// Create allocates a new, empty one-sector file in the root (or, for MyDOS,
// a resolved parent subdirectory): "a well-formed empty
// file is one sector with zero used bytes, not zero sectors."
func (e *Engine) Create(path string, mode os.FileMode) *atrfs.DriverError {
	dir, base := common.SplitPath(path)
	dirStart := e.variant.RootDirStart
	if dir != "/" {
		res, derr := e.Resolve(dir)
		if derr != nil {
			return derr
		}
		if !res.IsDir {
			return atrfs.ErrNotDirectory
		}
		dirStart = res.StartSector
	}

	if _, _, derr := e.findInDir(dirStart, base); derr == nil {
		return atrfs.ErrExists
	}

	slot, derr := e.findFreeSlot(dirStart)
	if derr != nil {
		return derr
	}

	unit, derr := e.alloc.AllocateFirst()
	if derr != nil {
		return derr
	}
	noFileNo := e.variant.Is1023Capped && unit > 1023

	if derr := e.commitChain([]uint16{uint16(unit)}, nil, noFileNo, slot); derr != nil {
		return derr
	}

	stem, ext, ok := common.SplitStemExt(base)
	if !ok {
		return atrfs.ErrNameTooLong
	}

	var d Dirent
	d.SetName(stem, ext)
	d.StartSector = uint16(unit)
	d.SectorCount = 1
	d.Flags = FlagInUse
	if !e.variant.IsDOS1 {
		d.Flags |= FlagDOS2Created
	}
	if noFileNo {
		d.Flags |= FlagNoFileNumber
	}

	if derr := e.writeDirent(dirStart, slot, d); derr != nil {
		return derr
	}
	if derr := e.syncFreeCounter(); derr != nil {
		return derr
	}

	if dir == "/" && strings.EqualFold(base, "DOS.SYS") {
		return e.patchBootHeaderForDOSSYS(uint16(unit))
	}
	return nil
}

// findFreeSlot returns the earliest reusable directory slot: a deleted
// entry if one precedes the end marker, otherwise the end-marker slot
// itself. Returns ENOSPC if the directory is full (64 slots for a fixed-size
// root directory).
func (e *Engine) findFreeSlot(dirStart uint16) (int, *atrfs.DriverError) {
	max := e.maxRootEntries()
	for i := 0; i < max; i++ {
		d, derr := e.readDirent(dirStart, i)
		if derr != nil {
			return 0, derr
		}
		if d.IsEndMarker() || d.IsDeleted() {
			return i, nil
		}
	}
	return 0, atrfs.ErrNoSpace
}

// Mkdir creates a subdirectory. Only MyDOS supports subdirectories.
func (e *Engine) Mkdir(path string, mode os.FileMode) *atrfs.DriverError {
	if !e.variant.IsMyDOS {
		return atrfs.ErrNotSupported
	}

	dir, base := common.SplitPath(path)
	dirStart := e.variant.RootDirStart
	if dir != "/" {
		res, derr := e.Resolve(dir)
		if derr != nil {
			return derr
		}
		if !res.IsDir {
			return atrfs.ErrNotDirectory
		}
		dirStart = res.StartSector
	}

	if _, _, derr := e.findInDir(dirStart, base); derr == nil {
		return atrfs.ErrExists
	}

	slot, derr := e.findFreeSlot(dirStart)
	if derr != nil {
		return derr
	}

	run, derr := e.alloc.AllocateContiguousRun(8)
	if derr != nil {
		return derr
	}

	empty := make([]byte, e.variant.SectorSize)
	for i := uint(0); i < 8; i++ {
		if derr := e.c.WriteSector(run+i, empty); derr != nil {
			return derr
		}
	}

	stem, ext, ok := common.SplitStemExt(base)
	if !ok {
		return atrfs.ErrNameTooLong
	}

	var d Dirent
	d.SetName(stem, ext)
	d.StartSector = uint16(run)
	d.SectorCount = 8
	d.Flags = FlagInUse | FlagDirectory

	if derr := e.writeDirent(dirStart, slot, d); derr != nil {
		return derr
	}
	return e.syncFreeCounter()
}

// freeChain frees every sector referenced by the chain starting at start.
func (e *Engine) freeChain(start uint16, dirIndex int, noFileNo bool) *atrfs.DriverError {
	links, derr := e.walkChain(start, dirIndex, noFileNo)
	if derr != nil {
		return derr
	}
	for _, l := range links {
		if derr := e.alloc.MarkFree(uint(l.Sector)); derr != nil {
			return derr
		}
	}
	return nil
}

// freeRun frees count contiguous sectors starting at start (MyDOS directory
// removal).
func (e *Engine) freeRun(start uint16, count uint16) *atrfs.DriverError {
	for i := uint16(0); i < count; i++ {
		if derr := e.alloc.MarkFree(uint(start + i)); derr != nil {
			return derr
		}
	}
	return nil
}

// Unlink removes a file, flagging its entry DELETED and freeing its chain.
func (e *Engine) Unlink(path string) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	if res.IsDir {
		return atrfs.ErrIsDirectory
	}
	if res.IsInfoRequest {
		return atrfs.ErrPermission
	}
	if res.Locked {
		return atrfs.ErrPermission
	}

	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	if derr := e.freeChain(d.StartSector, res.DirEntryIndex, d.NoFileNumber()); derr != nil {
		return derr
	}

	d.Flags = FlagDeleted
	if derr := e.writeDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return derr
	}
	return e.syncFreeCounter()
}

// Rmdir removes an empty subdirectory (MyDOS only).
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

	if derr := e.freeRun(res.StartSector, res.SectorCount); derr != nil {
		return derr
	}

	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	d.Flags = FlagDeleted
	if derr := e.writeDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return derr
	}
	return e.syncFreeCounter()
}

// Chmod maps the writable bit onto the entry's LOCKED flag.
func (e *Engine) Chmod(path string, mode os.FileMode) *atrfs.DriverError {
	res, derr := e.Resolve(path)
	if derr != nil {
		return derr
	}
	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	if mode&0200 == 0 {
		d.Flags |= FlagLocked
	} else {
		d.Flags &^= FlagLocked
	}
	return e.writeDirent(res.ParentDir, res.DirEntryIndex, d)
}

// Truncate grows or shrinks a file to size bytes.
func (e *Engine) Truncate(path string, size int64) *atrfs.DriverError {
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

	old, derr := e.readContent(res)
	if derr != nil {
		return derr
	}
	if int64(len(old)) == size {
		return nil
	}
	if size > int64(len(old)) {
		pad := make([]byte, size-int64(len(old)))
		_, derr := e.Write(path, pad, int64(len(old)))
		return derr
	}

	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return derr
	}
	links, derr := e.walkChain(d.StartSector, res.DirEntryIndex, d.NoFileNumber())
	if derr != nil {
		return derr
	}

	plen := e.payloadLen()
	keepSectors := int((size + int64(plen) - 1) / int64(plen))
	if keepSectors == 0 {
		keepSectors = 1
	}
	if keepSectors > len(links) {
		keepSectors = len(links)
	}

	for i := keepSectors; i < len(links); i++ {
		if derr := e.alloc.MarkFree(uint(links[i].Sector)); derr != nil {
			return derr
		}
	}

	kept := make([]uint16, keepSectors)
	for i := 0; i < keepSectors; i++ {
		kept[i] = links[i].Sector
	}
	content := old[:size]
	if derr := e.commitChain(kept, content, d.NoFileNumber(), res.DirEntryIndex); derr != nil {
		return derr
	}

	d.SectorCount = uint16(len(kept))
	if derr := e.writeDirent(res.ParentDir, res.DirEntryIndex, d); derr != nil {
		return derr
	}
	if keepSectors < len(links) {
		return e.syncFreeCounter()
	}
	return nil
}

// Utimens is not supported by any DOS-family format; only Sparta carries
// timestamps/§4.4.
func (e *Engine) Utimens(path string, atime, mtime time.Time) *atrfs.DriverError {
	return atrfs.ErrNotSupported
}

// Rename moves or exchanges a directory entry, following the same-directory
// fast path and the cross-directory slot-copy path.
func (e *Engine) Rename(oldPath, newPath string, flags atrfs.RenameFlags) *atrfs.DriverError {
	oldRes, derr := e.Resolve(oldPath)
	if derr != nil {
		return derr
	}

	newDir, newBase := common.SplitPath(newPath)
	newDirStart := e.variant.RootDirStart
	if newDir != "/" {
		dres, derr := e.Resolve(newDir)
		if derr != nil {
			return derr
		}
		if !dres.IsDir {
			return atrfs.ErrNotDirectory
		}
		newDirStart = dres.StartSector
	}

	if oldRes.IsDir && e.isAncestorPath(oldPath, newPath) {
		return atrfs.ErrInvalid.WithMessage("cannot rename a directory into its own subtree")
	}

	existingIdx, existingDirent, existErr := e.findInDir(newDirStart, newBase)
	exists := existErr == nil

	if flags&atrfs.RenameExchange != 0 {
		if !exists {
			return atrfs.ErrNotFound
		}
		oldDirent, derr := e.readDirent(oldRes.ParentDir, oldRes.DirEntryIndex)
		if derr != nil {
			return derr
		}

		// Swap the two entries' content (start sector, size, flags) while
		// each slot keeps the name matching the path it's found at.
		oldName := oldDirent.RawName
		oldExt := oldDirent.RawExt
		newSlotContent := oldDirent
		oldSlotContent := existingDirent

		newSlotContent.RawName, newSlotContent.RawExt = existingDirent.RawName, existingDirent.RawExt
		oldSlotContent.RawName, oldSlotContent.RawExt = oldName, oldExt

		if derr := e.writeDirent(newDirStart, existingIdx, newSlotContent); derr != nil {
			return derr
		}
		return e.writeDirent(oldRes.ParentDir, oldRes.DirEntryIndex, oldSlotContent)
	}

	if exists {
		if flags&atrfs.RenameNoReplace != 0 {
			return atrfs.ErrExists
		}
	}

	oldDirent, derr := e.readDirent(oldRes.ParentDir, oldRes.DirEntryIndex)
	if derr != nil {
		return derr
	}

	stem, ext, ok := common.SplitStemExt(newBase)
	if !ok {
		return atrfs.ErrNameTooLong
	}

	if oldRes.ParentDir == newDirStart {
		oldDirent.SetName(stem, ext)
		return e.writeDirent(oldRes.ParentDir, oldRes.DirEntryIndex, oldDirent)
	}

	slot := existingIdx
	replacedExisting := false
	if !exists {
		var ferr *atrfs.DriverError
		slot, ferr = e.findFreeSlot(newDirStart)
		if ferr != nil {
			return ferr
		}
	} else {
		if derr := e.freeChain(existingDirent.StartSector, existingIdx, existingDirent.NoFileNumber()); derr != nil {
			return derr
		}
		replacedExisting = true
	}

	moved := oldDirent
	moved.SetName(stem, ext)
	if derr := e.writeDirent(newDirStart, slot, moved); derr != nil {
		return derr
	}

	oldDirent.Flags = FlagDeleted
	if derr := e.writeDirent(oldRes.ParentDir, oldRes.DirEntryIndex, oldDirent); derr != nil {
		return derr
	}
	if replacedExisting {
		return e.syncFreeCounter()
	}
	return nil
}

func (e *Engine) isAncestorPath(ancestor, descendant string) bool {
	aSegs := common.SplitSegments(ancestor)
	dSegs := common.SplitSegments(descendant)
	if len(dSegs) <= len(aSegs) {
		return false
	}
	for i, s := range aSegs {
		if !common.EqualFoldASCII(s, dSegs[i]) {
			return false
		}
	}
	return true
}

