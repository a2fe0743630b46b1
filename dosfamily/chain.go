package dosfamily

import "github.com/eightbitatr/atrfs"

// chainLink is one sector of a walked chain, with its trailer already
// decoded.
type chainLink struct {
	Sector  uint16
	Data    []byte
	Trailer Trailer
}

// walkChain follows the sector chain starting at start, belonging to the
// directory entry at slot dirIndex with NOFILENO flag noFileNo. It
// returns every link in order. A chain longer than the image's sector count
// is reported as a circular-chain I/O error; an out-of-range or
// mismatched-file-number next pointer is fatal
// for this file the same way.
func (e *Engine) walkChain(start uint16, dirIndex int, noFileNo bool) ([]chainLink, *atrfs.DriverError) {
	if start == 0 {
		return nil, nil
	}

	var links []chainLink
	seen := make(map[uint16]bool)
	cur := start

	for cur != 0 {
		if seen[cur] || len(links) > int(e.variant.TotalSectors) {
			return nil, atrfs.ErrIO.WithMessage("circular sector chain detected at sector %d", cur)
		}
		seen[cur] = true

		data, derr := e.c.Sector(uint(cur))
		if derr != nil {
			return nil, atrfs.ErrIO.WithMessage("chain sector %d: %s", cur, derr)
		}

		// Initialize the logical trailer view explicitly; relying on
		// whatever happens to be in the sector's last byte before it is
		// decoded would read garbage on the first chain-read iteration.
		t := decodeTrailer(data, e.variant.IsDOS1, noFileNo)

		if !e.variant.IsDOS1 && !noFileNo && t.FileNumber != dirIndex&0x3F {
			return nil, atrfs.ErrIO.WithMessage(
				"sector %d file-number trailer %d does not match directory slot %d",
				cur, t.FileNumber, dirIndex,
			)
		}

		links = append(links, chainLink{Sector: cur, Data: data, Trailer: t})

		if e.variant.IsDOS1 && t.EOF {
			break
		}
		if t.Next == 0 {
			break
		}
		if t.Next < 1 || uint(t.Next) > uint(e.variant.TotalSectors) {
			return nil, atrfs.ErrIO.WithMessage("invalid next-sector pointer %d", t.Next)
		}
		cur = t.Next
	}

	return links, nil
}

// ListSectors returns the physical sector run backing path, for Diag-Info's
// sector-chain analysis.
func (e *Engine) ListSectors(path string) ([]uint16, *atrfs.DriverError) {
	res, derr := e.Resolve(path)
	if derr != nil {
		return nil, derr
	}
	if res.IsDir {
		out := make([]uint16, res.SectorCount)
		for i := range out {
			out[i] = res.StartSector + uint16(i)
		}
		return out, nil
	}
	d, derr := e.readDirent(res.ParentDir, res.DirEntryIndex)
	if derr != nil {
		return nil, derr
	}
	links, derr := e.walkChain(d.StartSector, res.DirEntryIndex, d.NoFileNumber())
	if derr != nil {
		return nil, derr
	}
	out := make([]uint16, len(links))
	for i, l := range links {
		out[i] = l.Sector
	}
	return out, nil
}

// computeSize returns the file size implied by its chain's used-byte
// trailers.
func (e *Engine) computeSize(d Dirent, dirIndex int) (int64, *atrfs.DriverError) {
	if d.IsDir() {
		return 0, nil
	}
	links, derr := e.walkChain(d.StartSector, dirIndex, d.NoFileNumber())
	if derr != nil {
		return 0, derr
	}
	var total int64
	for _, l := range links {
		total += int64(l.Trailer.UsedCount)
	}
	return total, nil
}
