package dosfamily

import "github.com/eightbitatr/atrfs"

// Variant parameterizes the single DOS-family engine across DOS 1, DOS 2.0s,
// DOS 2.0d, DOS 2.5, MyDOS, and LiteDOS, the way the original's per-format
// function-pointer table does "Variant dispatch". Building
// one engine keyed on a Variant instead of five near-duplicate engines keeps
// the shared chain-walking and directory-slot logic in one place.
type Variant struct {
	FSType atrfs.FSType

	// IsDOS1 selects the DOS 1 trailer layout (two-byte next-sector field,
	// then a used-count byte whose high bit marks EOF) and its "no NOFILENO
	// bit" directory entries.
	IsDOS1 bool
	// IsMyDOS enables hierarchical subdirectories and VTOC extension past
	// sector 944. NOFILENO trailers are not keyed on it: every variant honors
	// an entry's NOFILENO flag, and Is1023Capped decides when one is set.
	IsMyDOS bool
	// HasSecondVTOC selects the DOS 2.5 dual-bitmap layout covering sectors
	// 720..1023 via a second VTOC sector.
	HasSecondVTOC bool
	// Is1023Capped marks DOS 2.0s/2.0d, whose trailer byte keeps only 2 bits
	// for the high part of the next-sector number: when a file is given a
	// sector above 1023, it is switched to NOFILENO trailers instead of
	// losing those bits. Allocation itself is not capped.
	Is1023Capped bool
	// ClusterSize is LiteDOS's cluster size in sectors. The other
	// constructors leave it 0; 0 and 1 both mean one sector per bitmap unit.
	ClusterSize uint

	VTOCSector       uint16
	SecondVTOCSector uint16
	RootDirStart     uint16
	RootDirSectors   uint16
	TotalSectors     uint16
	SectorSize       uint16
}

// DOS1 builds the Variant for classic Atari DOS 1 (90K single-density).
func DOS1(totalSectors, sectorSize uint16) Variant {
	return Variant{
		FSType:         atrfs.FSTypeDOS1,
		IsDOS1:         true,
		VTOCSector:     360,
		RootDirStart:   361,
		RootDirSectors: 8,
		TotalSectors:   totalSectors,
		SectorSize:     sectorSize,
	}
}

// DOS2s builds the Variant for DOS 2.0s (single density, 720 sectors).
func DOS2s(totalSectors, sectorSize uint16) Variant {
	return Variant{
		FSType:         atrfs.FSTypeDOS2s,
		Is1023Capped:   true,
		VTOCSector:     360,
		RootDirStart:   361,
		RootDirSectors: 8,
		TotalSectors:   totalSectors,
		SectorSize:     sectorSize,
	}
}

// DOS2d builds the Variant for DOS 2.0d (double density, 256-byte sectors).
func DOS2d(totalSectors, sectorSize uint16) Variant {
	v := DOS2s(totalSectors, sectorSize)
	v.FSType = atrfs.FSTypeDOS2d
	return v
}

// DOS25 builds the Variant for DOS 2.5, which adds the second VTOC sector
// at 1024 covering sectors 720..1023.
func DOS25(totalSectors, sectorSize uint16) Variant {
	return Variant{
		FSType:           atrfs.FSTypeDOS25,
		HasSecondVTOC:    true,
		VTOCSector:       360,
		SecondVTOCSector: 1024,
		RootDirStart:     361,
		RootDirSectors:   8,
		TotalSectors:     totalSectors,
		SectorSize:       sectorSize,
	}
}

// MyDOS builds the Variant for MyDOS 4.5x, which supports hierarchical
// subdirectories and a VTOC that extends downward from sector 360.
func MyDOS(totalSectors, sectorSize uint16) Variant {
	return Variant{
		FSType:         atrfs.FSTypeMyDOS,
		IsMyDOS:        true,
		VTOCSector:     360,
		RootDirStart:   361,
		RootDirSectors: 8,
		TotalSectors:   totalSectors,
		SectorSize:     sectorSize,
	}
}

// LiteDOS builds the Variant for LiteDOS, with the given cluster size
// (1, 2, 4, 8, 16, 32, or 64 sectors per bitmap unit). The first directory
// sector's position depends on clusterSize; callers compute
// rootDirStart accordingly.
func LiteDOS(totalSectors, sectorSize, clusterSize uint16, rootDirStart uint16) Variant {
	return Variant{
		FSType:         atrfs.FSTypeLiteDOS,
		ClusterSize:    uint(clusterSize),
		VTOCSector:     360,
		RootDirStart:   rootDirStart,
		RootDirSectors: 8,
		TotalSectors:   totalSectors,
		SectorSize:     sectorSize,
	}
}
