package atrfs

import (
	"os"
	"time"
)

// FSType identifies one of the on-disk layouts this module understands. It is
// the dispatch tag the FileSystemFacade uses to pick an engine.
type FSType string

const (
	FSTypeDOS1     FSType = "dos1"
	FSTypeDOS2s    FSType = "dos2s"
	FSTypeDOS2d    FSType = "dos2d"
	FSTypeDOS25    FSType = "dos25"
	FSTypeMyDOS    FSType = "mydos"
	FSTypeLiteDOS  FSType = "litedos"
	FSTypeSparta   FSType = "sparta"
	FSTypeUnknown  FSType = ""
)

// FileStat is a platform-independent form of syscall.Stat_t, filled in as far
// as each on-disk format supports.
type FileStat struct {
	InodeNumber  uint64
	Nlinks       uint64
	ModeFlags    os.FileMode
	Size         int64
	BlockSize    int64
	NumBlocks    int64
	CreatedAt    time.Time
	LastModified time.Time
	LastChanged  time.Time
	LastAccessed time.Time
	DeletedAt    time.Time
	Locked       bool
}

func (stat *FileStat) IsDir() bool  { return stat.ModeFlags.IsDir() }
func (stat *FileStat) IsFile() bool { return stat.ModeFlags.IsRegular() }

// FSStat is a platform-independent form of syscall.Statfs_t.
type FSStat struct {
	BlockSize       int64
	TotalBlocks     uint64
	BlocksFree      uint64
	BlocksAvailable uint64
	Files           uint64
	FilesFree       uint64
	MaxNameLength   int64
	Label           string
}

// DirectoryEntry is one name produced by an Engine's ReadDir.
type DirectoryEntry struct {
	Name  string
	Stat  FileStat
	IsDir bool
	IsDotfile bool
}

// ResolveResult is everything path resolution inside an Engine needs to hand
// back to the facade to perform a subsequent operation.
type ResolveResult struct {
	// StartSector is the first sector (DOS family) or sector-map sector
	// (Sparta) of the resolved object. For the root directory it is the
	// root directory's first sector (DOS family) or map sector (Sparta).
	StartSector   uint16
	ParentDir     uint16
	SectorCount   uint16
	Locked        bool
	FileNumber    int // -1 if not applicable (Sparta, or NOFILENO set)
	DirEntryIndex int // index of the resolved entry within ParentDir
	IsDir         bool
	IsInfoRequest bool // true if the final path component had a ".info" suffix
}

// RenameFlags mirrors the renameat2(2) flags: replace-by-default, no-replace,
// and atomic exchange.
type RenameFlags int

const (
	RenameNoReplace = RenameFlags(1 << iota)
	RenameExchange
)

// Engine is the operation set one on-disk file-system layout must implement.
// FileSystemFacade dispatches every host callback to the Engine matching the
// mounted image's FSType. This plays the role of a closed, per-format
// function table rather than an open plugin registry, since there's a
// fixed set of recognized formats.
type Engine interface {
	FSType() FSType

	Resolve(path string) (ResolveResult, *DriverError)
	ReadDir(path string) ([]DirectoryEntry, *DriverError)
	Read(path string, offset int64, size int) ([]byte, *DriverError)
	Write(path string, buf []byte, offset int64) (int, *DriverError)
	Create(path string, mode os.FileMode) *DriverError
	Mkdir(path string, mode os.FileMode) *DriverError
	Unlink(path string) *DriverError
	Rmdir(path string) *DriverError
	Rename(oldPath, newPath string, flags RenameFlags) *DriverError
	Chmod(path string, mode os.FileMode) *DriverError
	Truncate(path string, size int64) *DriverError
	Utimens(path string, atime, mtime time.Time) *DriverError
	Getattr(path string) (FileStat, *DriverError)
	StatFS() FSStat
}

// SectorLister is an optional capability an Engine can implement to expose
// the physical sector run backing a path, for Diag-Info's sector-chain/map
// analysis. Not every Engine method needs this, so it's a separate interface
// rather than an addition to Engine itself.
type SectorLister interface {
	ListSectors(path string) ([]uint16, *DriverError)
}
