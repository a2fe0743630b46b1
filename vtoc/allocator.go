package vtoc

import "github.com/eightbitatr/atrfs"

// Allocator is the common surface Bitmap, DualBitmap, ExtendingBitmap, and
// ClusterBitmap all satisfy, letting the dosfamily engine allocate sectors
// without caring which concrete bitmap layout the mounted image uses.
type Allocator interface {
	IsFree(unit uint) bool
	MarkAllocated(unit uint) *atrfs.DriverError
	MarkFree(unit uint) *atrfs.DriverError
	CountFree() uint
	AllocateFirst() (uint, *atrfs.DriverError)
	AllocateContiguousRun(count uint) (uint, *atrfs.DriverError)
}

var (
	_ Allocator = (*Bitmap)(nil)
	_ Allocator = (*DualBitmap)(nil)
	_ Allocator = (*ExtendingBitmap)(nil)
	_ Allocator = (*ClusterBitmap)(nil)
)
