package vtoc

import "github.com/eightbitatr/atrfs"

// ClusterBitmap adapts an Allocator that tracks free clusters into one that
// speaks sector numbers, for LiteDOS's cluster-indexed free-space bitmap.
// A cluster of clusterSize
// consecutive sectors is allocated or freed as a single indivisible unit,
// identified externally by its first sector number; callers elsewhere in the
// engine never need to know clustering is happening.
type ClusterBitmap struct {
	inner       Allocator
	clusterSize uint
}

// NewClusterBitmap wraps inner, whose unit space is clusters of clusterSize
// sectors each.
func NewClusterBitmap(inner Allocator, clusterSize uint) *ClusterBitmap {
	return &ClusterBitmap{inner: inner, clusterSize: clusterSize}
}

func (c *ClusterBitmap) clusterOf(sector uint) uint { return sector / c.clusterSize }

func (c *ClusterBitmap) IsFree(sector uint) bool {
	return c.inner.IsFree(c.clusterOf(sector))
}

func (c *ClusterBitmap) MarkAllocated(sector uint) *atrfs.DriverError {
	return c.inner.MarkAllocated(c.clusterOf(sector))
}

func (c *ClusterBitmap) MarkFree(sector uint) *atrfs.DriverError {
	return c.inner.MarkFree(c.clusterOf(sector))
}

// CountFree reports free space in sectors (free clusters times cluster
// size), the unit the on-disk free-sector counter is kept in.
func (c *ClusterBitmap) CountFree() uint {
	return c.inner.CountFree() * c.clusterSize
}

// AllocateFirst allocates one whole cluster and returns its first sector
// number. The remaining clusterSize-1 sectors in the cluster are reserved
// but unused by the chain that claims it; this wastes space on any cluster
// size above 1 but keeps every other engine component working in plain
// sector numbers.
func (c *ClusterBitmap) AllocateFirst() (uint, *atrfs.DriverError) {
	unit, derr := c.inner.AllocateFirst()
	if derr != nil {
		return 0, derr
	}
	return unit * c.clusterSize, nil
}

// AllocateContiguousRun rounds count up to a whole number of clusters.
func (c *ClusterBitmap) AllocateContiguousRun(count uint) (uint, *atrfs.DriverError) {
	clusters := (count + c.clusterSize - 1) / c.clusterSize
	unit, derr := c.inner.AllocateContiguousRun(clusters)
	if derr != nil {
		return 0, derr
	}
	return unit * c.clusterSize, nil
}
