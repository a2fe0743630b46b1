// Package atrfstest provides synthetic-image helpers for tests: blank
// formatted images built in memory (no file I/O) and loaders for
// fixture bytes, adapted from dargueta-disko's testing/images.go to this
// module's container/dosfamily/sparta types.
package atrfstest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/dosfamily"
	"github.com/eightbitatr/atrfs/sparta"
)

// OpenBytes parses data (optionally gzip-wrapped RLE8 compressed) as a .atr
// image, failing the test immediately on any parse error. data is wrapped as
// an io.ReadWriteSeeker the same way dargueta-disko's testing/images.go wraps
// fixture bytes, even though Open only reads from it.
func OpenBytes(t *testing.T, data []byte) *container.Container {
	t.Helper()
	c, err := container.Open(bytesextra.NewReadWriteSeeker(data))
	require.NoError(t, err)
	return c
}

// NewBlankDOS creates an all-zero image of the given geometry and formats
// it as v, failing the test immediately on any error. v is typically one of
// dosfamily.DOS1, dosfamily.DOS2s, dosfamily.DOS2d, dosfamily.DOS25,
// dosfamily.MyDOS, or dosfamily.LiteDOS.
func NewBlankDOS(t *testing.T, sectorCount, sectorSize uint16, v dosfamily.Variant) *container.Container {
	t.Helper()
	c, err := container.Create(uint(sectorCount), uint(sectorSize))
	require.NoError(t, err)
	derr := dosfamily.Format(c, v)
	require.Nil(t, derr, "%v", derr)
	return c
}

// NewBlankSparta creates an all-zero image of the given geometry and
// formats it as a Sparta volume with the given label and revision, failing
// the test immediately on any error.
func NewBlankSparta(t *testing.T, sectorCount, sectorSize uint16, label string, revision byte) *container.Container {
	t.Helper()
	c, err := container.Create(uint(sectorCount), uint(sectorSize))
	require.NoError(t, err)
	derr := sparta.Format(c, label, revision)
	require.Nil(t, derr, "%v", derr)
	return c
}
