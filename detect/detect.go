package detect

import (
	"github.com/hashicorp/go-multierror"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/dosfamily"
	"github.com/eightbitatr/atrfs/sparta"
)

// candidate pairs a sanity predicate with the engine it builds once the
// predicate passes.
type candidate struct {
	name  string
	check func(*container.Container) error
	open  func(*container.Container) (atrfs.Engine, *atrfs.DriverError)
}

// Detect runs the fixed-order sweep (Sparta, DOS2, DOS2.5, MyDOS, DOS1,
// LiteDOS) and returns the first passing engine. If none pass, the returned
// error is a *multierror.Error whose constituent errors are each
// candidate's specific sanity failure reason.
func Detect(c *container.Container) (atrfs.Engine, error) {
	candidates := []candidate{
		{"sparta", sanitySparta, openSparta},
		{"dos2", sanityDOS2, openDOS2},
		{"dos2.5", sanityDOS25, openDOS25},
		{"mydos", sanityMyDOS, openMyDOS},
		{"dos1", sanityDOS1, openDOS1},
		{"litedos", sanityLiteDOS, openLiteDOS},
	}

	var failures *multierror.Error
	for _, cand := range candidates {
		if err := cand.check(c); err != nil {
			failures = multierror.Append(failures, candidateError{cand.name, err})
			continue
		}
		engine, derr := cand.open(c)
		if derr != nil {
			failures = multierror.Append(failures, candidateError{cand.name, derr})
			continue
		}
		return engine, nil
	}
	return nil, failures.ErrorOrNil()
}

type candidateError struct {
	variant string
	cause   error
}

func (e candidateError) Error() string { return e.variant + ": " + e.cause.Error() }
func (e candidateError) Unwrap() error { return e.cause }

func openSparta(c *container.Container) (atrfs.Engine, *atrfs.DriverError) {
	return sparta.OpenEngine(c)
}

func openDOS2(c *container.Container) (atrfs.Engine, *atrfs.DriverError) {
	v := dosfamily.DOS2s(uint16(c.SectorCount), uint16(c.SectorSize))
	if c.SectorSize == 256 {
		v = dosfamily.DOS2d(uint16(c.SectorCount), uint16(c.SectorSize))
	}
	return dosfamily.OpenEngine(c, v)
}

func openDOS25(c *container.Container) (atrfs.Engine, *atrfs.DriverError) {
	v := dosfamily.DOS25(uint16(c.SectorCount), uint16(c.SectorSize))
	return dosfamily.OpenEngine(c, v)
}

func openMyDOS(c *container.Container) (atrfs.Engine, *atrfs.DriverError) {
	v := dosfamily.MyDOS(uint16(c.SectorCount), uint16(c.SectorSize))
	return dosfamily.OpenEngine(c, v)
}

func openDOS1(c *container.Container) (atrfs.Engine, *atrfs.DriverError) {
	v := dosfamily.DOS1(uint16(c.SectorCount), uint16(c.SectorSize))
	return dosfamily.OpenEngine(c, v)
}

// openLiteDOS decodes the VTOC byte 0 cluster-size encoding and builds the
// matching Variant. The root directory is assumed to start at sector 361
// regardless of cluster size: nothing observable in the bitmap layout
// changes its position, only the meaning of each bit.
func openLiteDOS(c *container.Container) (atrfs.Engine, *atrfs.DriverError) {
	sec, derr := c.Sector(vtocSector)
	if derr != nil {
		return nil, derr
	}
	clusterSize := uint16(sec[vtocMarkerOffset]&0x3F) + 1
	v := dosfamily.LiteDOS(uint16(c.SectorCount), uint16(c.SectorSize), clusterSize, rootDirStart)
	return dosfamily.OpenEngine(c, v)
}
