package dosfamily

import "github.com/eightbitatr/atrfs"

// Boot-sector header byte offsets (sector 1), shared by DOS1/DOS2/DOS2.5/
// MyDOS. Not given at the byte level by the on-disk format description
// available to us; this assignment is an implementation decision that keeps
// the "DOS present" flag and the starting sector of
// DOS.SYS in the boot sector's otherwise-unused tail.
const (
	bootOffDOSFlag    = 0x09
	bootOffDOSStartLo = 0x0A
	bootOffDOSStartHi = 0x0B
)

// patchBootHeaderForDOSSYS marks sector 1's DOS-present flag and records
// dosSysStart as the starting sector of a newly created /DOS.SYS, so the
// boot loader knows where to find it. LiteDOS leaves this untouched: the
// real LiteDOS source guards the equivalent code with `if 0`, so there is no
// behavior to reproduce here.
func (e *Engine) patchBootHeaderForDOSSYS(dosSysStart uint16) *atrfs.DriverError {
	if e.variant.FSType == atrfs.FSTypeLiteDOS {
		return nil
	}
	sec, derr := e.c.Sector(1)
	if derr != nil {
		return derr
	}
	sec[bootOffDOSFlag] = 1
	sec[bootOffDOSStartLo] = byte(dosSysStart)
	sec[bootOffDOSStartHi] = byte(dosSysStart >> 8)
	return e.c.WriteSector(1, sec)
}
