// Package atrfs reads and writes Atari 8-bit floppy disk images held in .atr
// container files. It recognizes the historical on-disk file systems used by
// Atari DOS 1, DOS 2.0s, DOS 2.0d, DOS 2.5, MyDOS 4.5x, SpartaDOS/SDFS, and
// LiteDOS, and exposes their contents through a single POSIX-style callback
// surface suitable for wiring into a userspace file system shim.
//
// The package is organized the way the on-disk formats are: container.Container
// owns the raw sector-addressable byte region, dosfamily.Engine and
// sparta.Engine implement the two families of on-disk layout, detect.Detect
// picks an engine for an unrecognized image, and facade.FileSystemFacade
// dispatches host callbacks to whichever engine matches. The root package
// holds the types they share (Engine, DriverError, MountFlags, ...).
package atrfs
