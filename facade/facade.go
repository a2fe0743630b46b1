// Package facade is the single VFS-like callback surface a host mounts
// against: {getattr, readdir, read, write, create, mkdir, unlink, rmdir,
// rename, chmod, truncate, utimens, statfs}. It fans every call out to (a) a
// "special files" layer synthesizing .bootinfo/.bootsectors/.fsinfo at the
// root and .info at any path, and (b) the atrfs.Engine matching the mounted
// image's FSType, gating mutations against the mount's MountFlags the way
// driver/driver.go's BaseDriver gates writes against mountFlags.CanWrite().
package facade

import (
	"os"
	"time"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/detect"
	"github.com/eightbitatr/atrfs/diaginfo"
)

// splitInfoSuffix reports whether path's final component ends in ".info"
// (case-insensitively) and, if so, returns the path with the suffix
// stripped. This mirrors the per-engine Resolve logic that flags
// ResolveResult.IsInfoRequest, but operates on the path string directly so
// the facade can redirect Getattr/Read before ever calling the engine.
func splitInfoSuffix(path string) (real string, isInfo bool) {
	const suffix = ".info"
	if len(path) <= len(suffix) {
		return path, false
	}
	tail := path[len(path)-len(suffix):]
	matches := true
	for i := 0; i < len(suffix); i++ {
		a, b := tail[i], suffix[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if a != b {
			matches = false
			break
		}
	}
	if !matches {
		return path, false
	}
	return path[:len(path)-len(suffix)], true
}

// sliceString returns the [offset, offset+size) byte range of s, clamped to
// s's length, as diaginfo text is generated fresh rather than stored.
func sliceString(s string, offset int64, size int) []byte {
	if offset >= int64(len(s)) {
		return nil
	}
	end := offset + int64(size)
	if end > int64(len(s)) {
		end = int64(len(s))
	}
	return []byte(s[offset:end])
}

// FileSystemFacade dispatches every host callback to the Engine matching the
// mounted image's FSType, synthesizing a handful of introspection dotfiles
// along the way. It owns the Container and Engine for the life of one mount.
type FileSystemFacade struct {
	c      *container.Container
	engine atrfs.Engine
	flags  atrfs.MountFlags

	Classifier diaginfo.Classifier
}

// Mount detects the on-disk format of c and returns a facade ready to serve
// callbacks under flags.
func Mount(c *container.Container, flags atrfs.MountFlags) (*FileSystemFacade, error) {
	engine, err := detect.Detect(c)
	if err != nil {
		return nil, err
	}
	return &FileSystemFacade{c: c, engine: engine, flags: flags}, nil
}

// MountAs is like Mount but skips auto-detection, for callers that already
// know (or want to force) the on-disk format.
func MountAs(c *container.Container, engine atrfs.Engine, flags atrfs.MountFlags) *FileSystemFacade {
	return &FileSystemFacade{c: c, engine: engine, flags: flags}
}

// FSType returns the tag of the engine currently mounted.
func (f *FileSystemFacade) FSType() atrfs.FSType { return f.engine.FSType() }

func (f *FileSystemFacade) requireRead() *atrfs.DriverError {
	if !f.flags.CanRead() {
		return atrfs.ErrPermission.WithMessage("image mounted without read permission")
	}
	return nil
}

func (f *FileSystemFacade) requireWrite() *atrfs.DriverError {
	if !f.flags.CanWrite() {
		return atrfs.ErrReadOnly.WithMessage("image mounted read-only")
	}
	return nil
}

func (f *FileSystemFacade) requireInsert() *atrfs.DriverError {
	if !f.flags.CanInsert() {
		return atrfs.ErrPermission.WithMessage("image mounted without create permission")
	}
	return nil
}

func (f *FileSystemFacade) requireDelete() *atrfs.DriverError {
	if !f.flags.CanDelete() {
		return atrfs.ErrPermission.WithMessage("image mounted without delete permission")
	}
	return nil
}

func (f *FileSystemFacade) requireAdminister() *atrfs.DriverError {
	if !f.flags.CanAdminister() {
		return atrfs.ErrPermission.WithMessage("image mounted without administer permission")
	}
	return nil
}

// Getattr reports metadata for path, dispatching to the special-files layer
// first so dotfiles shadow anything a real engine might coincidentally have
// at the same name.
func (f *FileSystemFacade) Getattr(path string) (atrfs.FileStat, *atrfs.DriverError) {
	if derr := f.requireRead(); derr != nil {
		return atrfs.FileStat{}, derr
	}
	if sf, ok := f.specialFile(path); ok {
		return sf.stat(f)
	}
	if real, isInfo := splitInfoSuffix(path); isInfo {
		return f.infoStat(real)
	}
	return f.engine.Getattr(path)
}

// infoStat generates the .info body for real and reports it as a read-only
// file whose size is the generated text's length, computed fresh on every
// call rather than cached.
func (f *FileSystemFacade) infoStat(real string) (atrfs.FileStat, *atrfs.DriverError) {
	text, derr := diaginfo.Generate(f.engine, real, f.Classifier)
	if derr != nil {
		return atrfs.FileStat{}, derr
	}
	return atrfs.FileStat{
		ModeFlags: 0444,
		Size:      int64(len(text)),
	}, nil
}

// ReadDir lists path's entries, appending the root-level dotfiles when path
// is "/".
func (f *FileSystemFacade) ReadDir(path string) ([]atrfs.DirectoryEntry, *atrfs.DriverError) {
	if derr := f.requireRead(); derr != nil {
		return nil, derr
	}
	entries, derr := f.engine.ReadDir(path)
	if derr != nil {
		return nil, derr
	}
	if path == "/" || path == "" {
		for _, sf := range rootDotfiles {
			stat, derr := sf.stat(f)
			if derr != nil {
				continue
			}
			entries = append(entries, atrfs.DirectoryEntry{
				Name:      sf.name,
				Stat:      stat,
				IsDir:     false,
				IsDotfile: true,
			})
		}
	}
	return entries, nil
}

// Read returns size bytes of path starting at offset.
func (f *FileSystemFacade) Read(path string, offset int64, size int) ([]byte, *atrfs.DriverError) {
	if derr := f.requireRead(); derr != nil {
		return nil, derr
	}
	if sf, ok := f.specialFile(path); ok {
		return sf.read(f, offset, size)
	}
	if real, isInfo := splitInfoSuffix(path); isInfo {
		return readString(f, real, offset, size)
	}
	return f.engine.Read(path, offset, size)
}

// readString generates the .info body for real and slices it like an
// ordinary file read.
func readString(f *FileSystemFacade, real string, offset int64, size int) ([]byte, *atrfs.DriverError) {
	text, derr := diaginfo.Generate(f.engine, real, f.Classifier)
	if derr != nil {
		return nil, derr
	}
	return sliceString(text, offset, size), nil
}

// Write mutates path starting at offset.
func (f *FileSystemFacade) Write(path string, buf []byte, offset int64) (int, *atrfs.DriverError) {
	if derr := f.requireWrite(); derr != nil {
		return 0, derr
	}
	if sf, ok := f.specialFile(path); ok {
		return sf.write(f, buf, offset)
	}
	if _, isInfo := splitInfoSuffix(path); isInfo {
		return 0, atrfs.ErrReadOnly.WithMessage("%q is a read-only introspection view", path)
	}
	return f.engine.Write(path, buf, offset)
}

// Create makes a new empty file at path.
func (f *FileSystemFacade) Create(path string, mode os.FileMode) *atrfs.DriverError {
	if derr := f.requireInsert(); derr != nil {
		return derr
	}
	if _, ok := f.specialFile(path); ok {
		return atrfs.ErrExists.WithMessage("%q is a reserved introspection file", path)
	}
	if _, isInfo := splitInfoSuffix(path); isInfo {
		return atrfs.ErrExists.WithMessage("%q is a reserved introspection file", path)
	}
	return f.engine.Create(path, mode)
}

// Mkdir creates a new subdirectory at path.
func (f *FileSystemFacade) Mkdir(path string, mode os.FileMode) *atrfs.DriverError {
	if derr := f.requireInsert(); derr != nil {
		return derr
	}
	return f.engine.Mkdir(path, mode)
}

// Unlink removes a file.
func (f *FileSystemFacade) Unlink(path string) *atrfs.DriverError {
	if derr := f.requireDelete(); derr != nil {
		return derr
	}
	if _, ok := f.specialFile(path); ok {
		return atrfs.ErrPermission.WithMessage("%q is a reserved introspection file", path)
	}
	return f.engine.Unlink(path)
}

// Rmdir removes an empty subdirectory.
func (f *FileSystemFacade) Rmdir(path string) *atrfs.DriverError {
	if derr := f.requireDelete(); derr != nil {
		return derr
	}
	return f.engine.Rmdir(path)
}

// Rename moves or exchanges oldPath and newPath.
func (f *FileSystemFacade) Rename(oldPath, newPath string, flags atrfs.RenameFlags) *atrfs.DriverError {
	if derr := f.requireInsert(); derr != nil {
		return derr
	}
	if _, ok := f.specialFile(oldPath); ok {
		return atrfs.ErrPermission.WithMessage("%q is a reserved introspection file", oldPath)
	}
	if _, ok := f.specialFile(newPath); ok {
		return atrfs.ErrPermission.WithMessage("%q is a reserved introspection file", newPath)
	}
	return f.engine.Rename(oldPath, newPath, flags)
}

// Chmod changes path's permission bits.
func (f *FileSystemFacade) Chmod(path string, mode os.FileMode) *atrfs.DriverError {
	if derr := f.requireAdminister(); derr != nil {
		return derr
	}
	if _, ok := f.specialFile(path); ok {
		return atrfs.ErrNotSupported
	}
	if _, isInfo := splitInfoSuffix(path); isInfo {
		return atrfs.ErrNotSupported
	}
	return f.engine.Chmod(path, mode)
}

// Truncate resizes path to size bytes.
func (f *FileSystemFacade) Truncate(path string, size int64) *atrfs.DriverError {
	if derr := f.requireWrite(); derr != nil {
		return derr
	}
	if _, ok := f.specialFile(path); ok {
		return atrfs.ErrNotSupported
	}
	if _, isInfo := splitInfoSuffix(path); isInfo {
		return atrfs.ErrNotSupported
	}
	return f.engine.Truncate(path, size)
}

// Utimens updates path's access and modification timestamps.
func (f *FileSystemFacade) Utimens(path string, atime, mtime time.Time) *atrfs.DriverError {
	if derr := f.requireAdminister(); derr != nil {
		return derr
	}
	if _, ok := f.specialFile(path); ok {
		return atrfs.ErrNotSupported
	}
	if _, isInfo := splitInfoSuffix(path); isInfo {
		return atrfs.ErrNotSupported
	}
	return f.engine.Utimens(path, atime, mtime)
}

// StatFS reports aggregate volume statistics.
func (f *FileSystemFacade) StatFS() atrfs.FSStat {
	return f.engine.StatFS()
}
