// Package diaginfo produces the human-readable ".info" text the facade
// synthesizes for any resolved path: directory-slot metadata, a compacted
// sector list, timestamps where the engine has them, and a delegation hook
// for type-specific content analysis. Grounded on disko.FileStat's field set
// (api.go) for what metadata is available, and on drivers/fat8/driver.go's
// Stat() for the sector-run accounting style.
package diaginfo

import (
	"fmt"
	"strings"

	"github.com/eightbitatr/atrfs"
)

// Classifier inspects a resolved path's name (and, loosely, its size) and
// returns a one-line content-type guess. The BASIC-program/6502-disassembly/
// executable-header analyzers this could delegate to are out of scope; the
// default classifier is an extension heuristic only.
type Classifier func(name string, size int64) string

// DefaultClassifier guesses a file's content type from its extension.
func DefaultClassifier(name string, size int64) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.HasSuffix(upper, ".BAS"):
		return "BASIC program (heuristic: .BAS extension)"
	case strings.HasSuffix(upper, ".COM"), strings.HasSuffix(upper, ".EXE"), strings.HasSuffix(upper, ".XEX"):
		return "Atari DOS executable (heuristic: extension)"
	case strings.HasSuffix(upper, ".SYS"):
		return "system file (heuristic: extension)"
	case size == 0:
		return "empty file"
	default:
		return "unknown (no matching heuristic)"
	}
}

// Generate produces the .info text for path, resolved against engine. The
// classifier argument may be nil, in which case DefaultClassifier is used.
func Generate(engine atrfs.Engine, path string, classifier Classifier) (string, *atrfs.DriverError) {
	if classifier == nil {
		classifier = DefaultClassifier
	}

	res, derr := engine.Resolve(path)
	if derr != nil {
		return "", derr
	}
	stat, derr := engine.Getattr(path)
	if derr != nil {
		return "", derr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "path: %s\n", path)
	fmt.Fprintf(&b, "type: %s\n", kindOf(res))
	fmt.Fprintf(&b, "size: %d bytes\n", stat.Size)
	fmt.Fprintf(&b, "locked: %v\n", stat.Locked)
	if res.FileNumber >= 0 {
		fmt.Fprintf(&b, "file number: %d\n", res.FileNumber)
	}
	fmt.Fprintf(&b, "directory entry index: %d\n", res.DirEntryIndex)
	fmt.Fprintf(&b, "enclosing directory sector: %d\n", res.ParentDir)

	if lister, ok := engine.(atrfs.SectorLister); ok {
		sectors, derr := lister.ListSectors(path)
		if derr == nil {
			fmt.Fprintf(&b, "sectors: %s\n", compactRuns(sectors))
		}
	}

	if !stat.LastModified.IsZero() {
		fmt.Fprintf(&b, "modified: %s\n", stat.LastModified.Format("2006-01-02 15:04:05"))
	}
	if !stat.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "created: %s\n", stat.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if !stat.IsDir() {
		_, name := splitName(path)
		fmt.Fprintf(&b, "content: %s\n", classifier(name, stat.Size))
	}

	return b.String(), nil
}

func kindOf(res atrfs.ResolveResult) string {
	if res.IsDir {
		return "directory"
	}
	return "file"
}

func splitName(path string) (dir, name string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "/", path
	}
	return path[:idx], path[idx+1:]
}

// compactRuns formats a sector list as a sequence of collapsed runs, e.g.
// "361 -- 368, 512, 900 -- 902".
func compactRuns(sectors []uint16) string {
	if len(sectors) == 0 {
		return "(none)"
	}
	var parts []string
	start := sectors[0]
	prev := sectors[0]
	flush := func(end uint16) {
		if start == end {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d -- %d", start, end))
		}
	}
	for _, s := range sectors[1:] {
		if s == prev+1 {
			prev = s
			continue
		}
		flush(prev)
		start, prev = s, s
	}
	flush(prev)
	return strings.Join(parts, ", ")
}
