// Package geometry holds the named historical Atari floppy/hard-disk
// geometries an image might claim to be, repurposing disks/disks.go's
// gocsv.UnmarshalToCallback-loaded DiskGeometry table from generic storage-
// device geometry to this module's specific, fixed set of Atari formats.
package geometry

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry is one named, predefined disk layout.
type Geometry struct {
	Name        string `csv:"name"`
	Slug        string `csv:"slug"`
	SectorSize  uint   `csv:"sector_size"`
	SectorCount uint   `csv:"sector_count"`
	TotalBytes  uint   `csv:"total_bytes"`
	Notes       string `csv:"notes"`
}

//go:embed atari-geometries.csv
var geometriesCSV string

var byslug map[string]Geometry

// Lookup returns the predefined geometry with the given slug.
func Lookup(slug string) (Geometry, error) {
	g, ok := byslug[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined disk geometry with slug %q", slug)
	}
	return g, nil
}

// MatchBySize returns every predefined geometry whose TotalBytes matches
// size, for identifying an unlabeled image by the size of its sector data
// (sector count times sector size, without the 16-byte .atr header).
func MatchBySize(size uint) []Geometry {
	var out []Geometry
	for _, g := range byslug {
		if g.TotalBytes == size {
			out = append(out, g)
		}
	}
	return out
}

func init() {
	byslug = make(map[string]Geometry)
	reader := strings.NewReader(geometriesCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := byslug[row.Slug]; exists {
			return fmt.Errorf("duplicate predefined geometry slug %q", row.Slug)
		}
		byslug[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}
