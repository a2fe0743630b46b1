package geometry_test

import (
	"testing"

	"github.com/eightbitatr/atrfs/geometry"
)

func TestLookup_KnownSlug(t *testing.T) {
	g, err := geometry.Lookup("sd90k")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if g.SectorSize != 128 || g.SectorCount != 720 {
		t.Fatalf("unexpected geometry: %+v", g)
	}
}

func TestLookup_UnknownSlug(t *testing.T) {
	if _, err := geometry.Lookup("does-not-exist"); err == nil {
		t.Fatalf("expected an error for an unknown slug")
	}
}

func TestMatchBySize_FindsExactMatch(t *testing.T) {
	matches := geometry.MatchBySize(92160)
	if len(matches) != 1 || matches[0].Slug != "sd90k" {
		t.Fatalf("expected exactly one match for sd90k, got %+v", matches)
	}
}

func TestMatchBySize_TwoSizeIdenticalGeometriesBothMatch(t *testing.T) {
	// dd360k and sparta360k share the same byte size; both should be
	// returned, leaving disambiguation to the caller.
	matches := geometry.MatchBySize(368640)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches for the shared 368640-byte size, got %d: %+v", len(matches), matches)
	}
}

func TestMatchBySize_NoMatch(t *testing.T) {
	if matches := geometry.MatchBySize(1); matches != nil {
		t.Fatalf("expected no matches for an implausible size, got %+v", matches)
	}
}
