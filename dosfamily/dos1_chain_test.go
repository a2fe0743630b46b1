package dosfamily_test

import (
	"bytes"
	"testing"

	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/dosfamily"
)

// TestDOS1_MultiSectorFileRoundTrips writes content spanning several sectors
// to a DOS 1 image and reads it back, exercising the trailer's next-sector
// pointer instead of just the marker-byte check in
// TestFormat_DOS1_UsesDOS1Marker (format_test.go).
func TestDOS1_MultiSectorFileRoundTrips(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.DOS1(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}
	eng, derr := dosfamily.OpenEngine(c, v)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}

	if derr := eng.Create("/BIG.DAT", 0644); derr != nil {
		t.Fatalf("Create: %v", derr)
	}

	// 125 payload bytes per sector; 320 bytes spans three sectors.
	content := bytes.Repeat([]byte{0xAA, 0xBB, 0xCC, 0xDD}, 80)
	if len(content) != 320 {
		t.Fatalf("fixture length %d, want 320", len(content))
	}
	n, derr := eng.Write("/BIG.DAT", content, 0)
	if derr != nil {
		t.Fatalf("Write: %v", derr)
	}
	if n != len(content) {
		t.Fatalf("Write returned %d, want %d", n, len(content))
	}

	sectors, derr := eng.ListSectors("/BIG.DAT")
	if derr != nil {
		t.Fatalf("ListSectors: %v", derr)
	}
	if len(sectors) != 3 {
		t.Fatalf("expected a 3-sector chain, got %d sectors: %v", len(sectors), sectors)
	}

	entries, derr := eng.ReadDir("/")
	if derr != nil {
		t.Fatalf("ReadDir: %v", derr)
	}
	var size int64 = -1
	for _, e := range entries {
		if e.Name == "BIG.DAT" {
			size = e.Stat.Size
		}
	}
	if size != int64(len(content)) {
		t.Fatalf("directory entry size %d, want %d", size, len(content))
	}

	got, derr := eng.Read("/BIG.DAT", 0, len(content))
	if derr != nil {
		t.Fatalf("Read: %v", derr)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("read content did not round-trip across the DOS 1 chain")
	}
}
