package dosfamily_test

import (
	"testing"

	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/dosfamily"
)

func TestFormat_DOS2s_ProducesEmptyReadableRoot(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.DOS2s(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, derr := dosfamily.OpenEngine(c, v)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}

	entries, derr := eng.ReadDir("/")
	if derr != nil {
		t.Fatalf("ReadDir: %v", derr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty root directory, got %d entries", len(entries))
	}

	stat := eng.StatFS()
	if stat.BlocksFree == 0 {
		t.Fatalf("expected some free sectors after formatting")
	}
	if stat.TotalBlocks != 720 {
		t.Fatalf("expected 720 total blocks, got %d", stat.TotalBlocks)
	}
}

func TestFormat_DOS2s_ReservesBootVTOCAndRootDirSectors(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.DOS2s(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}
	eng, derr := dosfamily.OpenEngine(c, v)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}

	stat := eng.StatFS()
	// 720 total, minus boot(3) + VTOC(1) + root dir(8) reserved sectors.
	want := uint64(720 - 3 - 1 - 8)
	if stat.BlocksFree != want {
		t.Fatalf("expected %d free sectors, got %d", want, stat.BlocksFree)
	}
}

func TestFormat_MyDOS_SupportsSubdirectoriesAfterFormat(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.MyDOS(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, derr := dosfamily.OpenEngine(c, v)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}
	if derr := eng.Mkdir("/SUBDIR", 0755); derr != nil {
		t.Fatalf("Mkdir: %v", derr)
	}

	entries, derr := eng.ReadDir("/")
	if derr != nil {
		t.Fatalf("ReadDir: %v", derr)
	}
	if len(entries) != 1 || entries[0].Name != "SUBDIR" || !entries[0].IsDir {
		t.Fatalf("expected one SUBDIR directory entry, got %+v", entries)
	}
}

func TestFormat_LiteDOS_EncodesClusterSizeInMarkerByte(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.LiteDOS(720, 128, 4, 361)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	sec, derr := c.Sector(v.VTOCSector)
	if derr != nil {
		t.Fatalf("Sector: %v", derr)
	}
	// Cluster size 4 packs as (4-1)=3 into the marker byte's low 6 bits,
	// tagged with top bits 01 (0x40) to distinguish it from DOS1/DOS2.
	if sec[0] != 0x43 {
		t.Fatalf("expected marker byte 0x43 for cluster size 4, got %#02x", sec[0])
	}

	eng, derr := dosfamily.OpenEngine(c, v)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}
	entries, derr := eng.ReadDir("/")
	if derr != nil {
		t.Fatalf("ReadDir: %v", derr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty root directory, got %d entries", len(entries))
	}
}

func TestFormat_DOS1_UsesDOS1Marker(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.DOS1(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	sec, derr := c.Sector(v.VTOCSector)
	if derr != nil {
		t.Fatalf("Sector: %v", derr)
	}
	if sec[0] != 1 {
		t.Fatalf("expected DOS 1 marker byte 1, got %d", sec[0])
	}
}
