package sparta_test

import (
	"testing"

	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/sparta"
)

func TestFormat_ProducesEmptyReadableRoot(t *testing.T) {
	c, err := container.Create(1440, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if derr := sparta.Format(c, "TESTVOL", sparta.RevisionSD20); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, derr := sparta.OpenEngine(c)
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
	if stat.Label != "TESTVOL" {
		t.Fatalf("expected label TESTVOL, got %q", stat.Label)
	}
	if stat.TotalBlocks != 1440 {
		t.Fatalf("expected 1440 total blocks, got %d", stat.TotalBlocks)
	}
	if stat.BlocksFree == 0 {
		t.Fatalf("expected some free sectors after formatting")
	}
}

func TestFormat_SupportsCreatingFilesAndSubdirectories(t *testing.T) {
	c, err := container.Create(1440, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if derr := sparta.Format(c, "TESTVOL", sparta.RevisionSD20); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, derr := sparta.OpenEngine(c)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}

	if derr := eng.Mkdir("/SUBDIR", 0755); derr != nil {
		t.Fatalf("Mkdir: %v", derr)
	}
	if derr := eng.Create("/SUBDIR/FILE.TXT", 0644); derr != nil {
		t.Fatalf("Create: %v", derr)
	}
	if _, derr := eng.Write("/SUBDIR/FILE.TXT", []byte("hello"), 0); derr != nil {
		t.Fatalf("Write: %v", derr)
	}

	data, derr := eng.Read("/SUBDIR/FILE.TXT", 0, 5)
	if derr != nil {
		t.Fatalf("Read: %v", derr)
	}
	if string(data) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", data)
	}

	entries, derr := eng.ReadDir("/")
	if derr != nil {
		t.Fatalf("ReadDir: %v", derr)
	}
	if len(entries) != 1 || entries[0].Name != "SUBDIR" || !entries[0].IsDir {
		t.Fatalf("expected one SUBDIR entry, got %+v", entries)
	}
}

func TestFormat_BitmapSectorsCoverWholeImage(t *testing.T) {
	c, err := container.Create(2880, 512)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if derr := sparta.Format(c, "BIG", sparta.RevisionSD20); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, derr := sparta.OpenEngine(c)
	if derr != nil {
		t.Fatalf("OpenEngine: %v", derr)
	}
	if derr := eng.Create("/A.TXT", 0644); derr != nil {
		t.Fatalf("Create: %v", derr)
	}
	stat := eng.StatFS()
	if stat.TotalBlocks != 2880 {
		t.Fatalf("expected 2880 total blocks, got %d", stat.TotalBlocks)
	}
}
