package detect_test

import (
	"testing"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/detect"
	"github.com/eightbitatr/atrfs/dosfamily"
	"github.com/eightbitatr/atrfs/sparta"
)

func TestDetect_DOS2s(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.DOS2s(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, err := detect.Detect(c)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if eng.FSType() != atrfs.FSTypeDOS2s {
		t.Fatalf("expected dos2s, got %s", eng.FSType())
	}
}

func TestDetect_DOS1(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.DOS1(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, err := detect.Detect(c)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if eng.FSType() != atrfs.FSTypeDOS1 {
		t.Fatalf("expected dos1, got %s", eng.FSType())
	}
}

func TestDetect_Sparta(t *testing.T) {
	c, err := container.Create(1440, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if derr := sparta.Format(c, "VOL1", sparta.RevisionSD20); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, err := detect.Detect(c)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if eng.FSType() != atrfs.FSTypeSparta {
		t.Fatalf("expected sparta, got %s", eng.FSType())
	}
}

// A flat MyDOS volume with no subdirectories is indistinguishable from
// plain DOS2 at the bitmap level; Detect's fixed probe order makes DOS2 win
// the ambiguous case.
func TestDetect_FlatMyDOSIsAmbiguousWithDOS2(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v := dosfamily.MyDOS(720, 128)
	if derr := dosfamily.Format(c, v); derr != nil {
		t.Fatalf("Format: %v", derr)
	}

	eng, err := detect.Detect(c)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if eng.FSType() != atrfs.FSTypeDOS2s {
		t.Fatalf("expected a flat MyDOS volume to detect as dos2s, got %s", eng.FSType())
	}
}

func TestDetect_MyDOSWithSubdirectoryIsUnambiguous(t *testing.T) {
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

	detected, err := detect.Detect(c)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if detected.FSType() != atrfs.FSTypeMyDOS {
		t.Fatalf("expected mydos once a subdirectory exists, got %s", detected.FSType())
	}
}
