package facade_test

import (
	"strings"
	"testing"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/dosfamily"
	"github.com/eightbitatr/atrfs/facade"
)

func newMountedDOS2s(t *testing.T, flags atrfs.MountFlags) *facade.FileSystemFacade {
	t.Helper()
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
	return facade.MountAs(c, eng, flags)
}

func TestReadDir_Root_IncludesDotfiles(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowRead)
	entries, derr := f.ReadDir("/")
	if derr != nil {
		t.Fatalf("ReadDir: %v", derr)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	for _, want := range []string{".bootinfo", ".bootsectors", ".fsinfo"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %q among root entries, got %v", want, names)
		}
	}
}

func TestRead_Fsinfo_ReportsFSType(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowRead)
	data, derr := f.Read("/.fsinfo", 0, 4096)
	if derr != nil {
		t.Fatalf("Read: %v", derr)
	}
	if !strings.Contains(string(data), "fstype: dos2s") {
		t.Fatalf(".fsinfo missing fstype line: %s", data)
	}
}

func TestWrite_WithoutWritePermission_IsRejected(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowRead)
	if _, derr := f.Write("/SOMEFILE.TXT", []byte("x"), 0); derr == nil {
		t.Fatalf("expected write to fail without write permission")
	}
}

func TestCreate_WithInsertPermission_Succeeds(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowAll)
	if derr := f.Create("/SOMEFILE.TXT", 0644); derr != nil {
		t.Fatalf("Create: %v", derr)
	}
	stat, derr := f.Getattr("/SOMEFILE.TXT")
	if derr != nil {
		t.Fatalf("Getattr: %v", derr)
	}
	if stat.Size != 0 {
		t.Fatalf("expected a freshly created file to be empty, got size %d", stat.Size)
	}
}

func TestUnlink_OnDotfile_IsRejected(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowAll)
	if derr := f.Unlink("/.fsinfo"); derr == nil {
		t.Fatalf("expected unlink of a reserved introspection file to fail")
	}
}

func TestGetattr_InfoSuffix_DelegatesToDiagInfo(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowAll)
	if derr := f.Create("/SOMEFILE.TXT", 0644); derr != nil {
		t.Fatalf("Create: %v", derr)
	}

	stat, derr := f.Getattr("/SOMEFILE.TXT.info")
	if derr != nil {
		t.Fatalf("Getattr on .info path: %v", derr)
	}
	if stat.Size == 0 {
		t.Fatalf("expected a non-empty .info body")
	}

	data, derr := f.Read("/SOMEFILE.TXT.info", 0, int(stat.Size))
	if derr != nil {
		t.Fatalf("Read on .info path: %v", derr)
	}
	if !strings.Contains(string(data), "path: /SOMEFILE.TXT") {
		t.Fatalf(".info body missing path line: %s", data)
	}
}

func TestBootsectors_WriteThenRead(t *testing.T) {
	f := newMountedDOS2s(t, atrfs.MountFlagsAllowAll)
	if _, derr := f.Write("/.bootsectors", []byte{1, 2, 3, 4}, 0); derr != nil {
		t.Fatalf("Write: %v", derr)
	}
	data, derr := f.Read("/.bootsectors", 0, 4)
	if derr != nil {
		t.Fatalf("Read: %v", derr)
	}
	if string(data) != "\x01\x02\x03\x04" {
		t.Fatalf("unexpected .bootsectors contents: %v", data)
	}
}
