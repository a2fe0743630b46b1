package diaginfo_test

import (
	"strings"
	"testing"

	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/diaginfo"
	"github.com/eightbitatr/atrfs/dosfamily"
)

func TestGenerate_FileReportsSectorsAndContentGuess(t *testing.T) {
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
	if derr := eng.Create("/TEST.BAS", 0644); derr != nil {
		t.Fatalf("Create: %v", derr)
	}
	if _, derr := eng.Write("/TEST.BAS", []byte("10 PRINT \"HI\""), 0); derr != nil {
		t.Fatalf("Write: %v", derr)
	}

	text, derr := diaginfo.Generate(eng, "/TEST.BAS", nil)
	if derr != nil {
		t.Fatalf("Generate: %v", derr)
	}
	if !strings.Contains(text, "type: file") {
		t.Fatalf("expected file type line: %s", text)
	}
	if !strings.Contains(text, "sectors:") {
		t.Fatalf("expected a sector run line: %s", text)
	}
	if !strings.Contains(text, "BASIC program") {
		t.Fatalf("expected the .BAS heuristic to fire: %s", text)
	}
}

func TestGenerate_DirectoryOmitsContentGuess(t *testing.T) {
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

	text, derr := diaginfo.Generate(eng, "/SUBDIR", nil)
	if derr != nil {
		t.Fatalf("Generate: %v", derr)
	}
	if !strings.Contains(text, "type: directory") {
		t.Fatalf("expected directory type line: %s", text)
	}
	if strings.Contains(text, "content:") {
		t.Fatalf("directories should not get a content-type guess: %s", text)
	}
}

func TestDefaultClassifier_Heuristics(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want string
	}{
		{"FOO.XEX", 100, "Atari DOS executable (heuristic: extension)"},
		{"AUTORUN.SYS", 100, "system file (heuristic: extension)"},
		{"EMPTY.DAT", 0, "empty file"},
		{"UNKNOWN.DAT", 5, "unknown (no matching heuristic)"},
	}
	for _, tc := range cases {
		got := diaginfo.DefaultClassifier(tc.name, tc.size)
		if got != tc.want {
			t.Errorf("DefaultClassifier(%q, %d) = %q, want %q", tc.name, tc.size, got, tc.want)
		}
	}
}
