package container_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/eightbitatr/atrfs/container"
)

func TestCreate_RoundTripsThroughOpen(t *testing.T) {
	c, err := container.Create(720, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.SectorCount != 720 || c.SectorSize != 128 {
		t.Fatalf("got sectorCount=%d sectorSize=%d", c.SectorCount, c.SectorSize)
	}

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	reopened, err := container.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.SectorCount != 720 || reopened.SectorSize != 128 {
		t.Fatalf("reopened: sectorCount=%d sectorSize=%d", reopened.SectorCount, reopened.SectorSize)
	}
	if reopened.SizeWarning != "" {
		t.Fatalf("unexpected size warning: %s", reopened.SizeWarning)
	}
}

func TestSector_WriteThenReadBack(t *testing.T) {
	c, err := container.Create(40, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	if derr := c.WriteSector(10, data); derr != nil {
		t.Fatalf("WriteSector: %v", derr)
	}

	got, derr := c.Sector(10)
	if derr != nil {
		t.Fatalf("Sector: %v", derr)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("sector contents did not round-trip")
	}
}

func TestSector_ShortSectorsOnlyKeepFirst128Bytes(t *testing.T) {
	c, err := container.Create(10, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !c.ShortSectors {
		t.Fatalf("expected ShortSectors for 256-byte sector size")
	}

	data := make([]byte, 256)
	for i := range data {
		data[i] = 0xAB
	}
	if derr := c.WriteSector(1, data); derr != nil {
		t.Fatalf("WriteSector: %v", derr)
	}

	sec, derr := c.Sector(1)
	if derr != nil {
		t.Fatalf("Sector: %v", derr)
	}
	for i := 0; i < 128; i++ {
		if sec[i] != 0xAB {
			t.Fatalf("byte %d not written", i)
		}
	}
	for i := 128; i < 256; i++ {
		if sec[i] != 0 {
			t.Fatalf("byte %d past the short-sector boundary was persisted", i)
		}
	}
}

func TestSector_OutOfRangeIsAnError(t *testing.T) {
	c, err := container.Create(10, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, derr := c.Sector(0); derr == nil {
		t.Fatalf("expected error for sector 0")
	}
	if _, derr := c.Sector(11); derr == nil {
		t.Fatalf("expected error for sector past SectorCount")
	}
}

func TestBacking_ReadsSameBytesAsSector(t *testing.T) {
	c, err := container.Create(10, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := bytes.Repeat([]byte{0x55}, 128)
	if derr := c.WriteSector(1, data); derr != nil {
		t.Fatalf("WriteSector: %v", derr)
	}

	rws := c.Backing()
	if _, err := rws.Seek(16, 0); err != nil { // past the 16-byte header, start of sector 1
		t.Fatalf("Seek: %v", err)
	}
	got := make([]byte, 128)
	if _, err := io.ReadFull(rws, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Backing read %x, want %x", got, data)
	}
}

func TestOpen_RejectsBadMagic(t *testing.T) {
	bad := make([]byte, 32)
	if _, err := container.Open(bytes.NewReader(bad)); err == nil {
		t.Fatalf("expected error for bad magic bytes")
	}
}
