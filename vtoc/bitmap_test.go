package vtoc_test

import (
	"testing"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/vtoc"
)

func TestNewBitmap_StartsAllAllocated(t *testing.T) {
	b := vtoc.NewBitmap(0, 16)
	if b.CountFree() != 0 {
		t.Fatalf("expected 0 free units, got %d", b.CountFree())
	}
	if b.IsFree(0) {
		t.Fatalf("unit 0 should start allocated")
	}
}

func TestMarkFree_ThenAllocateFirst(t *testing.T) {
	b := vtoc.NewBitmap(100, 8)
	for _, u := range []uint{102, 103, 105} {
		if derr := b.MarkFree(u); derr != nil {
			t.Fatalf("MarkFree(%d): %v", u, derr)
		}
	}
	if b.CountFree() != 3 {
		t.Fatalf("expected 3 free, got %d", b.CountFree())
	}

	got, derr := b.AllocateFirst()
	if derr != nil {
		t.Fatalf("AllocateFirst: %v", derr)
	}
	if got != 102 {
		t.Fatalf("expected first-fit to pick 102, got %d", got)
	}
	if b.IsFree(102) {
		t.Fatalf("102 should now be allocated")
	}
	if b.CountFree() != 2 {
		t.Fatalf("expected 2 free after allocation, got %d", b.CountFree())
	}
}

func TestAllocateFirst_NoSpace(t *testing.T) {
	b := vtoc.NewBitmap(0, 4)
	if _, derr := b.AllocateFirst(); derr != atrfs.ErrNoSpace {
		t.Fatalf("expected ErrNoSpace, got %v", derr)
	}
}

func TestAllocateContiguousRun_FindsFirstFittingRun(t *testing.T) {
	b := vtoc.NewBitmap(0, 20)
	for _, u := range []uint{3, 4, 5, 6, 10, 11, 12, 13, 14, 15} {
		if derr := b.MarkFree(u); derr != nil {
			t.Fatalf("MarkFree(%d): %v", u, derr)
		}
	}

	start, derr := b.AllocateContiguousRun(4)
	if derr != nil {
		t.Fatalf("AllocateContiguousRun: %v", derr)
	}
	if start != 3 {
		t.Fatalf("expected run to start at 3, got %d", start)
	}
	for u := uint(3); u < 7; u++ {
		if b.IsFree(u) {
			t.Fatalf("unit %d should now be allocated", u)
		}
	}
}

func TestIndex_OutOfRangeReportsAllocated(t *testing.T) {
	b := vtoc.NewBitmap(10, 5)
	if b.IsFree(9) || b.IsFree(15) {
		t.Fatalf("out-of-range units must report allocated, never free")
	}
}

func TestFromBytes_SharesBackingStorage(t *testing.T) {
	buf := make([]byte, 2)
	b := vtoc.FromBytes(buf, 0, 16)
	if derr := b.MarkFree(3); derr != nil {
		t.Fatalf("MarkFree: %v", derr)
	}
	if buf[0] == 0 {
		t.Fatalf("expected FromBytes to mutate the backing buffer in place")
	}
}
