package compression_test

import (
	"bytes"
	"testing"

	"github.com/eightbitatr/atrfs/compression"
)

func TestCompressImage_RoundTrips(t *testing.T) {
	original := bytes.Repeat([]byte{0x42}, 4096)
	original[10] = 0x01
	original[11] = 0x02

	var compressed bytes.Buffer
	if _, err := compression.CompressImage(bytes.NewReader(original), &compressed); err != nil {
		t.Fatalf("CompressImage: %v", err)
	}

	if !compression.Sniff(compressed.Bytes()) {
		t.Fatalf("expected compressed output to sniff as compressed")
	}

	var decompressed bytes.Buffer
	if _, err := compression.DecompressImage(&compressed, &decompressed); err != nil {
		t.Fatalf("DecompressImage: %v", err)
	}
	if !bytes.Equal(decompressed.Bytes(), original) {
		t.Fatalf("decompressed output did not match original")
	}
}

func TestSniff_RejectsUncompressedData(t *testing.T) {
	atrLike := []byte{0x96, 0x02, 0, 0, 0x80, 0, 0, 0}
	if compression.Sniff(atrLike) {
		t.Fatalf("expected a raw .atr header to not sniff as compressed")
	}
}

func TestDecompressImageToBytes_MatchesOriginal(t *testing.T) {
	original := bytes.Repeat([]byte{0x07}, 300)
	var compressed bytes.Buffer
	if _, err := compression.CompressImage(bytes.NewReader(original), &compressed); err != nil {
		t.Fatalf("CompressImage: %v", err)
	}

	out, err := compression.DecompressImageToBytes(&compressed)
	if err != nil {
		t.Fatalf("DecompressImageToBytes: %v", err)
	}
	if !bytes.Equal(out, original) {
		t.Fatalf("DecompressImageToBytes did not match original")
	}
}
