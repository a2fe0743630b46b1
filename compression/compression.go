package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// gzipMagic is the two-byte sniff signature compress/gzip writes.
var gzipMagic = []byte{0x1f, 0x8b}

// Sniff reports whether data looks like a gzip-wrapped (RLE8-then-gzip)
// image rather than a raw .atr file, by checking the gzip magic bytes.
func Sniff(data []byte) bool {
	return len(data) >= 2 && bytes.Equal(data[:2], gzipMagic)
}

// CompressImage RLE8-encodes input and gzips the result at the highest
// compression level, writing to output. It returns the number of bytes
// written to output.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	writer := countingWriter{Writer: output}

	gzWriter, err := gzip.NewWriterLevel(&writer, gzip.BestCompression)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	_, err = CompressRLE8(input, gzWriter)
	closeErr := gzWriter.Close()
	if err != nil {
		err = fmt.Errorf("RLE8 compression error: %w", err)
	} else if closeErr != nil {
		err = fmt.Errorf("gzip compression error: %w", closeErr)
	}
	return writer.BytesWritten, err
}

// DecompressImage reverses CompressImage.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// DecompressImageToBytes decompresses input and returns the result as a byte
// slice, for the Container.Open fast path and test fixtures.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	writer := bufio.NewWriter(&buffer)
	if _, err := DecompressImage(input, writer); err != nil {
		return nil, err
	}
	writer.Flush()

	out := make([]byte, buffer.Len())
	copy(out, buffer.Bytes())
	return out, nil
}

type countingWriter struct {
	Writer       io.Writer
	BytesWritten int64
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	if err == nil {
		w.BytesWritten += int64(n)
	}
	return n, err
}
