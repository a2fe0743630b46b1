// Package compression implements the RLE8 + gzip scheme used to keep
// mostly-empty Atari disk images small on disk. container.Open decompresses
// images in this form transparently; nothing in this module writes them
// back compressed.
package compression

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// CompressRLE8 run-length encodes input (BMP-style RLE8: a repeated byte is
// written twice followed by an extra-repeat count byte) and writes the result
// to output. It returns the number of bytes written.
func CompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	grouper := NewRLEGrouper(input)
	var total int64

	for {
		run, runErr := grouper.GetNextRun()
		if runErr != nil && !errors.Is(runErr, io.EOF) {
			return total, runErr
		}

		for run.RunLength >= 2 {
			var repeatCount int
			if run.RunLength > 257 {
				repeatCount = 255
			} else {
				repeatCount = run.RunLength - 2
			}

			n, err := output.Write([]byte{run.Byte, run.Byte, byte(repeatCount)})
			total += int64(n)
			if err != nil {
				return total, err
			}
			run.RunLength -= repeatCount + 2
		}

		if run.RunLength == 1 {
			n, err := output.Write([]byte{run.Byte})
			total += int64(n)
			if err != nil {
				return total, err
			}
		}

		if runErr != nil {
			return total, nil
		}
	}
}

// DecompressRLE8 reverses CompressRLE8.
func DecompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	lastByteRead := -1
	var total int64

	for {
		current, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, fmt.Errorf("error reading input: %w", err)
		}

		var chunk []byte
		if int(current) == lastByteRead {
			repeatCount, err := source.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = fmt.Errorf("%w: missing repeat count after two %02x bytes", io.ErrUnexpectedEOF, uint(lastByteRead))
				}
				return total, err
			}
			chunk = bytes.Repeat([]byte{current}, int(repeatCount)+1)
			lastByteRead = -1
		} else {
			lastByteRead = int(current)
			chunk = []byte{current}
		}

		n, err := output.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write to output: %w", err)
		}
	}
}
