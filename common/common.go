// Package common holds the small decoding and name-handling helpers shared by
// every on-disk format: little-endian field decoding, 8.3 and Sparta name
// packing, case-fold comparison, and path splitting.
package common

import (
	"bytes"
	"strings"

	"golang.org/x/exp/slices"
)

// ReadUint16LE decodes a 2-byte little-endian field.
func ReadUint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// WriteUint16LE encodes a 2-byte little-endian field into b[0:2].
func WriteUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// ReadUint24LE decodes a 3-byte little-endian field, as used for Sparta file
// sizes and directory lengths.
func ReadUint24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// WriteUint24LE encodes a 3-byte little-endian field into b[0:3]. Values above
// 0xFFFFFF are truncated, since no format this module supports ever produces
// one.
func WriteUint24LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// EqualFoldASCII compares two names ignoring ASCII case, which is how every
// format in this module treats file names (there is no Unicode to worry
// about: names are restricted to a 7-bit character set on the original
// hardware).
func EqualFoldASCII(a, b string) bool {
	return strings.EqualFold(a, b)
}

// PadName8_3 packs a "STEM.EXT" style name into the 8-byte-stem + 3-byte-
// extension representation used by every DOS-family directory entry. It does
// not validate length; callers must check with SplitStemExt first.
func PadName8_3(stem, ext string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[0:8], strings.ToUpper(stem))
	copy(out[8:11], strings.ToUpper(ext))
	return out
}

// UnpadName8_3 reverses PadName8_3, trimming trailing spaces and joining with
// "." only when the extension is non-empty.
func UnpadName8_3(raw [11]byte) string {
	stem := bytes.TrimRight(raw[0:8], " ")
	ext := bytes.TrimRight(raw[8:11], " ")
	if len(ext) == 0 {
		return string(stem)
	}
	return string(stem) + "." + string(ext)
}

// SplitStemExt splits "NAME.EXT" into its stem and extension, rejecting
// anything that doesn't fit the 8.3 envelope. ok is false if the name is too
// long for any 8.3-style directory entry.
func SplitStemExt(name string) (stem, ext string, ok bool) {
	parts := strings.SplitN(name, ".", 2)
	stem = parts[0]
	if len(parts) == 2 {
		ext = parts[1]
	}
	if len(stem) == 0 || len(stem) > 8 || len(ext) > 3 {
		return "", "", false
	}
	return stem, ext, true
}

// PadNameSparta packs a name into Sparta's 11-byte field. Unlike DOS-family
// names, Sparta names are stored as a single blob without an implicit
// stem/extension split, though by convention they still contain a literal
// "." separating stem and extension.
func PadNameSparta(name string) ([11]byte, bool) {
	var out [11]byte
	name = strings.ToUpper(name)
	if len(name) > 11 {
		return out, false
	}
	if strings.ContainsAny(name, ">\\") {
		return out, false
	}
	for i := range out {
		out[i] = ' '
	}
	copy(out[:], name)
	return out, true
}

// UnpadNameSparta reverses PadNameSparta.
func UnpadNameSparta(raw [11]byte) string {
	return string(bytes.TrimRight(raw[:], " "))
}

// SplitPath splits a POSIX-style absolute path into its parent directory and
// final component, the way posixpath.Split does, but without requiring the
// caller to import path/filepath semantics that don't apply to an in-memory
// image.
func SplitPath(p string) (dir, base string) {
	p = strings.TrimPrefix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "/", p
	}
	return "/" + p[:idx], p[idx+1:]
}

// SplitSegments breaks an absolute path into its non-empty components,
// dropping "." and ".." the way dargueta-disko's basedriver normalizes a
// path's segment slice before resolving it.
func SplitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	segs := strings.Split(p, "/")
	for _, dot := range []string{".", ".."} {
		for i := slices.Index(segs, dot); i >= 0; i = slices.Index(segs, dot) {
			segs = slices.Delete(segs, i, i+1)
		}
	}
	return slices.Clip(segs)
}
