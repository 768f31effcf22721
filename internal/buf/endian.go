// Package buf contains bounds and endian helpers shared by the ROM codecs.
package buf

import "encoding/binary"

// MaxUintWidth is the widest integer, in bytes, the variable-width helpers handle.
const MaxUintWidth = 8

// UintLE reads a little-endian unsigned integer spanning all of b.
// Returns 0 for an empty slice. Callers must keep len(b) <= MaxUintWidth.
func UintLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// PutUintLE writes v little-endian across all of b, discarding bits that do not fit.
func PutUintLE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

// FitsWidth reports whether v can be represented in width bytes.
func FitsWidth(v uint64, width int) bool {
	if width >= MaxUintWidth {
		return true
	}
	return v < uint64(1)<<(8*uint(width))
}

// U16BE reads a big-endian uint16 from b. Returns 0 when b is too short.
func U16BE(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// PutU16BE writes v big-endian into the first two bytes of b.
func PutU16BE(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

// U24BE reads a big-endian 24-bit integer from b. Returns 0 when b is too short.
func U24BE(b []byte) uint32 {
	if len(b) < 3 {
		return 0
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// PutU24BE writes the low 24 bits of v big-endian into the first three bytes of b.
func PutU24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// U16LE reads a little-endian uint16 from b. Returns 0 when b is too short.
func U16LE(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// PutU16LE writes v little-endian into the first two bytes of b.
func PutU16LE(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}
