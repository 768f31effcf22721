// Package block implements a bounds-checked, resizable byte buffer that holds
// a ROM image (or any piece of one) in memory.
//
// Single-byte access accepts negative indices, which count from the end of
// the block. Range access does not: ranges are half-open [begin, end) with
// 0 <= begin <= end <= Size(), and end < begin is an InvalidArgument error
// rather than a wrap-around.
//
// Multi-byte integers are little-endian and 0 to 8 bytes wide.
package block

import (
	"bytes"
	"io"
	"os"

	"github.com/joshuapare/romkit/internal/buf"
	"github.com/joshuapare/romkit/internal/mmfile"
	"github.com/joshuapare/romkit/pkg/romerr"
	"github.com/joshuapare/romkit/rom/dirty"
)

// Block is a mutable byte array. The zero value is an empty block.
//
// Block is not safe for concurrent use.
type Block struct {
	data    []byte
	tracker dirty.DirtyTracker
}

// New returns a zero-filled block of size bytes.
func New(size int) (*Block, error) {
	if size < 0 {
		return nil, romerr.New(romerr.InvalidArgument, "block: negative size %d", size)
	}
	return &Block{data: make([]byte, size)}, nil
}

// FromBytes returns a block holding a copy of data.
func FromBytes(data []byte) *Block {
	b := &Block{data: make([]byte, len(data))}
	copy(b.data, data)
	return b
}

// FromInts returns a block holding values, each of which must be in [0,255].
func FromInts(values []int) (*Block, error) {
	b := &Block{}
	if err := b.SetInts(values); err != nil {
		return nil, err
	}
	return b, nil
}

// FromFile reads the whole file at path into a new block.
func FromFile(path string) (*Block, error) {
	data, err := mmfile.ReadAll(path)
	if err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "block: read %s", path)
	}
	return &Block{data: data}, nil
}

// ToFile writes the whole block to path, replacing any existing file.
func (b *Block) ToFile(path string) error {
	if err := os.WriteFile(path, b.data, 0o644); err != nil {
		return romerr.Wrap(err, romerr.FileAccess, "block: write %s", path)
	}
	return nil
}

// SetInts replaces the contents of the block with values.
// Nothing is modified if any value is outside [0,255].
func (b *Block) SetInts(values []int) error {
	data := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return romerr.New(romerr.ValueNotUnsignedByte, "block: value %d at index %d is not an unsigned byte", v, i)
		}
		data[i] = byte(v)
	}
	b.data = data
	b.markDirty(0, len(data))
	return nil
}

// Track reports every subsequent write to t. Pass nil to stop tracking.
func (b *Block) Track(t dirty.DirtyTracker) {
	b.tracker = t
}

// Size returns the number of bytes in the block.
func (b *Block) Size() int {
	return len(b.data)
}

// Bytes returns the underlying storage. Writes through it bypass bounds
// checks and dirty tracking.
func (b *Block) Bytes() []byte {
	return b.data
}

// Clone returns an independent copy of the block. Dirty tracking is not copied.
func (b *Block) Clone() *Block {
	return FromBytes(b.data)
}

// Equal reports whether both blocks hold the same bytes.
func (b *Block) Equal(other *Block) bool {
	return bytes.Equal(b.data, other.data)
}

// Resize grows the block with zero bytes or truncates it to size bytes.
func (b *Block) Resize(size int) error {
	if size < 0 {
		return romerr.New(romerr.InvalidArgument, "block: negative size %d", size)
	}
	old := len(b.data)
	switch {
	case size < old:
		b.data = b.data[:size]
	case size > old:
		grown := make([]byte, size)
		copy(grown, b.data)
		b.data = grown
		b.markDirty(old, size-old)
	}
	return nil
}

// Get returns the byte at index i. Negative indices count from the end.
func (b *Block) Get(i int) (byte, error) {
	idx, err := b.index(i)
	if err != nil {
		return 0, err
	}
	return b.data[idx], nil
}

// Set stores v at index i. Negative indices count from the end.
func (b *Block) Set(i int, v int) error {
	if v < 0 || v > 0xFF {
		return romerr.New(romerr.ValueNotUnsignedByte, "block: value %d is not an unsigned byte", v)
	}
	idx, err := b.index(i)
	if err != nil {
		return err
	}
	b.data[idx] = byte(v)
	b.markDirty(idx, 1)
	return nil
}

// GetRange returns a copy of the bytes in [begin, end).
func (b *Block) GetRange(begin, end int) ([]byte, error) {
	if err := b.checkRange(begin, end); err != nil {
		return nil, err
	}
	out := make([]byte, end-begin)
	copy(out, b.data[begin:end])
	return out, nil
}

// SetRange overwrites [begin, end) with values, which must be exactly end-begin bytes long.
func (b *Block) SetRange(begin, end int, values []byte) error {
	if err := b.checkRange(begin, end); err != nil {
		return err
	}
	if len(values) != end-begin {
		return romerr.New(romerr.InvalidArgument,
			"block: range [%d,%d) needs %d bytes, got %d", begin, end, end-begin, len(values))
	}
	copy(b.data[begin:end], values)
	b.markDirty(begin, end-begin)
	return nil
}

// Write overwrites len(values) bytes starting at offset.
func (b *Block) Write(offset int, values []byte) error {
	end, ok := buf.AddOverflowSafe(offset, len(values))
	if !ok {
		return romerr.New(romerr.OutOfBounds, "block: write of %d bytes at %d overflows", len(values), offset)
	}
	return b.SetRange(offset, end, values)
}

// Fill stores v in every byte of [begin, end).
func (b *Block) Fill(begin, end int, v byte) error {
	if err := b.checkRange(begin, end); err != nil {
		return err
	}
	for i := begin; i < end; i++ {
		b.data[i] = v
	}
	b.markDirty(begin, end-begin)
	return nil
}

// ReadMulti reads a little-endian unsigned integer width bytes wide at offset.
// A width of 0 reads nothing and returns 0.
func (b *Block) ReadMulti(offset, width int) (uint64, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	if _, err := buf.CheckSpan(len(b.data), offset, width); err != nil {
		return 0, romerr.Wrap(err, romerr.OutOfBounds, "block: read %d bytes at %d", width, offset)
	}
	return buf.UintLE(b.data[offset : offset+width]), nil
}

// WriteMulti writes v as a little-endian unsigned integer width bytes wide at offset.
// v must fit in width bytes.
func (b *Block) WriteMulti(offset int, v uint64, width int) error {
	if err := checkWidth(width); err != nil {
		return err
	}
	if !buf.FitsWidth(v, width) {
		return romerr.New(romerr.InvalidArgument, "block: value %#x does not fit in %d bytes", v, width)
	}
	if _, err := buf.CheckSpan(len(b.data), offset, width); err != nil {
		return romerr.Wrap(err, romerr.OutOfBounds, "block: write %d bytes at %d", width, offset)
	}
	buf.PutUintLE(b.data[offset:offset+width], v)
	b.markDirty(offset, width)
	return nil
}

// ReadAt implements io.ReaderAt.
func (b *Block) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, romerr.New(romerr.OutOfBounds, "block: negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writes never grow the block.
func (b *Block) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b.data)) {
		return 0, romerr.New(romerr.OutOfBounds, "block: offset %d outside block of %d bytes", off, len(b.data))
	}
	if err := b.Write(int(off), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (b *Block) index(i int) (int, error) {
	idx := i
	if idx < 0 {
		idx += len(b.data)
	}
	if idx < 0 || idx >= len(b.data) {
		return 0, romerr.New(romerr.OutOfBounds, "block: index %d outside block of %d bytes", i, len(b.data))
	}
	return idx, nil
}

func (b *Block) checkRange(begin, end int) error {
	if end < begin {
		return romerr.New(romerr.InvalidArgument, "block: range end %d before begin %d", end, begin)
	}
	if begin < 0 || end > len(b.data) {
		return romerr.New(romerr.OutOfBounds, "block: range [%d,%d) outside block of %d bytes", begin, end, len(b.data))
	}
	return nil
}

func checkWidth(width int) error {
	if width < 0 || width > buf.MaxUintWidth {
		return romerr.New(romerr.InvalidArgument, "block: width %d not in [0,%d]", width, buf.MaxUintWidth)
	}
	return nil
}

func (b *Block) markDirty(off, n int) {
	if b.tracker != nil && n > 0 {
		b.tracker.Add(off, n)
	}
}
