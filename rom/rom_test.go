package rom

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romkit/pkg/romerr"
	"github.com/joshuapare/romkit/rom/alloc"
	"github.com/joshuapare/romkit/rom/block"
)

// hiROMImage builds a HiROM image of size bytes with a valid internal header.
func hiROMImage(t testing.TB, size int, title string) *block.Block {
	t.Helper()
	b, err := block.New(size)
	require.NoError(t, err)
	padded := []byte("                     ")
	copy(padded, title)
	require.NoError(t, b.Write(hiROMHeaderOffset, padded))
	require.NoError(t, b.Set(hiROMHeaderOffset+titleLen, 0x31))
	return b
}

func TestAllocatableBlock_Operations(t *testing.T) {
	ab, err := NewAllocatableBlock(0x100)
	require.NoError(t, err)

	_, err = ab.Allocate(1, nil)
	assert.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace), "nothing is free initially")

	require.NoError(t, ab.Deallocate(alloc.Range{Begin: 0x80, End: 0xFF}))
	off, err := ab.AllocateData([]byte{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0x80, off)
	got, err := ab.GetRange(0x80, 0x83)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	free, err := ab.IsUnallocated(alloc.Range{Begin: 0x80, End: 0x82})
	require.NoError(t, err)
	assert.False(t, free)

	require.NoError(t, ab.SetAsAllocated(alloc.Range{Begin: 0x90, End: 0x9F}))
	largest, err := ab.LargestUnallocatedRange()
	require.NoError(t, err)
	assert.Equal(t, alloc.Range{Begin: 0xA0, End: 0xFF}, largest)

	parts, err := ab.UnallocatedPortionsOfRange(alloc.Range{Begin: 0x80, End: 0xA1})
	require.NoError(t, err)
	assert.Equal(t, []alloc.Range{{Begin: 0x83, End: 0x8F}, {Begin: 0xA0, End: 0xA1}}, parts)
}

func TestAllocatableBlock_FollowsBlockSize(t *testing.T) {
	ab, err := NewAllocatableBlockFrom(block.FromBytes(make([]byte, 0x40)), alloc.Range{Begin: 0x20, End: 0x3F})
	require.NoError(t, err)

	require.NoError(t, ab.Resize(0x30))
	assert.Equal(t, []alloc.Range{{Begin: 0x20, End: 0x2F}}, ab.Allocator().Ranges())
	_, err = ab.Allocate(0x11, nil)
	assert.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace))
}

func TestAllocatableBlock_Expand(t *testing.T) {
	ab, err := NewAllocatableBlockFrom(block.FromBytes([]byte{1, 2, 3, 4}))
	require.NoError(t, err)

	require.NoError(t, ab.Expand(8))
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, ab.Bytes())
	assert.Equal(t, []alloc.Range{{Begin: 4, End: 7}}, ab.Allocator().Ranges())

	require.NoError(t, ab.Expand(8))
	assert.True(t, romerr.Is(ab.Expand(2), romerr.InvalidArgument))
}

func TestNew_DetectsHiROMType(t *testing.T) {
	r, err := New(hiROMImage(t, 0x20000, "EARTH BOUND"))
	require.NoError(t, err)
	assert.Equal(t, HiROM, r.MapMode)
	assert.Equal(t, "EARTH BOUND", r.Title)
	assert.Equal(t, "Earthbound", r.Type)
	assert.False(t, r.HasCopierHeader())
}

func TestNew_UnknownAndSmallImages(t *testing.T) {
	r, err := New(hiROMImage(t, 0x10000, "SOME OTHER GAME"))
	require.NoError(t, err)
	assert.Equal(t, UnknownType, r.Type)

	r, err = New(block.FromBytes(make([]byte, 0x100)))
	require.NoError(t, err)
	assert.Equal(t, LoROM, r.MapMode)
	assert.Equal(t, UnknownType, r.Type)
	_, err = r.Header()
	assert.True(t, romerr.Is(err, romerr.OutOfBounds))
	assert.True(t, romerr.Is(r.FixChecksum(), romerr.OutOfBounds))
}

func TestFixChecksum(t *testing.T) {
	r, err := New(hiROMImage(t, 0x20000, "EARTH BOUND"))
	require.NoError(t, err)
	require.NoError(t, r.Set(0x1234, 0x56))

	require.NoError(t, r.FixChecksum())
	h, err := r.Header()
	require.NoError(t, err)
	assert.True(t, h.ChecksumValid())
	assert.Equal(t, r.Checksum(), h.Checksum)
	assert.Equal(t, uint8(0x31), h.MapMode)
}

func TestSNESChecksumMirrorsTail(t *testing.T) {
	assert.Equal(t, uint16(0), snesChecksum(nil))
	assert.Equal(t, uint16(1+2+3*2), snesChecksum([]byte{1, 2, 3}))
	assert.Equal(t, uint16(10), snesChecksum([]byte{1, 2, 3, 4}))
}

func TestAddressConversion(t *testing.T) {
	cases := []struct {
		mode    MapMode
		offset  int
		address int
	}{
		{HiROM, 0, 0xC00000},
		{HiROM, 0x12345, 0xC12345},
		{HiROM, 0x3FFFFF, 0xFFFFFF},
		{HiROM, 0x400000, 0x400000},
		{LoROM, 0, 0x808000},
		{LoROM, 0x8000, 0x818000},
		{LoROM, 0x12345, 0x82A345},
	}
	for _, tc := range cases {
		addr, err := ToSNESAddress(tc.mode, tc.offset)
		require.NoError(t, err)
		assert.Equal(t, tc.address, addr, "%s ToSNESAddress(%#x)", tc.mode, tc.offset)

		off, err := FromSNESAddress(tc.mode, tc.address)
		require.NoError(t, err)
		assert.Equal(t, tc.offset, off, "%s FromSNESAddress(%#x)", tc.mode, tc.address)
	}

	off, err := FromSNESAddress(LoROM, 0x02A345)
	require.NoError(t, err)
	assert.Equal(t, 0x12345, off)

	for _, bad := range []struct {
		mode    MapMode
		address int
	}{
		{HiROM, 0x123},
		{HiROM, 0x7E0000},
		{LoROM, 0x807FFF},
		{LoROM, 0x7E8000},
		{LoROM, 0x1000000},
	} {
		_, err := FromSNESAddress(bad.mode, bad.address)
		assert.True(t, romerr.Is(err, romerr.InvalidArgument), "%s %#x", bad.mode, bad.address)
	}

	_, err = ToSNESAddress(HiROM, 0x7E0000)
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
	_, err = ToSNESAddress(LoROM, -1)
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
}

func TestLoadSave_CopierHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rom.smc")

	img := hiROMImage(t, 0x10000, "EARTH BOUND")
	file := append(make([]byte, CopierHeaderSize), img.Bytes()...)
	file[0] = 0x80
	require.NoError(t, os.WriteFile(path, file, 0o644))

	r, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.True(t, r.HasCopierHeader())
	assert.Equal(t, 0x10000, r.Size())
	assert.Equal(t, "Earthbound", r.Type)
	assert.Equal(t, path, r.Path())

	out := filepath.Join(dir, "copy.smc")
	require.NoError(t, r.Save(context.Background(), out))
	saved, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, file, saved)

	kept, err := Load(path, LoadOptions{KeepHeader: true})
	require.NoError(t, err)
	assert.False(t, kept.HasCopierHeader())
	assert.Equal(t, len(file), kept.Size())
}

func TestSave_InPlaceRewritesDirtyBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rom.smc")
	file := make([]byte, CopierHeaderSize+0x8000)
	require.NoError(t, os.WriteFile(path, file, 0o644))

	r, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	require.NoError(t, r.Set(0x10, 0xAA))
	require.NoError(t, r.Save(context.Background(), path))

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	want := make([]byte, len(file))
	want[CopierHeaderSize+0x10] = 0xAA
	assert.Equal(t, want, saved)

	require.NoError(t, r.Expand(0x10000))
	require.NoError(t, r.Save(context.Background(), path))
	saved, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, saved, CopierHeaderSize+0x10000)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.sfc"), LoadOptions{})
	assert.True(t, romerr.Is(err, romerr.FileAccess))
}

func TestDigest(t *testing.T) {
	a, err := New(block.FromBytes([]byte("abc")))
	require.NoError(t, err)
	b, err := New(block.FromBytes([]byte("abc")))
	require.NoError(t, err)
	c, err := New(block.FromBytes([]byte("abd")))
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())
}
