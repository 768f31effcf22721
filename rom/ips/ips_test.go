package ips

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romkit/pkg/romerr"
	"github.com/joshuapare/romkit/rom/block"
)

func patchBytes(parts ...[]byte) []byte {
	out := []byte(Magic)
	for _, p := range parts {
		out = append(out, p...)
	}
	return append(out, Terminator...)
}

func TestApplySingleRecord(t *testing.T) {
	data := patchBytes([]byte{0x00, 0x00, 0x10, 0x00, 0x02, 0xAA, 0xBB})
	p, err := Parse(data, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, 0x11, p.HighestOffset())
	assert.Nil(t, p.Metadata)

	target, err := block.New(0x20)
	require.NoError(t, err)
	assert.False(t, p.IsApplied(target))
	require.NoError(t, p.Apply(target))

	want := make([]byte, 0x20)
	want[0x10], want[0x11] = 0xAA, 0xBB
	assert.Equal(t, want, target.Bytes())
	assert.True(t, p.IsApplied(target))

	require.NoError(t, p.Apply(target))
	assert.Equal(t, want, target.Bytes())
}

func TestFillInstruction(t *testing.T) {
	data := patchBytes([]byte{0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x03, 0x7F})
	p, err := Parse(data, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	in := p.Instructions[0]
	assert.Equal(t, OpFill, in.Op)
	assert.Equal(t, 4, in.Offset)
	assert.Equal(t, 3, in.Length)
	assert.Equal(t, byte(0x7F), in.Value)
	assert.Equal(t, 6, p.HighestOffset())

	small, err := block.New(6)
	require.NoError(t, err)
	err = p.Apply(small)
	assert.True(t, romerr.Is(err, romerr.PatchFormat))
	assert.False(t, p.IsApplied(small))
	assert.Equal(t, make([]byte, 6), small.Bytes())

	target, err := block.New(7)
	require.NoError(t, err)
	require.NoError(t, p.Apply(target))
	assert.Equal(t, []byte{0, 0, 0, 0, 0x7F, 0x7F, 0x7F}, target.Bytes())
	assert.True(t, p.IsApplied(target))

	require.NoError(t, target.Set(5, 0))
	assert.False(t, p.IsApplied(target))
}

func TestEmptyPatch(t *testing.T) {
	p, err := Parse(patchBytes(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, -1, p.HighestOffset())

	target, err := block.New(0)
	require.NoError(t, err)
	require.NoError(t, p.Apply(target))
	assert.True(t, p.IsApplied(target))
}

func TestGlobalOffset(t *testing.T) {
	data := patchBytes(
		[]byte{0x00, 0x02, 0x10, 0x00, 0x01, 0x11},
		[]byte{0x00, 0x01, 0x00, 0x00, 0x01, 0x22},
		[]byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x02, 0x33},
	)
	p, err := Parse(data, LoadOptions{GlobalOffset: 0x200})
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, 0x10, p.Instructions[0].Offset)
	assert.Equal(t, 0, p.Instructions[1].Offset)
	assert.Equal(t, 0x10, p.HighestOffset())

	_, err = Parse(data, LoadOptions{GlobalOffset: -1})
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
}

func TestParseErrors(t *testing.T) {
	cases := map[string][]byte{
		"bad magic":        []byte("PATCX\x00\x00\x00\x00\x01\x00EOF"),
		"short magic":      []byte("PAT"),
		"no terminator":    []byte("PATCH"),
		"short offset":     []byte("PATCH\x00\x00"),
		"short length":     []byte("PATCH\x00\x00\x10\x00"),
		"short record":     []byte("PATCH\x00\x00\x10\x00\x05\x01\x02"),
		"short fill":       []byte("PATCH\x00\x00\x10\x00\x00\x00\x05"),
		"missing sentinel": []byte("PATCH\x00\x00\x10\x00\x01\x01"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data, LoadOptions{})
			require.Error(t, err)
			assert.True(t, romerr.Is(err, romerr.PatchFormat))
		})
	}
}

func TestLoadNamesSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.ips")
	require.NoError(t, os.WriteFile(path, []byte("PATCH\x00\x00"), 0o644))

	_, err := Load(path, LoadOptions{})
	require.Error(t, err)
	assert.True(t, romerr.Is(err, romerr.PatchFormat))
	assert.Contains(t, err.Error(), path)

	_, err = Load(filepath.Join(dir, "missing.ips"), LoadOptions{})
	assert.True(t, romerr.Is(err, romerr.FileAccess))

	_, err = Load(dir, LoadOptions{})
	assert.True(t, romerr.Is(err, romerr.FileAccess))
}

func TestWriteToEncoding(t *testing.T) {
	p := New()
	p.Fill(2, 3, 9)
	p.Record(0, []byte{1})

	var out bytes.Buffer
	n, err := p.WriteTo(&out)
	require.NoError(t, err)
	want := patchBytes(
		[]byte{0, 0, 2, 0, 0, 0, 3, 9},
		[]byte{0, 0, 0, 0, 1, 1},
	)
	assert.Equal(t, want, out.Bytes())
	assert.Equal(t, int64(len(want)), n)

	back, err := Parse(out.Bytes(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, p.Instructions, back.Instructions)
	assert.Equal(t, 4, back.HighestOffset())
}

func TestWriteToRejectsUnencodable(t *testing.T) {
	for _, p := range []*Patch{
		func() *Patch { p := New(); p.Record(eofOffset, []byte{1}); return p }(),
		func() *Patch { p := New(); p.Record(MaxOffset+1, []byte{1}); return p }(),
		func() *Patch { p := New(); p.Fill(0, MaxLength+1, 1); return p }(),
		func() *Patch { p := New(); p.Record(0, nil); return p }(),
	} {
		_, err := p.WriteTo(&bytes.Buffer{})
		assert.True(t, romerr.Is(err, romerr.InvalidArgument))
	}
}

func TestDiffRecords(t *testing.T) {
	clean := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	modified := []byte{0, 9, 9, 3, 4, 5, 8, 7}
	p, err := Diff(clean, modified)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, Instruction{Op: OpRecord, Offset: 1, Length: 2, Data: []byte{9, 9}}, p.Instructions[0])
	assert.Equal(t, Instruction{Op: OpRecord, Offset: 6, Length: 1, Data: []byte{8}}, p.Instructions[1])

	same, err := Diff(clean, clean)
	require.NoError(t, err)
	assert.Equal(t, 0, same.Len())
}

func TestDiffLongerAndShorter(t *testing.T) {
	p, err := Diff([]byte{1, 2}, []byte{1, 2, 3, 0})
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, 2, p.Instructions[0].Offset)
	assert.Equal(t, []byte{3, 0}, p.Instructions[0].Data)

	_, err = Diff([]byte{1, 2, 3}, []byte{1, 2})
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
}

func TestDiffCapsRecordLength(t *testing.T) {
	clean := make([]byte, 70000)
	modified := bytes.Repeat([]byte{0xFF}, 70000)
	p, err := Diff(clean, modified)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, 0, p.Instructions[0].Offset)
	assert.Equal(t, MaxLength, p.Instructions[0].Length)
	assert.Equal(t, MaxLength, p.Instructions[1].Offset)
	assert.Equal(t, 70000-MaxLength, p.Instructions[1].Length)
}

func TestDiffAvoidsTerminatorOffset(t *testing.T) {
	clean := make([]byte, eofOffset+4)
	modified := append([]byte(nil), clean...)
	modified[eofOffset] = 1
	modified[eofOffset+1] = 2

	p, err := Diff(clean, modified)
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, eofOffset-1, p.Instructions[0].Offset)
	assert.Equal(t, []byte{0, 1, 2}, p.Instructions[0].Data)

	var out bytes.Buffer
	_, err = p.WriteTo(&out)
	require.NoError(t, err)
	back, err := Parse(out.Bytes(), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, back.Len())

	target := block.FromBytes(clean)
	require.NoError(t, back.Apply(target))
	assert.Equal(t, modified, target.Bytes())
}

func TestDiffRejectsUnaddressable(t *testing.T) {
	clean := make([]byte, MaxOffset+2)
	modified := append([]byte(nil), clean...)
	modified[MaxOffset+1] = 1
	_, err := Diff(clean, modified)
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
}

func TestCreateApplyRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	clean := make([]byte, 0x8000)
	rng.Read(clean)
	modified := append([]byte(nil), clean...)
	for i := 0; i < 200; i++ {
		off := rng.Intn(len(modified))
		modified[off] ^= byte(rng.Intn(255) + 1)
	}
	copy(modified[0x1000:0x1100], bytes.Repeat([]byte{0xEA}, 0x100))

	path := filepath.Join(t.TempDir(), "hack.ips")
	created, err := Create(clean, modified, path, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, path, created.Source())

	p, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Nil(t, p.Metadata)
	assert.Equal(t, created.Instructions, p.Instructions)

	target := block.FromBytes(clean)
	require.NoError(t, p.Apply(target))
	assert.Equal(t, modified, target.Bytes())
	assert.True(t, p.IsApplied(target))
	assert.False(t, p.IsApplied(block.FromBytes(clean)))
}

func TestMetadata(t *testing.T) {
	clean := []byte{1, 2, 3, 4}
	modified := []byte{1, 9, 3, 4}
	path := filepath.Join(t.TempDir(), "meta.ips")
	_, err := Create(clean, modified, path, CreateOptions{Metadata: &Metadata{Title: "Fix", Author: "me"}})
	require.NoError(t, err)

	p, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	require.NotNil(t, p.Metadata)
	assert.Equal(t, Patcher, p.Metadata.Patcher)
	assert.Equal(t, "Fix", p.Metadata.Title)
	assert.Equal(t, "me", p.Metadata.Author)
	assert.Equal(t, Digest(clean), p.Metadata.SourceDigest)
	assert.True(t, p.Metadata.MatchesSource(clean))
	assert.False(t, p.Metadata.MatchesSource(modified))

	var none *Metadata
	assert.True(t, none.MatchesSource(modified))

	bad := append(patchBytes(), []byte("{not json")...)
	p, err = Parse(bad, LoadOptions{})
	require.NoError(t, err)
	assert.Nil(t, p.Metadata)
}
