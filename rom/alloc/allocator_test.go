package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romkit/pkg/romerr"
)

func newAllocator(t *testing.T, size int, free ...Range) *Allocator {
	t.Helper()
	a, err := New(size, free...)
	require.NoError(t, err)
	return a
}

// requirePartition checks that free ranges are sorted, disjoint and in bounds.
func requirePartition(t *testing.T, a *Allocator) {
	t.Helper()
	ranges := a.Ranges()
	for i, r := range ranges {
		require.LessOrEqual(t, r.Begin, r.End, "range %d inverted", i)
		require.GreaterOrEqual(t, r.Begin, 0)
		require.Less(t, r.End, a.Size())
		if i > 0 {
			require.Less(t, ranges[i-1].End, r.Begin, "ranges %d and %d overlap", i-1, i)
		}
	}
}

func Test_Deallocate_KeepsRangesSeparate(t *testing.T) {
	a := newAllocator(t, 10)
	require.NoError(t, a.Deallocate(Range{0, 2}))
	require.NoError(t, a.Deallocate(Range{4, 9}))
	assert.Equal(t, []Range{{0, 2}, {4, 9}}, a.Ranges())

	require.NoError(t, a.Deallocate(Range{3, 3}))
	assert.Equal(t, []Range{{0, 2}, {3, 3}, {4, 9}}, a.Ranges())

	ok, err := a.IsUnallocated(Range{2, 4})
	require.NoError(t, err)
	assert.False(t, ok, "containment must not span separate entries")
}

func Test_Deallocate_Errors(t *testing.T) {
	a := newAllocator(t, 10, Range{2, 5})

	err := a.Deallocate(Range{5, 4})
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
	err = a.Deallocate(Range{8, 10})
	assert.True(t, romerr.Is(err, romerr.OutOfBounds))
	err = a.Deallocate(Range{-1, 0})
	assert.True(t, romerr.Is(err, romerr.OutOfBounds))
	err = a.Deallocate(Range{4, 7})
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
	err = a.Deallocate(Range{0, 2})
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))

	assert.Equal(t, []Range{{2, 5}}, a.Ranges())
}

func Test_IsUnallocated(t *testing.T) {
	a := newAllocator(t, 100, Range{10, 19}, Range{40, 49})

	cases := []struct {
		r    Range
		want bool
	}{
		{Range{10, 19}, true},
		{Range{12, 15}, true},
		{Range{19, 19}, true},
		{Range{9, 10}, false},
		{Range{18, 20}, false},
		{Range{0, 5}, false},
		{Range{15, 45}, false},
		{Range{49, 49}, true},
	}
	for _, tc := range cases {
		got, err := a.IsUnallocated(tc.r)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "IsUnallocated(%s)", tc.r)
	}

	_, err := a.IsUnallocated(Range{90, 100})
	assert.True(t, romerr.Is(err, romerr.OutOfBounds))
}

func Test_SetAsAllocated_Splits(t *testing.T) {
	a := newAllocator(t, 100, Range{0, 99})

	require.NoError(t, a.SetAsAllocated(Range{3, 44}))
	assert.Equal(t, []Range{{0, 2}, {45, 99}}, a.Ranges())

	require.NoError(t, a.SetAsAllocated(Range{1, 1}))
	assert.Equal(t, []Range{{0, 0}, {2, 2}, {45, 99}}, a.Ranges())
	assert.Equal(t, 2, a.Stats().Splits)
}

func Test_SetAsAllocated_Shapes(t *testing.T) {
	t.Run("exact match deletes", func(t *testing.T) {
		a := newAllocator(t, 20, Range{5, 9})
		require.NoError(t, a.SetAsAllocated(Range{5, 9}))
		assert.Empty(t, a.Ranges())
	})
	t.Run("front shrinks", func(t *testing.T) {
		a := newAllocator(t, 20, Range{5, 9})
		require.NoError(t, a.SetAsAllocated(Range{5, 6}))
		assert.Equal(t, []Range{{7, 9}}, a.Ranges())
	})
	t.Run("back shrinks", func(t *testing.T) {
		a := newAllocator(t, 20, Range{5, 9})
		require.NoError(t, a.SetAsAllocated(Range{8, 9}))
		assert.Equal(t, []Range{{5, 7}}, a.Ranges())
	})
	t.Run("spans adjacent entries", func(t *testing.T) {
		a := newAllocator(t, 20, Range{0, 4}, Range{5, 9}, Range{10, 14})
		require.NoError(t, a.SetAsAllocated(Range{3, 11}))
		assert.Equal(t, []Range{{0, 2}, {12, 14}}, a.Ranges())
	})
	t.Run("gap fails without change", func(t *testing.T) {
		a := newAllocator(t, 20, Range{0, 4}, Range{6, 9})
		err := a.SetAsAllocated(Range{3, 7})
		assert.True(t, romerr.Is(err, romerr.CouldNotAllocate))
		assert.Equal(t, []Range{{0, 4}, {6, 9}}, a.Ranges())
	})
	t.Run("already allocated fails", func(t *testing.T) {
		a := newAllocator(t, 20, Range{5, 9})
		err := a.SetAsAllocated(Range{0, 1})
		assert.True(t, romerr.Is(err, romerr.CouldNotAllocate))
		assert.False(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace))
	})
	t.Run("malformed range", func(t *testing.T) {
		a := newAllocator(t, 20, Range{5, 9})
		assert.True(t, romerr.Is(a.SetAsAllocated(Range{9, 5}), romerr.InvalidArgument))
		assert.True(t, romerr.Is(a.SetAsAllocated(Range{5, 20}), romerr.OutOfBounds))
	})
}

func Test_Allocate_FirstFit(t *testing.T) {
	a := newAllocator(t, 100, Range{0, 3}, Range{10, 29}, Range{50, 99})

	off, err := a.Allocate(8, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, off, "first range large enough, not the best fit")
	assert.Equal(t, []Range{{0, 3}, {18, 29}, {50, 99}}, a.Ranges())

	off, err = a.Allocate(12, nil)
	require.NoError(t, err)
	assert.Equal(t, 18, off)
	assert.Equal(t, []Range{{0, 3}, {50, 99}}, a.Ranges())

	off, err = a.Allocate(4, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, off)
	assert.Equal(t, 3, a.Stats().AllocCalls)
	assert.Equal(t, 24, a.Stats().BytesAllocated)
}

func Test_Allocate_Predicate(t *testing.T) {
	a := newAllocator(t, 0x30000, Range{0x0FFF0, 0x1FFFF})

	sameBank := func(off int) bool { return off%0x10000 == 0 }
	_, err := a.Allocate(0x20, sameBank)
	assert.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace), "predicate only sees range starts")

	require.NoError(t, a.SetAsAllocated(Range{0x0FFF0, 0x0FFFF}))
	off, err := a.Allocate(0x20, sameBank)
	require.NoError(t, err)
	assert.Equal(t, 0x10000, off)
}

func Test_Allocate_Errors(t *testing.T) {
	a := newAllocator(t, 10, Range{0, 4})

	_, err := a.Allocate(0, nil)
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
	_, err = a.Allocate(-3, nil)
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))

	_, err = a.Allocate(6, nil)
	assert.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace))
	assert.True(t, romerr.Is(err, romerr.CouldNotAllocate))
	assert.Equal(t, []Range{{0, 4}}, a.Ranges())
}

func Test_Allocate_ThenOccupied(t *testing.T) {
	a := newAllocator(t, 64, Range{0, 63})

	first, err := a.Allocate(16, nil)
	require.NoError(t, err)
	ok, err := a.IsUnallocated(Range{first, first + 15})
	require.NoError(t, err)
	assert.False(t, ok)

	for {
		off, err := a.Allocate(8, nil)
		if err != nil {
			assert.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace))
			break
		}
		assert.False(t, Range{first, first + 15}.Overlaps(Range{off, off + 7}))
	}

	require.NoError(t, a.Deallocate(Range{first, first + 15}))
	off, err := a.Allocate(16, nil)
	require.NoError(t, err)
	assert.Equal(t, first, off)
}

func Test_LargestUnallocatedRange(t *testing.T) {
	a := newAllocator(t, 100)
	_, err := a.LargestUnallocatedRange()
	assert.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace))

	require.NoError(t, a.Deallocate(Range{0, 9}))
	require.NoError(t, a.Deallocate(Range{20, 39}))
	require.NoError(t, a.Deallocate(Range{60, 79}))
	r, err := a.LargestUnallocatedRange()
	require.NoError(t, err)
	assert.Equal(t, Range{20, 39}, r)
}

func Test_UnallocatedPortionsOfRange(t *testing.T) {
	a := newAllocator(t, 100, Range{10, 19}, Range{30, 39}, Range{40, 44}, Range{80, 89})

	got, err := a.UnallocatedPortionsOfRange(Range{15, 42})
	require.NoError(t, err)
	assert.Equal(t, []Range{{15, 19}, {30, 39}, {40, 42}}, got)

	got, err = a.UnallocatedPortionsOfRange(Range{50, 70})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = a.UnallocatedPortionsOfRange(Range{0, 99})
	require.NoError(t, err)
	assert.Equal(t, []Range{{10, 19}, {30, 39}, {40, 44}, {80, 89}}, got)

	got, err = a.UnallocatedPortionsOfRange(Range{85, 85})
	require.NoError(t, err)
	assert.Equal(t, []Range{{85, 85}}, got)

	_, err = a.UnallocatedPortionsOfRange(Range{50, 40})
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
}

func Test_Resize(t *testing.T) {
	a := newAllocator(t, 100, Range{10, 19}, Range{50, 99})
	require.NoError(t, a.Resize(60))
	assert.Equal(t, []Range{{10, 19}, {50, 59}}, a.Ranges())

	require.NoError(t, a.Resize(40))
	assert.Equal(t, []Range{{10, 19}}, a.Ranges())

	require.NoError(t, a.Resize(200))
	assert.Equal(t, []Range{{10, 19}}, a.Ranges())
	require.NoError(t, a.Deallocate(Range{100, 199}))
	assert.Equal(t, 110, a.FreeBytes())

	assert.True(t, romerr.Is(a.Resize(-1), romerr.InvalidArgument))
}

func Test_New_Errors(t *testing.T) {
	_, err := New(-1)
	assert.True(t, romerr.Is(err, romerr.InvalidArgument))
	_, err = New(10, Range{0, 10})
	assert.True(t, romerr.Is(err, romerr.OutOfBounds))
}

func Test_RandomSequences_KeepPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const size = 512
	a := newAllocator(t, size, Range{0, size - 1})
	owned := map[int]int{} // offset -> length

	for step := 0; step < 2000; step++ {
		switch rng.Intn(3) {
		case 0:
			n := rng.Intn(32) + 1
			off, err := a.Allocate(n, nil)
			if err != nil {
				require.True(t, romerr.Is(err, romerr.NotEnoughUnallocatedSpace))
				continue
			}
			for o, l := range owned {
				require.False(t, Range{o, o + l - 1}.Overlaps(Range{off, off + n - 1}),
					"allocation %s overlaps owned block at %#x", Range{off, off + n - 1}, o)
			}
			owned[off] = n
		case 1:
			for o, l := range owned {
				require.NoError(t, a.Deallocate(Range{o, o + l - 1}))
				delete(owned, o)
				break
			}
		case 2:
			b := rng.Intn(size)
			e := b + rng.Intn(8)
			if e >= size {
				e = size - 1
			}
			err := a.SetAsAllocated(Range{b, e})
			if err == nil {
				owned[b] = e - b + 1
			} else {
				require.True(t, romerr.Is(err, romerr.CouldNotAllocate))
			}
		}
		requirePartition(t, a)
	}
}
