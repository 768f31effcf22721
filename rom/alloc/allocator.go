package alloc

import (
	"math"

	"github.com/google/btree"

	"github.com/joshuapare/romkit/internal/logger"
	"github.com/joshuapare/romkit/pkg/romerr"
)

// btreeDegree keeps nodes small; free sets rarely exceed a few hundred entries.
const btreeDegree = 8

// Allocator tracks the free ranges of a byte image of a fixed size.
type Allocator struct {
	size  int
	free  *btree.BTree
	stats Stats
}

// New creates an allocator for an image of size bytes, with the given ranges free.
func New(size int, free ...Range) (*Allocator, error) {
	if size < 0 {
		return nil, romerr.New(romerr.InvalidArgument, "alloc: negative size %d", size)
	}
	a := &Allocator{size: size, free: btree.New(btreeDegree)}
	for _, r := range free {
		if err := a.Deallocate(r); err != nil {
			return nil, err
		}
	}
	a.stats = Stats{}
	return a, nil
}

// Size returns the size of the tracked image.
func (a *Allocator) Size() int {
	return a.size
}

// Resize changes the tracked image size. Free ranges beyond the new size are
// clipped or dropped; growing frees nothing by itself.
func (a *Allocator) Resize(size int) error {
	if size < 0 {
		return romerr.New(romerr.InvalidArgument, "alloc: negative size %d", size)
	}
	if size < a.size {
		var clipped []Range
		a.free.AscendGreaterOrEqual(a.predecessorOrFirst(size), func(i btree.Item) bool {
			if r := i.(Range); r.End >= size {
				clipped = append(clipped, r)
			}
			return true
		})
		for _, r := range clipped {
			a.free.Delete(r)
			if r.Begin < size {
				a.free.ReplaceOrInsert(Range{Begin: r.Begin, End: size - 1})
			}
		}
	}
	a.size = size
	return nil
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// Ranges returns the free ranges in ascending order.
func (a *Allocator) Ranges() []Range {
	out := make([]Range, 0, a.free.Len())
	a.free.Ascend(func(i btree.Item) bool {
		out = append(out, i.(Range))
		return true
	})
	return out
}

// FreeBytes returns the total number of free bytes.
func (a *Allocator) FreeBytes() int {
	total := 0
	a.free.Ascend(func(i btree.Item) bool {
		total += i.(Range).Len()
		return true
	})
	return total
}

// IsUnallocated reports whether r lies entirely within a single free range.
func (a *Allocator) IsUnallocated(r Range) (bool, error) {
	if err := errRange(r, a.size); err != nil {
		return false, err
	}
	f, ok := a.containing(r.Begin)
	return ok && f.Contains(r), nil
}

// Deallocate marks r as free. r must not overlap a range that is already free.
// Adjacent free ranges are kept as separate entries.
func (a *Allocator) Deallocate(r Range) error {
	if err := errRange(r, a.size); err != nil {
		return err
	}
	if prev, ok := a.predecessor(r.End); ok && prev.Overlaps(r) {
		return romerr.New(romerr.InvalidArgument, "alloc: range %s overlaps free range %s", r, prev)
	}
	a.free.ReplaceOrInsert(r)
	a.stats.FreeCalls++
	a.stats.BytesFreed += r.Len()
	return nil
}

// SetAsAllocated removes r from the free set. r may span several adjacent free
// entries but must be covered by them completely; otherwise nothing is changed
// and a CouldNotAllocate error is returned.
func (a *Allocator) SetAsAllocated(r Range) error {
	if err := errRange(r, a.size); err != nil {
		return err
	}

	var chain []Range
	for cur := r.Begin; ; {
		f, ok := a.containing(cur)
		if !ok {
			return romerr.New(romerr.CouldNotAllocate, "alloc: %#x in %s is not free", cur, r)
		}
		chain = append(chain, f)
		if f.End >= r.End {
			break
		}
		cur = f.End + 1
	}

	for _, f := range chain {
		a.free.Delete(f)
	}
	first, last := chain[0], chain[len(chain)-1]
	front := first.Begin < r.Begin
	back := last.End > r.End
	if front {
		a.free.ReplaceOrInsert(Range{Begin: first.Begin, End: r.Begin - 1})
	}
	if back {
		a.free.ReplaceOrInsert(Range{Begin: r.End + 1, End: last.End})
	}
	if front && back && len(chain) == 1 {
		a.stats.Splits++
	}
	a.stats.BytesAllocated += r.Len()
	return nil
}

// Allocate finds the first free range, in ascending offset order, that holds
// size bytes and whose start offset satisfies fits (nil accepts any offset).
// The front of that range is consumed and its start offset returned.
func (a *Allocator) Allocate(size int, fits func(offset int) bool) (int, error) {
	if size <= 0 {
		return 0, romerr.New(romerr.InvalidArgument, "alloc: size %d must be positive", size)
	}

	var found *Range
	a.free.Ascend(func(i btree.Item) bool {
		r := i.(Range)
		if r.Len() >= size && (fits == nil || fits(r.Begin)) {
			found = &r
			return false
		}
		return true
	})
	if found == nil {
		return 0, romerr.New(romerr.NotEnoughUnallocatedSpace,
			"alloc: no free range of %d bytes (%d bytes free in %d ranges)", size, a.FreeBytes(), a.free.Len())
	}

	a.free.Delete(*found)
	if found.Len() > size {
		a.free.ReplaceOrInsert(Range{Begin: found.Begin + size, End: found.End})
	}
	a.stats.AllocCalls++
	a.stats.BytesAllocated += size
	logger.L.Debug("allocated", "offset", found.Begin, "size", size, "from", found.String())
	return found.Begin, nil
}

// LargestUnallocatedRange returns the largest free range. Ties go to the lowest offset.
func (a *Allocator) LargestUnallocatedRange() (Range, error) {
	var best Range
	found := false
	a.free.Ascend(func(i btree.Item) bool {
		r := i.(Range)
		if !found || r.Len() > best.Len() {
			best, found = r, true
		}
		return true
	})
	if !found {
		return Range{}, romerr.New(romerr.NotEnoughUnallocatedSpace, "alloc: no unallocated space")
	}
	return best, nil
}

// UnallocatedPortionsOfRange returns the parts of r that are free, in
// ascending order. The result is empty when nothing in r is free.
func (a *Allocator) UnallocatedPortionsOfRange(r Range) ([]Range, error) {
	if err := errRange(r, a.size); err != nil {
		return nil, err
	}
	var out []Range
	a.free.AscendGreaterOrEqual(a.predecessorOrFirst(r.Begin), func(i btree.Item) bool {
		f := i.(Range)
		if f.Begin > r.End {
			return false
		}
		if f.Overlaps(r) {
			out = append(out, Range{Begin: max(f.Begin, r.Begin), End: min(f.End, r.End)})
		}
		return true
	})
	return out, nil
}

// predecessor returns the free range with the greatest start offset <= off.
func (a *Allocator) predecessor(off int) (Range, bool) {
	var found Range
	ok := false
	a.free.DescendLessOrEqual(Range{Begin: off, End: math.MaxInt}, func(i btree.Item) bool {
		found, ok = i.(Range), true
		return false
	})
	return found, ok
}

// containing returns the free range that holds off.
func (a *Allocator) containing(off int) (Range, bool) {
	f, ok := a.predecessor(off)
	if !ok || f.End < off {
		return Range{}, false
	}
	return f, true
}

// predecessorOrFirst returns a pivot from which an ascending walk sees every
// free range that may overlap offsets >= off.
func (a *Allocator) predecessorOrFirst(off int) Range {
	if f, ok := a.predecessor(off); ok {
		return f
	}
	return Range{Begin: math.MinInt, End: math.MinInt}
}
