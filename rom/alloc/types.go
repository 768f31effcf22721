package alloc

import (
	"fmt"

	"github.com/google/btree"
)

// Range is an inclusive [Begin, End] byte interval.
type Range struct {
	Begin int
	End   int
}

// Len returns the number of bytes covered by r.
func (r Range) Len() int {
	return r.End - r.Begin + 1
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return r.Begin <= o.Begin && o.End <= r.End
}

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Begin <= o.End && o.Begin <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%#x,%#x]", r.Begin, r.End)
}

// Less orders ranges by start offset, then end offset. Implements btree.Item.
func (r Range) Less(than btree.Item) bool {
	o := than.(Range)
	if r.Begin != o.Begin {
		return r.Begin < o.Begin
	}
	return r.End < o.End
}

// Stats holds allocator counters for instrumentation and tests.
type Stats struct {
	AllocCalls     int // Successful Allocate() calls
	BytesAllocated int // Bytes handed out by Allocate() and SetAsAllocated()
	FreeCalls      int // Successful Deallocate() calls
	BytesFreed     int // Bytes returned by Deallocate()
	Splits         int // Free ranges split in two by SetAsAllocated()
}
