// Package alloc tracks which byte ranges of a ROM image are free for new data.
//
// # Overview
//
// Everything is implicitly "used" until it is handed to the allocator as free.
// Format writers then carve new space out of the free set, so freshly encoded
// tables, text and graphics never land on top of data that is still live or on
// regions reserved by a patch.
//
// Free space is a set of inclusive [Begin, End] ranges kept in a B-tree ordered
// by start offset. The set is pairwise disjoint and every range lies inside
// [0, Size()).
//
// # Operations
//
//   - Deallocate(r): add r to the free set
//   - SetAsAllocated(r): remove r from the free set, splitting ranges as needed
//   - Allocate(n, fits): first-fit scan in ascending offset order
//   - IsUnallocated(r), UnallocatedPortionsOfRange(r), LargestUnallocatedRange()
//
// # Non-merging free set
//
// Deallocate never coalesces a range with its neighbours. Freeing [0,9] and
// then [10,19] leaves two entries, and IsUnallocated([5,15]) is false because
// no single entry contains it. SetAsAllocated does walk across such adjacent
// entries, and Allocate only considers one entry at a time.
//
// # Usage Example
//
//	a, err := alloc.New(romSize, alloc.Range{Begin: 0x300000, End: 0x3FFFFF})
//	if err != nil {
//	    return err
//	}
//
//	// Allocate 0x200 bytes that must not cross a bank boundary
//	off, err := a.Allocate(0x200, func(off int) bool {
//	    return off>>16 == (off+0x1FF)>>16
//	})
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Each read or write pass owns its
// allocator exclusively.
package alloc
