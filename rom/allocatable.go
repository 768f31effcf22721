package rom

import (
	"github.com/joshuapare/romkit/pkg/romerr"
	"github.com/joshuapare/romkit/rom/alloc"
	"github.com/joshuapare/romkit/rom/block"
)

// AllocatableBlock is a byte block with a free-space allocator of the same size.
// Every allocator operation first brings the allocator in line with the
// block's current size, so a block resized through the embedded Block never
// hands out space beyond its end.
type AllocatableBlock struct {
	*block.Block
	space *alloc.Allocator
}

// NewAllocatableBlock returns a zero-filled block of size bytes with nothing free.
func NewAllocatableBlock(size int) (*AllocatableBlock, error) {
	b, err := block.New(size)
	if err != nil {
		return nil, err
	}
	return NewAllocatableBlockFrom(b)
}

// NewAllocatableBlockFrom wraps b, marking the given ranges free.
func NewAllocatableBlockFrom(b *block.Block, free ...alloc.Range) (*AllocatableBlock, error) {
	space, err := alloc.New(b.Size(), free...)
	if err != nil {
		return nil, err
	}
	return &AllocatableBlock{Block: b, space: space}, nil
}

// Allocator returns the underlying allocator, synchronized to the block size.
func (ab *AllocatableBlock) Allocator() *alloc.Allocator {
	ab.sync()
	return ab.space
}

// IsUnallocated reports whether r lies entirely within one free range.
func (ab *AllocatableBlock) IsUnallocated(r alloc.Range) (bool, error) {
	ab.sync()
	return ab.space.IsUnallocated(r)
}

// Deallocate marks r as free.
func (ab *AllocatableBlock) Deallocate(r alloc.Range) error {
	ab.sync()
	return ab.space.Deallocate(r)
}

// SetAsAllocated marks r as used.
func (ab *AllocatableBlock) SetAsAllocated(r alloc.Range) error {
	ab.sync()
	return ab.space.SetAsAllocated(r)
}

// Allocate reserves size bytes and returns their offset. See alloc.Allocator.Allocate.
func (ab *AllocatableBlock) Allocate(size int, fits func(offset int) bool) (int, error) {
	ab.sync()
	return ab.space.Allocate(size, fits)
}

// AllocateData reserves len(data) bytes, writes data there and returns the offset.
func (ab *AllocatableBlock) AllocateData(data []byte, fits func(offset int) bool) (int, error) {
	off, err := ab.Allocate(len(data), fits)
	if err != nil {
		return 0, err
	}
	if err := ab.Write(off, data); err != nil {
		return 0, err
	}
	return off, nil
}

// LargestUnallocatedRange returns the largest free range.
func (ab *AllocatableBlock) LargestUnallocatedRange() (alloc.Range, error) {
	ab.sync()
	return ab.space.LargestUnallocatedRange()
}

// UnallocatedPortionsOfRange returns the free parts of r.
func (ab *AllocatableBlock) UnallocatedPortionsOfRange(r alloc.Range) ([]alloc.Range, error) {
	ab.sync()
	return ab.space.UnallocatedPortionsOfRange(r)
}

// Expand grows the block to size bytes. The new tail is zero-filled and free.
func (ab *AllocatableBlock) Expand(size int) error {
	old := ab.Size()
	if size < old {
		return romerr.New(romerr.InvalidArgument, "rom: cannot expand %#x bytes to %#x", old, size)
	}
	if size == old {
		return nil
	}
	if err := ab.Resize(size); err != nil {
		return err
	}
	ab.sync()
	return ab.space.Deallocate(alloc.Range{Begin: old, End: size - 1})
}

func (ab *AllocatableBlock) sync() {
	if ab.space.Size() != ab.Size() {
		// Resize only fails for negative sizes, which a block never has.
		_ = ab.space.Resize(ab.Size())
	}
}
