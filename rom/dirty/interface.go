package dirty

// DirtyTracker is the minimal interface for tracking modified byte ranges.
// Blocks report every write through it; they never flush.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the image, length is the number of bytes.
	Add(off, length int)
}
