package dirty

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/joshuapare/romkit/internal/logger"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// Range represents a dirty byte range.
type Range struct {
	Off int64 // Offset in image
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges and flushes them to a file.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	ranges   []Range
	pageSize int64
}

// NewTracker creates a tracker. pageSize <= 0 keeps ranges byte-exact.
func NewTracker(pageSize int) *Tracker {
	if pageSize < 0 {
		pageSize = 0
	}
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: int64(pageSize),
	}
}

// Add records a dirty range. Empty and negative ranges are ignored.
func (t *Tracker) Add(off, length int) {
	if length <= 0 || off < 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Empty reports whether nothing has been recorded since the last Reset.
func (t *Tracker) Empty() bool {
	return len(t.ranges) == 0
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Ranges returns the tracked ranges aligned, sorted and merged.
func (t *Tracker) Ranges() []Range {
	return t.coalesce()
}

// Flush writes data[r.Off:r.Off+r.Len] for every coalesced range into the
// file at path at file offset base+r.Off, syncs it and clears the tracker.
// base skips a prefix of the file that is not part of the image, such as a
// copier header.
//
// The context is checked between ranges. If cancelled, some ranges may have
// been written while others have not, and the tracker keeps all of them.
func (t *Tracker) Flush(ctx context.Context, path string, base int64, data []byte) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() != base+int64(len(data)) {
		return fmt.Errorf("dirty: %s is %d bytes, want %d", path, info.Size(), base+int64(len(data)))
	}

	coalesced := t.coalesce()
	var written int64
	for _, r := range coalesced {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := r.Off + r.Len
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		if r.Off >= end {
			continue
		}
		if _, err := f.WriteAt(data[r.Off:end], base+r.Off); err != nil {
			return err
		}
		written += end - r.Off
	}

	if err := syncFile(f); err != nil {
		return err
	}
	logger.L.Debug("flushed dirty ranges", "path", path, "ranges", len(coalesced), "bytes", written)

	t.ranges = t.ranges[:0]
	return nil
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start, end := r.Off, r.Off+r.Len
		if t.pageSize > 0 {
			start = (start / t.pageSize) * t.pageSize
			if end%t.pageSize != 0 {
				end = ((end / t.pageSize) + 1) * t.pageSize
			}
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			end := current.Off + current.Len
			if nextEnd := next.Off + next.Len; nextEnd > end {
				end = nextEnd
			}
			current.Len = end - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
