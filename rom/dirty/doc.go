// Package dirty tracks which byte ranges of a ROM image have been written
// since it was loaded, so a save can rewrite only those ranges in place.
//
// # Usage
//
//	tracker := dirty.NewTracker(0)
//	blk.Track(tracker)
//
//	// ... edits through blk.Set / blk.SetRange / blk.WriteMulti ...
//
//	if err := tracker.Flush(ctx, path, 0, blk.Bytes()); err != nil {
//	    return err
//	}
//
// # Granularity
//
// A page size of 0 keeps byte-exact ranges. A positive page size rounds every
// range out to page boundaries before merging, which trades a few extra bytes
// written for fewer WriteAt calls on heavily edited images.
//
// Flush requires the destination file to exist with exactly base+len(data) bytes;
// anything else must be written in full by the caller.
package dirty
