package alloc

import "github.com/joshuapare/romkit/pkg/romerr"

func errRange(r Range, size int) error {
	if r.End < r.Begin {
		return romerr.New(romerr.InvalidArgument, "alloc: range %s ends before it begins", r)
	}
	if r.Begin < 0 || r.End >= size {
		return romerr.New(romerr.OutOfBounds, "alloc: range %s outside [0,%#x)", r, size)
	}
	return nil
}
