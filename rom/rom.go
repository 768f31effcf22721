// Package rom models a console ROM image as an allocatable byte block.
//
// A Rom is loaded from disk with any copier header stripped, its map mode and
// title detected from the internal header, and its type matched against
// KnownTypes. Format modules read from the block and allocate new space
// through it; Save writes the image back, re-adding the copier header.
package rom

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	farm "github.com/dgryski/go-farm"

	"github.com/joshuapare/romkit/internal/buf"
	"github.com/joshuapare/romkit/internal/logger"
	"github.com/joshuapare/romkit/pkg/romerr"
	"github.com/joshuapare/romkit/rom/block"
	"github.com/joshuapare/romkit/rom/dirty"
)

// UnknownType is reported for images that match no entry in KnownTypes.
const UnknownType = "Unknown"

// Type identifies a known game image by its internal title.
type Type struct {
	Name        string
	TitlePrefix string
	MapMode     MapMode
}

// KnownTypes lists the images romkit recognises.
var KnownTypes = []Type{
	{Name: "Earthbound", TitlePrefix: "EARTH BOUND", MapMode: HiROM},
	{Name: "Mother 2", TitlePrefix: "MOTHER-2", MapMode: HiROM},
}

// LoadOptions configures Load.
type LoadOptions struct {
	// KeepHeader leaves a copier header in the image instead of stripping it.
	KeepHeader bool
}

// Rom is a ROM image with its free-space allocator and detected metadata.
type Rom struct {
	*AllocatableBlock

	Type    string
	MapMode MapMode
	Title   string

	copier  []byte
	path    string
	tracker *dirty.Tracker
}

// New wraps b, detecting map mode, title and type. Nothing is free initially.
func New(b *block.Block) (*Rom, error) {
	ab, err := NewAllocatableBlockFrom(b)
	if err != nil {
		return nil, err
	}
	r := &Rom{AllocatableBlock: ab}
	r.detect()
	return r, nil
}

// Load reads the image at path.
func Load(path string, opts LoadOptions) (*Rom, error) {
	b, err := block.FromFile(path)
	if err != nil {
		return nil, err
	}

	var copier []byte
	if !opts.KeepHeader && b.Size()%0x400 == CopierHeaderSize {
		copier, _ = b.GetRange(0, CopierHeaderSize)
		b = block.FromBytes(b.Bytes()[CopierHeaderSize:])
	}

	r, err := New(b)
	if err != nil {
		return nil, err
	}
	r.copier = copier
	r.path = path
	r.tracker = dirty.NewTracker(0)
	r.Track(r.tracker)

	logger.L.Debug("loaded rom", "path", path, "size", r.Size(), "type", r.Type,
		"map_mode", r.MapMode.String(), "copier_header", copier != nil)
	return r, nil
}

// HasCopierHeader reports whether a copier header was stripped at load time.
func (r *Rom) HasCopierHeader() bool {
	return r.copier != nil
}

// Path returns the file the image was loaded from, if any.
func (r *Rom) Path() string {
	return r.path
}

// Save writes the image to path, prefixed by the copier header it was loaded
// with. Saving back to the loaded file with an unchanged size rewrites only
// the bytes modified since the last save.
func (r *Rom) Save(ctx context.Context, path string) error {
	if r.tracker != nil && r.path != "" && sameFile(path, r.path) {
		if info, err := os.Stat(path); err == nil && info.Size() == int64(len(r.copier)+r.Size()) {
			if err := r.tracker.Flush(ctx, path, int64(len(r.copier)), r.Bytes()); err != nil {
				return romerr.Wrap(err, romerr.FileAccess, "rom: save %s", path)
			}
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	out := make([]byte, 0, len(r.copier)+r.Size())
	out = append(out, r.copier...)
	out = append(out, r.Bytes()...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return romerr.Wrap(err, romerr.FileAccess, "rom: save %s", path)
	}
	if r.tracker != nil {
		r.tracker.Reset()
	}
	logger.L.Debug("saved rom", "path", path, "size", len(out))
	return nil
}

// Header decodes the internal header for the detected map mode.
func (r *Rom) Header() (InternalHeader, error) {
	return readInternalHeader(r.Bytes(), headerOffset(r.MapMode))
}

// Checksum computes the image checksum as stored in the internal header.
func (r *Rom) Checksum() uint16 {
	return snesChecksum(r.Bytes())
}

// FixChecksum recomputes the internal header checksum and its complement.
func (r *Rom) FixChecksum() error {
	off := headerOffset(r.MapMode)
	if !buf.Has(r.Bytes(), off, internalHeaderSize) {
		return romerr.New(romerr.OutOfBounds, "rom: no internal header at %#x", off)
	}
	if err := r.WriteMulti(off+checksumCompOffset, checksumFieldsValue, 2); err != nil {
		return err
	}
	if err := r.WriteMulti(off+checksumOffset, 0, 2); err != nil {
		return err
	}
	sum := r.Checksum()
	if err := r.WriteMulti(off+checksumCompOffset, uint64(sum^checksumFieldsValue), 2); err != nil {
		return err
	}
	return r.WriteMulti(off+checksumOffset, uint64(sum), 2)
}

// Digest returns a fingerprint of the image contents.
func (r *Rom) Digest() uint64 {
	return farm.Fingerprint64(r.Bytes())
}

// ToSNESAddress converts an image offset to a CPU address for this image.
func (r *Rom) ToSNESAddress(offset int) (int, error) {
	return ToSNESAddress(r.MapMode, offset)
}

// FromSNESAddress converts a CPU address to an image offset for this image.
func (r *Rom) FromSNESAddress(address int) (int, error) {
	return FromSNESAddress(r.MapMode, address)
}

func (r *Rom) detect() {
	r.Type = UnknownType
	r.MapMode = detectMapMode(r.Bytes())
	h, err := r.Header()
	if err != nil {
		return
	}
	r.Title = h.Title
	for _, t := range KnownTypes {
		if strings.HasPrefix(h.Title, t.TitlePrefix) && t.MapMode == r.MapMode {
			r.Type = t.Name
			return
		}
	}
}

func sameFile(a, b string) bool {
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return os.SameFile(ai, bi)
}
