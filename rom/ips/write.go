package ips

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/joshuapare/romkit/internal/buf"
	"github.com/joshuapare/romkit/internal/logger"
	"github.com/joshuapare/romkit/pkg/romerr"
)

// Diff builds a patch that turns clean into modified. Every run of
// differing bytes becomes a record of at most MaxLength bytes; bytes past
// the end of clean always differ. modified must not be shorter than clean.
func Diff(clean, modified []byte) (*Patch, error) {
	if len(modified) < len(clean) {
		return nil, romerr.New(romerr.InvalidArgument,
			"ips: modified image (%d bytes) is shorter than clean image (%d bytes)", len(modified), len(clean))
	}
	differs := func(i int) bool {
		return i >= len(clean) || clean[i] != modified[i]
	}

	p := New()
	for i := 0; i < len(modified); {
		if !differs(i) {
			i++
			continue
		}
		start := i
		if start == eofOffset {
			start--
		}
		if start > MaxOffset {
			return nil, romerr.New(romerr.InvalidArgument,
				"ips: difference at %#x is beyond the addressable %#x", start, MaxOffset)
		}
		end := i
		for end < len(modified) && end-start < MaxLength && differs(end) {
			end++
		}
		p.Record(start, modified[start:end])
		i = end
	}
	logger.L.Debug("ips: diffed images", "clean", len(clean), "modified", len(modified), "records", p.Len())
	return p, nil
}

// WriteTo serializes the patch, followed by its metadata when set.
func (p *Patch) WriteTo(w io.Writer) (int64, error) {
	var out bytes.Buffer
	out.WriteString(Magic)
	for _, in := range p.Instructions {
		if in.Offset < 0 || in.Offset > MaxOffset || in.Offset == eofOffset {
			return 0, romerr.New(romerr.InvalidArgument, "ips: %s offset %#x cannot be encoded", in.Op, in.Offset)
		}
		if in.Length > MaxLength {
			return 0, romerr.New(romerr.InvalidArgument, "ips: %s length %d exceeds %d", in.Op, in.Length, MaxLength)
		}
		var head [5]byte
		buf.PutU24BE(head[:3], uint32(in.Offset))
		switch in.Op {
		case OpFill:
			out.Write(head[:])
			var fill [3]byte
			buf.PutU16BE(fill[:2], uint16(in.Length))
			fill[2] = in.Value
			out.Write(fill[:])
		default:
			if len(in.Data) == 0 {
				return 0, romerr.New(romerr.InvalidArgument, "ips: empty record at %#x", in.Offset)
			}
			buf.PutU16BE(head[3:], uint16(len(in.Data)))
			out.Write(head[:])
			out.Write(in.Data)
		}
	}
	out.WriteString(Terminator)
	if p.Metadata != nil {
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return 0, romerr.Wrap(err, romerr.InvalidArgument, "ips: encode metadata")
		}
		out.Write(meta)
	}
	n, err := w.Write(out.Bytes())
	if err != nil {
		return int64(n), romerr.Wrap(err, romerr.FileAccess, "ips: write patch")
	}
	return int64(n), nil
}

// CreateOptions configures Create.
type CreateOptions struct {
	// Metadata is written after the terminator. Patcher and SourceDigest
	// are filled in when empty.
	Metadata *Metadata
}

// Create diffs clean against modified and writes the patch to path.
func Create(clean, modified []byte, path string, opts CreateOptions) (*Patch, error) {
	p, err := Diff(clean, modified)
	if err != nil {
		return nil, err
	}
	if opts.Metadata != nil {
		m := *opts.Metadata
		if m.Patcher == "" {
			m.Patcher = Patcher
		}
		if m.SourceDigest == "" {
			m.SourceDigest = Digest(clean)
		}
		p.Metadata = &m
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "ips: create %s", path)
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "ips: close %s", path)
	}
	p.source = path
	logger.L.Info("ips: created patch", "path", path, "records", p.Len())
	return p, nil
}
