package ips

import (
	"bytes"

	"github.com/joshuapare/romkit/internal/buf"
	"github.com/joshuapare/romkit/internal/logger"
	"github.com/joshuapare/romkit/internal/mmfile"
	"github.com/joshuapare/romkit/pkg/romerr"
)

// LoadOptions configures Parse and Load.
type LoadOptions struct {
	// GlobalOffset is subtracted from every instruction offset.
	GlobalOffset int
}

// Load reads and parses the patch file at path.
func Load(path string, opts LoadOptions) (*Patch, error) {
	data, err := mmfile.ReadAll(path)
	if err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "ips: read %s", path)
	}
	return parse(data, path, opts)
}

// Parse decodes an in-memory patch.
func Parse(data []byte, opts LoadOptions) (*Patch, error) {
	return parse(data, "", opts)
}

func parse(data []byte, source string, opts LoadOptions) (*Patch, error) {
	p := New()
	p.source = source
	if opts.GlobalOffset < 0 {
		return nil, romerr.New(romerr.InvalidArgument, "ips: negative global offset %d", opts.GlobalOffset)
	}
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, romerr.New(romerr.PatchFormat, "ips: %s: missing %q header", p.name(), Magic)
	}

	pos := len(Magic)
	dropped := 0
	for {
		head, ok := buf.Slice(data, pos, 3)
		if !ok {
			return nil, p.truncated(pos)
		}
		if string(head) == Terminator {
			pos += 3
			break
		}
		off := int(buf.U24BE(head))
		pos += 3

		lenBytes, ok := buf.Slice(data, pos, 2)
		if !ok {
			return nil, p.truncated(pos)
		}
		n := int(buf.U16BE(lenBytes))
		pos += 2

		var in Instruction
		if n == 0 {
			fill, ok := buf.Slice(data, pos, 3)
			if !ok {
				return nil, p.truncated(pos)
			}
			in = Instruction{Op: OpFill, Offset: off, Length: int(buf.U16BE(fill)), Value: fill[2]}
			pos += 3
		} else {
			lit, ok := buf.Slice(data, pos, n)
			if !ok {
				return nil, p.truncated(pos)
			}
			in = Instruction{Op: OpRecord, Offset: off, Length: n, Data: append([]byte(nil), lit...)}
			pos += n
		}

		in.Offset -= opts.GlobalOffset
		if in.Offset < 0 {
			dropped++
			continue
		}
		p.Add(in)
	}

	p.Metadata = parseMetadata(data[pos:])
	logger.L.Debug("ips: parsed patch",
		"source", p.name(), "instructions", p.Len(), "dropped", dropped, "highest", p.last)
	return p, nil
}

func (p *Patch) truncated(pos int) error {
	return romerr.New(romerr.PatchFormat, "ips: %s: truncated at byte %#x", p.name(), pos)
}
