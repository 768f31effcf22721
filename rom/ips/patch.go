package ips

import (
	"bytes"

	"github.com/joshuapare/romkit/pkg/romerr"
)

const (
	// Magic opens every patch file.
	Magic = "PATCH"
	// Terminator ends the instruction stream.
	Terminator = "EOF"

	// MaxOffset is the largest offset an instruction can address.
	MaxOffset = 0xFFFFFF
	// MaxLength is the largest record or fill length.
	MaxLength = 0xFFFF

	// eofOffset is Terminator read as an offset.
	eofOffset = 0x454F46
)

// Op distinguishes instruction kinds.
type Op int

const (
	// OpRecord writes literal bytes.
	OpRecord Op = iota
	// OpFill writes one value across a span.
	OpFill
)

func (o Op) String() string {
	if o == OpFill {
		return "fill"
	}
	return "record"
}

// Instruction is one patch entry. Offsets are relative to the target.
type Instruction struct {
	Op     Op
	Offset int
	// Length is len(Data) for records and the span for fills.
	Length int
	Value  byte
	Data   []byte
}

// End returns the offset one past the last byte the instruction writes.
func (in Instruction) End() int { return in.Offset + in.Length }

// Target is an image a patch can be applied to.
type Target interface {
	Size() int
	GetRange(begin, end int) ([]byte, error)
	SetRange(begin, end int, values []byte) error
	Fill(begin, end int, v byte) error
}

// Patch is an ordered list of instructions.
type Patch struct {
	Instructions []Instruction
	// Metadata is the trailer found after the terminator, or nil.
	Metadata *Metadata

	source string
	last   int
}

// New returns an empty patch.
func New() *Patch {
	return &Patch{last: -1}
}

// Add appends an instruction.
func (p *Patch) Add(in Instruction) {
	if in.Op == OpRecord {
		in.Length = len(in.Data)
	}
	p.Instructions = append(p.Instructions, in)
	if in.Length > 0 && in.End()-1 > p.last {
		p.last = in.End() - 1
	}
}

// Record appends a literal write of data at offset.
func (p *Patch) Record(offset int, data []byte) {
	p.Add(Instruction{Op: OpRecord, Offset: offset, Data: append([]byte(nil), data...)})
}

// Fill appends a write of value across [offset, offset+length).
func (p *Patch) Fill(offset, length int, value byte) {
	p.Add(Instruction{Op: OpFill, Offset: offset, Length: length, Value: value})
}

// HighestOffset returns the last offset the patch writes, or -1 when it writes nothing.
func (p *Patch) HighestOffset() int { return p.last }

// Source names where the patch was loaded from; empty for built patches.
func (p *Patch) Source() string { return p.source }

// Len returns the number of instructions.
func (p *Patch) Len() int { return len(p.Instructions) }

// Fits reports whether t is large enough to receive the patch.
func (p *Patch) Fits(t Target) bool {
	return t.Size() > p.last
}

// Apply writes every instruction into t in order. t must be large enough
// for the highest offset the patch touches.
func (p *Patch) Apply(t Target) error {
	if !p.Fits(t) {
		return romerr.New(romerr.PatchFormat,
			"ips: %s writes up to offset %#x, target has only %#x bytes", p.name(), p.last, t.Size())
	}
	for _, in := range p.Instructions {
		var err error
		switch in.Op {
		case OpFill:
			err = t.Fill(in.Offset, in.End(), in.Value)
		default:
			err = t.SetRange(in.Offset, in.End(), in.Data)
		}
		if err != nil {
			return romerr.Wrap(err, romerr.PatchFormat, "ips: apply %s %s at %#x", p.name(), in.Op, in.Offset)
		}
	}
	return nil
}

// IsApplied reports whether t already holds every instruction's bytes.
// A target too small for the patch is never patched.
func (p *Patch) IsApplied(t Target) bool {
	if !p.Fits(t) {
		return false
	}
	for _, in := range p.Instructions {
		got, err := t.GetRange(in.Offset, in.End())
		if err != nil {
			return false
		}
		switch in.Op {
		case OpFill:
			for _, b := range got {
				if b != in.Value {
					return false
				}
			}
		default:
			if !bytes.Equal(got, in.Data) {
				return false
			}
		}
	}
	return true
}

func (p *Patch) name() string {
	if p.source == "" {
		return "patch"
	}
	return p.source
}
