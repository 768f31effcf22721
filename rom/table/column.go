package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/joshuapare/romkit/internal/buf"
	"github.com/joshuapare/romkit/pkg/romerr"
)

// Kind selects how a column maps bytes to values and values to text.
type Kind int

const (
	// Integer is a little-endian unsigned integer.
	Integer Kind = iota
	// HexInteger is an Integer rendered in hexadecimal.
	HexInteger
	// OneBasedInteger stores its value minus one.
	OneBasedInteger
	// Boolean stores 0 or 1; any non-zero byte decodes as true.
	Boolean
	// ByteList is a fixed-length run of raw bytes.
	ByteList
	// Enumerated is an integer code with optional symbolic names.
	Enumerated
	// Bitfield is a set of flags, one per bit.
	Bitfield
	// Pointer is a little-endian address that may be given as a label.
	Pointer
)

var kindNames = map[Kind]string{
	Integer:         "int",
	HexInteger:      "hex int",
	OneBasedInteger: "one-based int",
	Boolean:         "boolean",
	ByteList:        "bytearray",
	Enumerated:      "enum",
	Bitfield:        "bitfield",
	Pointer:         "pointer",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Column describes one field of a table row.
//
// Decoded values have these Go types:
//
//	Integer, HexInteger, OneBasedInteger, Enumerated, Pointer  uint64
//	Bitfield                                                   uint64 (bit mask)
//	Boolean                                                    bool
//	ByteList                                                   []byte
//
// Text values are what the human-readable document holds: int, bool,
// []int, string (enumeration names, "$"-prefixed pointers) and []any
// (bitfield names or bit indices).
type Column struct {
	Name  string
	Kind  Kind
	Width int
	// Enum names the codes of an Enumerated column or the bits of a Bitfield.
	Enum *Enumeration
}

// NewColumn returns a validated column.
func NewColumn(name string, kind Kind, width int, enum *Enumeration) (Column, error) {
	c := Column{Name: name, Kind: kind, Width: width, Enum: enum}
	if err := c.Validate(); err != nil {
		return Column{}, err
	}
	return c, nil
}

// Validate checks the column description.
func (c Column) Validate() error {
	if c.Name == "" {
		return romerr.New(romerr.InvalidArgument, "table: column without a name")
	}
	if _, ok := kindNames[c.Kind]; !ok {
		return romerr.New(romerr.InvalidArgument, "table: column %q has unknown kind %d", c.Name, int(c.Kind))
	}
	if c.Width <= 0 {
		return romerr.New(romerr.InvalidArgument, "table: column %q has width %d", c.Name, c.Width)
	}
	if c.numeric() && c.Width > buf.MaxUintWidth {
		return romerr.New(romerr.InvalidArgument,
			"table: %s column %q is %d bytes wide, at most %d supported", c.Kind, c.Name, c.Width, buf.MaxUintWidth)
	}
	if c.Kind == Bitfield {
		for _, e := range c.Enum.Entries() {
			if e.Code >= uint64(c.Width*8) {
				return romerr.New(romerr.InvalidArgument,
					"table: bitfield %q flag %q uses bit %d of %d", c.Name, e.Name, e.Code, c.Width*8)
			}
		}
	}
	return nil
}

func (c Column) numeric() bool {
	return c.Kind != Boolean && c.Kind != ByteList
}

// Decode converts exactly Width bytes into a value.
func (c Column) Decode(data []byte) (any, error) {
	if len(data) != c.Width {
		return nil, romerr.New(romerr.InvalidArgument,
			"table: column %q needs %d bytes, got %d", c.Name, c.Width, len(data))
	}
	switch c.Kind {
	case Boolean:
		for _, b := range data {
			if b != 0 {
				return true, nil
			}
		}
		return false, nil
	case ByteList:
		return append([]byte(nil), data...), nil
	case OneBasedInteger:
		raw := buf.UintLE(data)
		if raw == math.MaxUint64 {
			return nil, romerr.New(romerr.InvalidArgument, "table: column %q one-based value overflows", c.Name)
		}
		return raw + 1, nil
	default:
		return buf.UintLE(data), nil
	}
}

// Encode converts a value into exactly Width bytes.
func (c Column) Encode(v any) ([]byte, error) {
	out := make([]byte, c.Width)
	switch c.Kind {
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, c.typeError(v, "bool")
		}
		if b {
			out[0] = 1
		}
		return out, nil
	case ByteList:
		bs, ok := v.([]byte)
		if !ok {
			return nil, c.typeError(v, "[]byte")
		}
		if len(bs) != c.Width {
			return nil, romerr.New(romerr.InvalidArgument,
				"table: column %q needs %d bytes, got %d", c.Name, c.Width, len(bs))
		}
		copy(out, bs)
		return out, nil
	}

	n, ok := toUint64(v)
	if !ok {
		return nil, c.typeError(v, "unsigned integer")
	}
	if c.Kind == OneBasedInteger {
		if n == 0 {
			return nil, romerr.New(romerr.InvalidArgument, "table: column %q is one-based, got 0", c.Name)
		}
		n--
	}
	if !buf.FitsWidth(n, c.Width) {
		return nil, romerr.New(romerr.InvalidArgument,
			"table: column %q value %#x does not fit in %d bytes", c.Name, n, c.Width)
	}
	buf.PutUintLE(out, n)
	return out, nil
}

// ToText converts a value into its human-readable form.
func (c Column) ToText(v any) (any, error) {
	switch c.Kind {
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, c.typeError(v, "bool")
		}
		return b, nil
	case ByteList:
		bs, ok := v.([]byte)
		if !ok {
			return nil, c.typeError(v, "[]byte")
		}
		out := make([]int, len(bs))
		for i, b := range bs {
			out[i] = int(b)
		}
		return out, nil
	}

	n, ok := toUint64(v)
	if !ok {
		return nil, c.typeError(v, "unsigned integer")
	}
	switch c.Kind {
	case Enumerated:
		if name, ok := c.Enum.Name(n); ok {
			return name, nil
		}
		return textInt(n), nil
	case Bitfield:
		var names []string
		var bits []int
		for bit := 0; bit < c.Width*8 && bit < 64; bit++ {
			if n&(uint64(1)<<uint(bit)) == 0 {
				continue
			}
			if name, ok := c.Enum.Name(uint64(bit)); ok {
				names = append(names, name)
			} else {
				bits = append(bits, bit)
			}
		}
		sort.Strings(names)
		out := make([]any, 0, len(names)+len(bits))
		for _, name := range names {
			out = append(out, name)
		}
		for _, bit := range bits {
			out = append(out, bit)
		}
		return out, nil
	case Pointer:
		return fmt.Sprintf("$%0*X", 2*c.Width, n), nil
	default:
		return textInt(n), nil
	}
}

// FromText parses and validates a human-readable value. labels resolves
// symbolic pointer targets and may be nil.
func (c Column) FromText(repr any, labels *Labels) (any, error) {
	switch c.Kind {
	case Boolean:
		b, ok := repr.(bool)
		if !ok {
			return nil, c.userError("expected true or false, got %v", repr)
		}
		return b, nil
	case ByteList:
		return c.bytesFromText(repr)
	case Enumerated:
		if s, ok := repr.(string); ok {
			code, found := c.Enum.Code(s)
			if !found {
				return nil, c.userError("unknown value %q", s)
			}
			return c.checkFits(code)
		}
	case Bitfield:
		return c.bitsFromText(repr)
	case Pointer:
		if s, ok := repr.(string); ok {
			return c.pointerFromText(s, labels)
		}
	}

	n, ok := toUint64(repr)
	if !ok {
		return nil, c.userError("expected a non-negative integer, got %v", repr)
	}
	if c.Kind == OneBasedInteger {
		if n == 0 {
			return nil, c.userError("value must be at least 1")
		}
		if !buf.FitsWidth(n-1, c.Width) {
			return nil, c.userError("value %d does not fit in %d bytes", n, c.Width)
		}
		return n, nil
	}
	return c.checkFits(n)
}

func (c Column) bytesFromText(repr any) (any, error) {
	items, ok := toList(repr)
	if !ok {
		return nil, c.userError("expected a list of %d bytes, got %v", c.Width, repr)
	}
	if len(items) != c.Width {
		return nil, c.userError("expected %d bytes, got %d", c.Width, len(items))
	}
	out := make([]byte, len(items))
	for i, item := range items {
		n, ok := toUint64(item)
		if !ok || n > 0xFF {
			return nil, c.userError("byte %d: %v is not an unsigned byte", i, item)
		}
		out[i] = byte(n)
	}
	return out, nil
}

func (c Column) bitsFromText(repr any) (any, error) {
	items, ok := toList(repr)
	if !ok {
		return nil, c.userError("expected a list of flags, got %v", repr)
	}
	var mask uint64
	for _, item := range items {
		var bit uint64
		if s, isStr := item.(string); isStr {
			code, found := c.Enum.Code(s)
			if !found {
				return nil, c.userError("unknown flag %q", s)
			}
			bit = code
		} else if n, isInt := toUint64(item); isInt {
			bit = n
		} else {
			return nil, c.userError("invalid flag %v", item)
		}
		if bit >= uint64(c.Width*8) {
			return nil, c.userError("flag bit %d outside %d bits", bit, c.Width*8)
		}
		mask |= uint64(1) << bit
	}
	return mask, nil
}

func (c Column) pointerFromText(s string, labels *Labels) (any, error) {
	if hex, ok := strings.CutPrefix(s, "$"); ok {
		n, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return nil, c.userError("invalid address %q", s)
		}
		return c.checkFits(n)
	}
	addr, ok := labels.Lookup(s)
	if !ok {
		return nil, c.userError("unknown label %q", s)
	}
	return c.checkFits(addr)
}

func (c Column) checkFits(n uint64) (any, error) {
	if !buf.FitsWidth(n, c.Width) {
		return nil, c.userError("value %d does not fit in %d bytes", n, c.Width)
	}
	return n, nil
}

func (c Column) typeError(v any, want string) error {
	return romerr.New(romerr.InvalidArgument, "table: %s column %q wants %s, got %T", c.Kind, c.Name, want, v)
}

func (c Column) userError(format string, args ...interface{}) error {
	return romerr.New(romerr.InvalidUserData, "table: column %q: %s", c.Name, fmt.Sprintf(format, args...))
}

// textInt returns n as an int when it fits, which is what YAML decoding yields.
func textInt(n uint64) any {
	if n <= math.MaxInt {
		return int(n)
	}
	return n
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(n), n >= 0
	case int8:
		return uint64(n), n >= 0
	case int16:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []byte:
		out := make([]any, len(l))
		for i, b := range l {
			out[i] = b
		}
		return out, true
	default:
		return nil, false
	}
}
