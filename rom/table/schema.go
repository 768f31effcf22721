package table

import (
	"errors"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/romkit/pkg/romerr"
)

// Schema describes where a table lives in an image and what its rows hold.
//
// A schema file maps table names to schemas:
//
//	Items:
//	  offset: 0x155000
//	  count: 254
//	  entries:
//	    - {name: Name, type: bytearray, size: 25}
//	    - {name: Kind, type: int, values: [Weapon, Armor, Other]}
//	    - {name: Flags, type: bitfield, values: {0: Cursed, 3: Unique}}
//	    - {name: Price, type: hex int, size: 2}
//
// The row count comes from count when present, otherwise from size divided
// by the row width.
type Schema struct {
	Name    string
	Offset  int
	Size    int
	Count   int
	Columns []Column
}

type schemaFile struct {
	Offset  int           `yaml:"offset"`
	Size    int           `yaml:"size"`
	Count   int           `yaml:"count"`
	Entries []schemaEntry `yaml:"entries"`
}

type schemaEntry struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Size   int       `yaml:"size"`
	Values yaml.Node `yaml:"values"`
}

var schemaKinds = map[string]Kind{
	"int":           Integer,
	"hex int":       HexInteger,
	"one-based int": OneBasedInteger,
	"boolean":       Boolean,
	"bytearray":     ByteList,
	"bitfield":      Bitfield,
	"pointer":       Pointer,
}

// LoadSchemas parses a schema file.
func LoadSchemas(r io.Reader) (map[string]*Schema, error) {
	var raw map[string]schemaFile
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, romerr.Wrap(err, romerr.InvalidUserData, "schema: parse yaml")
	}
	out := make(map[string]*Schema, len(raw))
	for name, sf := range raw {
		s, err := sf.schema(name)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}

// SchemaNames returns the table names of schemas in sorted order.
func SchemaNames(schemas map[string]*Schema) []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (sf schemaFile) schema(name string) (*Schema, error) {
	if sf.Offset < 0 || sf.Size < 0 || sf.Count < 0 {
		return nil, romerr.New(romerr.InvalidUserData, "schema %q: negative offset, size or count", name)
	}
	s := &Schema{Name: name, Offset: sf.Offset, Size: sf.Size, Count: sf.Count}
	for i, e := range sf.Entries {
		c, err := e.column()
		if err != nil {
			return nil, romerr.Wrap(err, romerr.InvalidUserData, "schema %q entry %d", name, i)
		}
		s.Columns = append(s.Columns, c)
	}
	return s, nil
}

func (e schemaEntry) column() (Column, error) {
	kind, ok := schemaKinds[e.Type]
	if !ok {
		return Column{}, romerr.New(romerr.InvalidUserData, "unknown type %q", e.Type)
	}
	width := e.Size
	if width == 0 {
		width = 1
	}
	enum, err := e.enumeration()
	if err != nil {
		return Column{}, err
	}
	if enum != nil && (kind == Integer || kind == HexInteger) {
		kind = Enumerated
	}
	return NewColumn(e.Name, kind, width, enum)
}

// enumeration accepts either a list of names (codes 0..n-1) or a mapping
// of code to name.
func (e schemaEntry) enumeration() (*Enumeration, error) {
	switch e.Values.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		var names []string
		if err := e.Values.Decode(&names); err != nil {
			return nil, romerr.Wrap(err, romerr.InvalidUserData, "values of %q", e.Name)
		}
		return NewEnumeration(names...)
	case yaml.MappingNode:
		var byCode map[uint64]string
		if err := e.Values.Decode(&byCode); err != nil {
			return nil, romerr.Wrap(err, romerr.InvalidUserData, "values of %q", e.Name)
		}
		codes := make([]uint64, 0, len(byCode))
		for c := range byCode {
			codes = append(codes, c)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		entries := make([]EnumEntry, len(codes))
		for i, c := range codes {
			entries[i] = EnumEntry{Name: byCode[c], Code: c}
		}
		return NewEnumerationFromEntries(entries)
	default:
		return nil, romerr.New(romerr.InvalidUserData, "values of %q must be a list or a mapping", e.Name)
	}
}

// NewTable returns an empty table shaped by the schema.
func (s *Schema) NewTable() (*Table, error) {
	if s.Count > 0 {
		return New(s.Name, s.Columns, s.Count)
	}
	if s.Size > 0 {
		return NewFromSize(s.Name, s.Columns, s.Size)
	}
	return nil, romerr.New(romerr.InvalidUserData, "schema %q: needs a count or a size", s.Name)
}
