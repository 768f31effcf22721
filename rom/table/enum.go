package table

import (
	"golang.org/x/text/cases"

	"github.com/joshuapare/romkit/pkg/romerr"
)

// EnumEntry is one symbolic name and its integer code.
type EnumEntry struct {
	Name string
	Code uint64
}

// Enumeration is an ordered mapping between symbolic names and integer codes.
// Name lookup is case-insensitive; names are reported as declared.
type Enumeration struct {
	entries []EnumEntry
	byName  map[string]int
	byCode  map[uint64]int
}

// NewEnumeration assigns the codes 0..len(names)-1 to names in order.
func NewEnumeration(names ...string) (*Enumeration, error) {
	entries := make([]EnumEntry, len(names))
	for i, n := range names {
		entries[i] = EnumEntry{Name: n, Code: uint64(i)}
	}
	return NewEnumerationFromEntries(entries)
}

// NewEnumerationFromEntries builds an enumeration from explicit name/code pairs.
// Names must be unique ignoring case and codes must be unique.
func NewEnumerationFromEntries(entries []EnumEntry) (*Enumeration, error) {
	e := &Enumeration{
		entries: make([]EnumEntry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
		byCode:  make(map[uint64]int, len(entries)),
	}
	for _, ent := range entries {
		if ent.Name == "" {
			return nil, romerr.New(romerr.InvalidArgument, "table: empty enumeration name for code %d", ent.Code)
		}
		key := fold(ent.Name)
		if _, dup := e.byName[key]; dup {
			return nil, romerr.New(romerr.InvalidArgument, "table: duplicate enumeration name %q", ent.Name)
		}
		if _, dup := e.byCode[ent.Code]; dup {
			return nil, romerr.New(romerr.InvalidArgument, "table: duplicate enumeration code %d", ent.Code)
		}
		e.byName[key] = len(e.entries)
		e.byCode[ent.Code] = len(e.entries)
		e.entries = append(e.entries, ent)
	}
	return e, nil
}

// Len returns the number of entries.
func (e *Enumeration) Len() int {
	if e == nil {
		return 0
	}
	return len(e.entries)
}

// Entries returns the entries in declaration order.
func (e *Enumeration) Entries() []EnumEntry {
	if e == nil {
		return nil
	}
	return append([]EnumEntry(nil), e.entries...)
}

// Code returns the code for name.
func (e *Enumeration) Code(name string) (uint64, bool) {
	if e == nil {
		return 0, false
	}
	i, ok := e.byName[fold(name)]
	if !ok {
		return 0, false
	}
	return e.entries[i].Code, true
}

// Name returns the name for code.
func (e *Enumeration) Name(code uint64) (string, bool) {
	if e == nil {
		return "", false
	}
	i, ok := e.byCode[code]
	if !ok {
		return "", false
	}
	return e.entries[i].Name, true
}

func fold(s string) string {
	return cases.Fold().String(s)
}
