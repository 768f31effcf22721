// Package romerr provides the error taxonomy shared by the ROM packages.
//
// Every error produced by romkit carries a Kind so callers can decide whether
// to skip a record, retry an allocation with different parameters, or abort the
// whole pass. Errors are built on top of github.com/ansel1/merry, which also
// captures a stack trace at the point of creation:
//
//	if romerr.Is(err, romerr.CouldNotAllocate) {
//	    // try a smaller block or a different bank
//	}
//
// Table errors keep the failing row and column plus the original cause:
//
//	row, _ := romerr.Row(err)
//	col, _ := romerr.Column(err)
//	cause := romerr.Cause(err)
package romerr

import (
	"fmt"

	"github.com/ansel1/merry"
)

// Kind classifies an error.
type Kind int

const (
	// Unknown is reported for errors that were not created by this package.
	Unknown Kind = iota
	// OutOfBounds means an index or range falls outside the addressable size of a block.
	OutOfBounds
	// InvalidArgument means malformed parameters, such as a negative width or inverted range.
	InvalidArgument
	// CouldNotAllocate means a range could not be marked as used.
	CouldNotAllocate
	// NotEnoughUnallocatedSpace means no free range satisfies an allocation request.
	NotEnoughUnallocatedSpace
	// ValueNotUnsignedByte means a value outside [0,255] was written to a byte slot.
	ValueNotUnsignedByte
	// InvalidUserData means the human-editable representation is malformed.
	InvalidUserData
	// MissingUserData means the human-editable representation is incomplete.
	MissingUserData
	// FileAccess means opening, reading or writing a backing file failed.
	FileAccess
	// PatchFormat means a patch is corrupt, truncated or does not fit its target.
	PatchFormat
	// Table wraps a per-cell failure with its row and column.
	Table
)

var kindNames = map[Kind]string{
	Unknown:                   "unknown",
	OutOfBounds:               "out of bounds",
	InvalidArgument:           "invalid argument",
	CouldNotAllocate:          "could not allocate",
	NotEnoughUnallocatedSpace: "not enough unallocated space",
	ValueNotUnsignedByte:      "value not unsigned byte",
	InvalidUserData:           "invalid user data",
	MissingUserData:           "missing user data",
	FileAccess:                "file access",
	PatchFormat:               "patch format",
	Table:                     "table",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// parent returns the broader kind k specializes, or Unknown.
func (k Kind) parent() Kind {
	switch k {
	case NotEnoughUnallocatedSpace:
		return CouldNotAllocate
	case MissingUserData:
		return InvalidUserData
	default:
		return Unknown
	}
}

const (
	kindKey   = "romerr.kind"
	causeKey  = "romerr.cause"
	rowKey    = "romerr.row"
	columnKey = "romerr.column"
)

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, args...), 1).WithValue(kindKey, kind)
}

// Wrap annotates err with a message and a kind, keeping err as the cause.
// Returns nil when err is nil.
func Wrap(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return wrap(err, kind, fmt.Sprintf(format, args...))
}

// WithCell wraps err as a failure of a single table cell.
func WithCell(err error, kind Kind, row int, column string) error {
	if err == nil {
		return nil
	}
	return wrap(err, kind, fmt.Sprintf("row %d, column %q", row, column)).
		WithValue(rowKey, row).
		WithValue(columnKey, column)
}

// WithRow wraps err as a failure of a whole table row.
func WithRow(err error, kind Kind, row int) error {
	if err == nil {
		return nil
	}
	return wrap(err, kind, fmt.Sprintf("row %d", row)).WithValue(rowKey, row)
}

func wrap(err error, kind Kind, msg string) merry.Error {
	return merry.WrapSkipping(fmt.Errorf("%s: %w", msg, err), 2).
		WithValue(kindKey, kind).
		WithValue(causeKey, err)
}

// KindOf returns the kind recorded on err, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	if k, ok := merry.Value(err, kindKey).(Kind); ok {
		return k
	}
	return Unknown
}

// Is reports whether err, or any cause it wraps, is of the given kind.
// Specialized kinds match their parents, so a NotEnoughUnallocatedSpace
// error is also a CouldNotAllocate error.
func Is(err error, kind Kind) bool {
	for e := err; e != nil; e = Cause(e) {
		for k := KindOf(e); k != Unknown; k = k.parent() {
			if k == kind {
				return true
			}
		}
	}
	return false
}

// Cause returns the error err wraps, or nil.
func Cause(err error) error {
	if err == nil {
		return nil
	}
	cause, _ := merry.Value(err, causeKey).(error)
	return cause
}

// Row returns the table row recorded on err.
func Row(err error) (int, bool) {
	for e := err; e != nil; e = Cause(e) {
		if row, ok := merry.Value(e, rowKey).(int); ok {
			return row, true
		}
	}
	return 0, false
}

// Column returns the table column recorded on err.
func Column(err error) (string, bool) {
	for e := err; e != nil; e = Cause(e) {
		if col, ok := merry.Value(e, columnKey).(string); ok {
			return col, true
		}
	}
	return "", false
}

// Details returns the message and stack trace of err.
func Details(err error) string {
	return merry.Details(err)
}
