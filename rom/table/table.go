package table

import (
	"github.com/joshuapare/romkit/internal/logger"
	"github.com/joshuapare/romkit/pkg/romerr"
)

// Source is a byte region a table can be decoded from.
// *block.Block and *rom.AllocatableBlock both satisfy it.
type Source interface {
	GetRange(begin, end int) ([]byte, error)
}

// Sink is a byte region a table can be encoded into.
type Sink interface {
	SetRange(begin, end int, values []byte) error
}

// Table is a row-major grid of values laid out as fixed-width rows.
type Table struct {
	Name string

	columns  []Column
	index    map[string]int
	rowWidth int
	rows     [][]any
}

// New returns a table of rowCount rows, every cell holding the value its
// column decodes from zero bytes.
func New(name string, columns []Column, rowCount int) (*Table, error) {
	if rowCount < 0 {
		return nil, romerr.New(romerr.InvalidArgument, "table %q: negative row count %d", name, rowCount)
	}
	t, err := newTable(name, columns)
	if err != nil {
		return nil, err
	}
	rows, err := t.zeroRows(rowCount)
	if err != nil {
		return nil, err
	}
	t.rows = rows
	return t, nil
}

// NewFromSize derives the row count from the total byte size of the table,
// which must be a multiple of the row width.
func NewFromSize(name string, columns []Column, totalSize int) (*Table, error) {
	t, err := newTable(name, columns)
	if err != nil {
		return nil, err
	}
	if totalSize < 0 || totalSize%t.rowWidth != 0 {
		return nil, romerr.New(romerr.InvalidArgument,
			"table %q: size %d is not a multiple of the row width %d", name, totalSize, t.rowWidth)
	}
	return New(name, columns, totalSize/t.rowWidth)
}

func newTable(name string, columns []Column) (*Table, error) {
	if len(columns) == 0 {
		return nil, romerr.New(romerr.InvalidArgument, "table %q: no columns", name)
	}
	t := &Table{
		Name:    name,
		columns: append([]Column(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		if err := c.Validate(); err != nil {
			return nil, romerr.Wrap(err, romerr.InvalidArgument, "table %q", name)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, romerr.New(romerr.InvalidArgument, "table %q: duplicate column %q", name, c.Name)
		}
		t.index[c.Name] = i
		t.rowWidth += c.Width
	}
	return t, nil
}

func (t *Table) zeroRows(n int) ([][]any, error) {
	rows := make([][]any, n)
	for r := range rows {
		row := make([]any, len(t.columns))
		for i, c := range t.columns {
			v, err := c.Decode(make([]byte, c.Width))
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		rows[r] = row
	}
	return rows, nil
}

// Columns returns the column descriptors in row order.
func (t *Table) Columns() []Column { return append([]Column(nil), t.columns...) }

// RowWidth returns the byte width of one row.
func (t *Table) RowWidth() int { return t.rowWidth }

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Size returns the byte size of the whole table.
func (t *Table) Size() int { return t.rowWidth * len(t.rows) }

// Column returns the descriptor of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Get returns the value of one cell.
func (t *Table) Get(row int, column string) (any, error) {
	r, c, err := t.cell(row, column)
	if err != nil {
		return nil, err
	}
	return t.rows[r][c], nil
}

// Set stores v in one cell after checking that the column can encode it.
// Integer values of any Go integer type are stored as uint64.
func (t *Table) Set(row int, column string, v any) error {
	r, c, err := t.cell(row, column)
	if err != nil {
		return err
	}
	col := t.columns[c]
	data, err := col.Encode(v)
	if err != nil {
		return romerr.WithCell(err, romerr.Table, row, column)
	}
	norm, err := col.Decode(data)
	if err != nil {
		return romerr.WithCell(err, romerr.Table, row, column)
	}
	t.rows[r][c] = norm
	return nil
}

func (t *Table) cell(row int, column string) (int, int, error) {
	if row < 0 || row >= len(t.rows) {
		return 0, 0, romerr.New(romerr.OutOfBounds, "table %q: row %d outside [0,%d)", t.Name, row, len(t.rows))
	}
	c, ok := t.index[column]
	if !ok {
		return 0, 0, romerr.New(romerr.InvalidArgument, "table %q: no column %q", t.Name, column)
	}
	return row, c, nil
}

// FromBlock decodes every row starting at offset. The table is left
// unchanged when any cell fails to decode.
func (t *Table) FromBlock(src Source, offset int) error {
	data, err := src.GetRange(offset, offset+t.Size())
	if err != nil {
		return err
	}
	rows := make([][]any, len(t.rows))
	pos := 0
	for r := range rows {
		row := make([]any, len(t.columns))
		for i, c := range t.columns {
			v, err := c.Decode(data[pos : pos+c.Width])
			if err != nil {
				return romerr.WithCell(err, romerr.Table, r, c.Name)
			}
			row[i] = v
			pos += c.Width
		}
		rows[r] = row
	}
	t.rows = rows
	logger.L.Debug("table decoded", "table", t.Name, "offset", offset, "rows", len(rows))
	return nil
}

// ToBlock encodes every row starting at offset and returns offset.
// Nothing is written when any cell fails to encode.
func (t *Table) ToBlock(dst Sink, offset int) (int, error) {
	data := make([]byte, 0, t.Size())
	for r, row := range t.rows {
		for i, c := range t.columns {
			b, err := c.Encode(row[i])
			if err != nil {
				return offset, romerr.WithCell(err, romerr.Table, r, c.Name)
			}
			data = append(data, b...)
		}
	}
	if err := dst.SetRange(offset, offset+len(data), data); err != nil {
		return offset, err
	}
	logger.L.Debug("table encoded", "table", t.Name, "offset", offset, "rows", len(t.rows))
	return offset, nil
}

// ToHuman returns the table as row index -> column name -> text value.
func (t *Table) ToHuman() (map[int]map[string]any, error) {
	doc := make(map[int]map[string]any, len(t.rows))
	for r, row := range t.rows {
		out := make(map[string]any, len(t.columns))
		for i, c := range t.columns {
			v, err := c.ToText(row[i])
			if err != nil {
				return nil, romerr.WithCell(err, romerr.Table, r, c.Name)
			}
			out[c.Name] = v
		}
		doc[r] = out
	}
	return doc, nil
}

// FromHuman replaces the table contents with doc. Every row and every
// column must be present; extra rows and columns are ignored. labels
// resolves pointer labels and may be nil. The table is left unchanged on error.
func (t *Table) FromHuman(doc map[int]map[string]any, labels *Labels) error {
	rows := make([][]any, len(t.rows))
	for r := range rows {
		in, ok := doc[r]
		if !ok {
			return romerr.WithRow(
				romerr.New(romerr.MissingUserData, "table %q: row %d missing", t.Name, r),
				romerr.Table, r)
		}
		row := make([]any, len(t.columns))
		for i, c := range t.columns {
			repr, ok := in[c.Name]
			if !ok {
				return romerr.WithCell(
					romerr.New(romerr.MissingUserData, "table %q: row %d has no %q", t.Name, r, c.Name),
					romerr.Table, r, c.Name)
			}
			v, err := c.FromText(repr, labels)
			if err != nil {
				return romerr.WithCell(err, romerr.Table, r, c.Name)
			}
			row[i] = v
		}
		rows[r] = row
	}
	t.rows = rows
	return nil
}
