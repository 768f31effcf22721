// Package table gives structured access to fixed-width row data inside a ROM image.
//
// A Table is an ordered list of typed columns applied over a run of rows.
// Each Column kind maps its bytes to a Go value and that value to a
// human-editable text form:
//
//	tbl, _ := table.NewFromSize("Items", cols, 0x1000)
//	if err := tbl.FromBlock(rom, 0x155000); err != nil { ... }
//	_ = tbl.WriteResource(resource.Dir("project"), "items")
//
// Decoding and encoding never leave a table or block half updated. Per-cell
// failures are reported as romerr.Table errors carrying the row, the column
// and the original cause.
//
// Schema files (LoadSchemas) describe tables in YAML so tools can export and
// import them without compiled-in layouts.
package table
