package proto

import (
	"go.uber.org/atomic"
)

// RowDescriptionColumn names one column of a synthesized result set.
type RowDescriptionColumn struct {
	Name string
	OID  uint32
}

// RowDescription is the metadata of an INTERCEPT result set.
type RowDescription struct {
	Columns []RowDescriptionColumn
}

// Row is one data row of an INTERCEPT result set.
//
// Rows cross the host/plugin ownership boundary: the only legal way to
// construct one is RowNew and the only legal way to release one is
// RowFree. Ownership transfers to the host the moment the plugin
// returns its Output; the plugin must not retain or mutate the row
// afterward. The fields are unexported so a literal Row is useless to
// a plugin and detectable by the interpreter.
type Row struct {
	columns [][]byte

	allocated bool
	freed     atomic.Bool
}

// RowNew allocates a Row with columnCount zero-initialized column
// slots. This is the sole sanctioned constructor.
func RowNew(columnCount int) *Row {
	return &Row{
		columns:   make([][]byte, columnCount),
		allocated: true,
	}
}

// RowFree releases a row. The value must not be read or freed again;
// a second free or a read after free panics so a debug harness can
// catch the misuse.
func RowFree(row *Row) {
	if row.freed.Swap(true) {
		panic("proto: double free of Row")
	}
	// Poison: any retained reference now reads nothing.
	row.columns = nil
}

func (r *Row) checkLive() {
	if !r.allocated {
		panic("proto: Row not built via RowNew")
	}
	if r.freed.Load() {
		panic("proto: use of freed Row")
	}
}

// Allocated reports whether the row came from RowNew and has not been
// freed. The interpreter rejects intercept outputs carrying rows built
// through any other path.
func (r *Row) Allocated() bool {
	return r.allocated && !r.freed.Load()
}

func (r *Row) NumColumns() int {
	r.checkLive()
	return len(r.columns)
}

func (r *Row) Column(index int) []byte {
	r.checkLive()
	return r.columns[index]
}

func (r *Row) SetColumn(index int, data []byte) {
	r.checkLive()
	r.columns[index] = data
}

// Intercept is a synthesized client-visible result set. No query
// reaches any backend when a plugin intercepts.
type Intercept struct {
	Description RowDescription
	Rows        []*Row
}
