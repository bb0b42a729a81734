package sqlreplay

import (
	"database/sql/driver"
	"io"

	"github.com/prashanthpai/sqlreplay/fixture"
)

// rowsCached implements driver.Rows over a recorded snapshot.
type rowsCached struct {
	snap   *fixture.Snapshot
	fields []fixture.Field
	rows   [][]driver.Value
	ptr    int
}

func newRowsCached(snap *fixture.Snapshot) *rowsCached {
	return &rowsCached{
		snap:   snap,
		fields: snap.Fields(),
		rows:   snap.Rows(),
	}
}

func (r *rowsCached) Columns() []string {
	cols := make([]string, len(r.fields))
	for i, f := range r.fields {
		cols[i] = f.Name
	}
	return cols
}

func (r *rowsCached) Next(dest []driver.Value) error {
	if len(dest) != len(r.fields) {
		return fixture.NewUnsupportedAccessError(r.snap, "Next", len(dest))
	}
	if r.ptr >= len(r.rows) {
		return io.EOF
	}

	copy(dest, r.rows[r.ptr])
	r.ptr++

	return nil
}

func (r *rowsCached) Close() error {
	return nil
}

func (r *rowsCached) ColumnTypeDatabaseTypeName(index int) string {
	return r.fields[index].DatabaseType
}

func (r *rowsCached) HasNextResultSet() bool {
	return false
}

func (r *rowsCached) NextResultSet() error {
	return io.EOF
}
