package sqlreplay

import (
	"database/sql/driver"
	"fmt"
	"io"

	"github.com/prashanthpai/sqlreplay/fixture"
)

// recordRows drains rows into a snapshot and closes them. Values are copied
// as drivers may reuse the buffers behind dest.
func recordRows(rows driver.Rows) (snap *fixture.Snapshot, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			snap, err = nil, cerr
		}
	}()

	cols := rows.Columns()
	fields := make([]fixture.Field, len(cols))
	typed, _ := rows.(driver.RowsColumnTypeDatabaseTypeName)
	for i, col := range cols {
		fields[i].Name = col
		if typed != nil {
			fields[i].DatabaseType = typed.ColumnTypeDatabaseTypeName(i)
		}
	}

	var data [][]driver.Value
	dest := make([]driver.Value, len(cols))
	for {
		if err := rows.Next(dest); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		row := make([]driver.Value, len(dest))
		for i, v := range dest {
			if b, ok := v.([]byte); ok && b != nil {
				v = append([]byte{}, b...)
			}
			row[i] = v
		}
		data = append(data, row)
	}

	if multi, ok := rows.(driver.RowsNextResultSet); ok && multi.HasNextResultSet() {
		return nil, fmt.Errorf("sqlreplay: results with multiple result sets can't be recorded")
	}

	return fixture.NewSnapshot(fields, data)
}
