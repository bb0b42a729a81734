package fixture

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"
)

// Field describes a single column of a captured result.
type Field struct {
	Name         string `yaml:"name" json:"name" msgpack:"name"`
	DatabaseType string `yaml:"database_type,omitempty" json:"database_type,omitempty" msgpack:"database_type,omitempty"`
}

// Snapshot is an immutable capture of the columns and rows of a single query
// result. It holds no reference to a live connection or cursor and can be
// handed to any number of readers.
type Snapshot struct {
	fields []Field
	rows   [][]driver.Value
}

// NewSnapshot returns a Snapshot of the given fields and rows. Values are
// copied and normalized to the database/sql value set (int64, float64, bool,
// []byte, string, time.Time and nil). A row whose width differs from fields
// or a value outside that set is an error.
func NewSnapshot(fields []Field, rows [][]driver.Value) (*Snapshot, error) {
	s := &Snapshot{
		fields: append([]Field(nil), fields...),
		rows:   make([][]driver.Value, 0, len(rows)),
	}

	for i, row := range rows {
		if len(row) != len(fields) {
			return nil, fmt.Errorf("fixture: row %d has %d values, want %d", i, len(row), len(fields))
		}

		cpy := make([]driver.Value, len(row))
		for j, v := range row {
			nv, err := normalizeValue(v)
			if err != nil {
				return nil, fmt.Errorf("fixture: row %d column %q: %w", i, fields[j].Name, err)
			}
			cpy[j] = nv
		}
		s.rows = append(s.rows, cpy)
	}

	return s, nil
}

// Fields returns the captured column descriptors.
func (s *Snapshot) Fields() []Field {
	if s == nil {
		return nil
	}
	return append([]Field(nil), s.fields...)
}

// Rows returns a copy of the captured rows.
func (s *Snapshot) Rows() [][]driver.Value {
	if s == nil {
		return nil
	}

	rows := make([][]driver.Value, len(s.rows))
	for i, row := range s.rows {
		cpy := make([]driver.Value, len(row))
		for j, v := range row {
			if b, ok := v.([]byte); ok {
				v = cloneBytes(b)
			}
			cpy[j] = v
		}
		rows[i] = cpy
	}
	return rows
}

func normalizeValue(v driver.Value) (driver.Value, error) {
	switch t := v.(type) {
	case nil, int64, float64, bool, string, time.Time:
		return v, nil
	case []byte:
		if t == nil {
			return nil, nil
		}
		return cloneBytes(t), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return nil, fmt.Errorf("uint64 value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	}

	return nil, fmt.Errorf("unsupported value type %T", v)
}

func cloneBytes(b []byte) []byte {
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}
