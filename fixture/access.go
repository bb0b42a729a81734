package fixture

import (
	"database/sql/driver"
	"fmt"
	"runtime"
)

// UnsupportedAccessError is returned when a reader asks a Snapshot for
// something outside of its captured shape. It carries the call site, the
// arguments of the rejected access and the captured data.
type UnsupportedAccessError struct {
	Op     string
	Args   []interface{}
	Caller string
	Fields []Field
	Rows   [][]driver.Value
}

// NewUnsupportedAccessError returns an UnsupportedAccessError for operation
// op with args against s. The caller of NewUnsupportedAccessError is
// recorded as the call site.
func NewUnsupportedAccessError(s *Snapshot, op string, args ...interface{}) *UnsupportedAccessError {
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	return &UnsupportedAccessError{
		Op:     op,
		Args:   args,
		Caller: caller,
		Fields: s.Fields(),
		Rows:   s.Rows(),
	}
}

func (e *UnsupportedAccessError) Error() string {
	return fmt.Sprintf("fixture: unsupported snapshot access %s%v at %s (fields=%v rows=%v)",
		e.Op, e.Args, e.Caller, e.Fields, e.Rows)
}
