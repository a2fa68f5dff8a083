package survey

import (
	"errors"
	"fmt"
)

// ErrNotNumeric is wrapped by ParseError when a value is neither a known
// sentinel nor a decimal numeral.
var ErrNotNumeric = errors.New("not a decimal number")

// LoadError means the source could not be used at all: missing, unreadable,
// empty, or lacking required columns. It is fatal; no table is produced.
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load survey: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("load survey %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ParseError means a single value could not be converted. It fails the whole
// load instead of dropping or coercing the row, since either would silently
// skew the aggregates.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: parse %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
