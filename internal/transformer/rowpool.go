// Package transformer holds the row container passed from the CSV reader to the
// cleaning pipeline, plus canonical hashing used to fingerprint cleaned tables.
package transformer

import "sync"

// Row is a pooled positional row aligned to the reader's requested columns.
// V[i] is either a string or nil (missing cell).
//
// Ownership contract:
//   - The reader hands a Row to its emit callback; the callback owns it until it
//     returns.
//   - Consumers copy what they need out of V and call Free() before returning.
//     Anything retained past Free() must not alias V.
//   - On error paths where the Row may still be referenced, call Drop() instead.
type Row struct {
	V    []any
	Line int // 1-based line of the record's first field in the source
}

var rowPool sync.Pool

// GetRow returns a pooled Row with length colCount and all fields nil.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]any, colCount)}
}

// Free returns the Row to the pool.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row without re-pooling it.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}

// String returns field i as a string; nil and out-of-range fields yield ("", false).
func (r *Row) String(i int) (string, bool) {
	if i < 0 || i >= len(r.V) {
		return "", false
	}
	s, ok := r.V[i].(string)
	return s, ok
}
