package survey

import (
	"iter"
	"slices"

	"explore/internal/transformer"
)

// Table is the cleaned survey table. It is never mutated after construction;
// accessors hand out copies.
type Table struct {
	rows []CleanedRecord
}

// NewTable copies rows into a new Table.
func NewTable(rows []CleanedRecord) *Table {
	return &Table{rows: slices.Clone(rows)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// At returns row i. Like a slice index it panics when i is out of range, which
// is every i for an empty or nil Table.
func (t *Table) At(i int) CleanedRecord { return t.rows[i] }

// Rows returns a copy of all rows in source order.
func (t *Table) Rows() []CleanedRecord {
	if t == nil {
		return nil
	}
	return slices.Clone(t.rows)
}

// All iterates rows in source order.
func (t *Table) All() iter.Seq2[int, CleanedRecord] {
	return func(yield func(int, CleanedRecord) bool) {
		if t == nil {
			return
		}
		for i, r := range t.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Fingerprint is a SHA-256 over the canonical encoding of the rows in order.
// Bit-identical tables share a fingerprint; different ones differ barring a
// SHA-256 collision.
func (t *Table) Fingerprint() string {
	h := transformer.NewHasher()
	for _, r := range t.All() {
		h.WriteRow(r.Country, r.EdLevel, r.YearsCodePro, r.Salary)
	}
	return h.Sum()
}
