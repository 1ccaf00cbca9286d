package tabular

import (
	"fmt"
)

// Record is one data row keyed by lower-cased column name. It is never
// mutated after Read returns it.
type Record struct {
	line   int
	fields map[string]string
}

// NewRecord copies fields, so the caller may keep using its map.
func NewRecord(line int, fields map[string]string) Record {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	return Record{line: line, fields: copied}
}

// Line is the 1-based line of the source file the row started on.
func (r Record) Line() int {
	return r.line
}

// Get returns the cell of column and whether the column exists.
func (r Record) Get(column string) (string, bool) {
	v, ok := r.fields[column]
	return v, ok
}

// Value returns the cell of column, failing with ErrSchema when the column is absent.
func (r Record) Value(column string) (string, error) {
	v, ok := r.fields[column]
	if !ok {
		return "", fmt.Errorf("%w: line %d has no column '%s'", ErrSchema, r.line, column)
	}

	return v, nil
}

// Fields returns a copy of all cells.
func (r Record) Fields() map[string]string {
	copied := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		copied[k] = v
	}

	return copied
}
