// Package table defines the tabular row source consumed by the partitioning
// engine. Rows are only ever referenced by index (RowRef); the engine never
// copies geometry payloads into its own structures.
package table

import (
	"fmt"

	"github.com/paulmach/orb"
)

// RowRef is an opaque handle into a Source. Refs are dense indices in
// [0, NumRows) and are stable for the lifetime of the source.
type RowRef uint32

// Record is one materialized row, column name to value. Only the writer
// phase materializes records; planning works on refs.
type Record map[string]any

// Source is a finite, restartable row source with random access by RowRef.
//
// Implementations must be safe for concurrent reads; the engine fans row
// assignment out across workers.
type Source interface {
	// NumRows returns the total row count.
	NumRows() int

	// ColumnNames returns the column names, geometry column included.
	ColumnNames() []string

	// HasColumn reports whether the named column exists.
	HasColumn(name string) bool

	// StringValue returns the string value of a column for one row.
	StringValue(ref RowRef, column string) (string, error)

	// Geometry returns the geometry of one row.
	Geometry(ref RowRef) (orb.Geometry, error)

	// GeometryColumn returns the name of the geometry column.
	GeometryColumn() string

	// Record materializes one full row.
	Record(ref RowRef) (Record, error)
}

// ErrUnknownColumn indicates a reference to a column the source does not have.
type ErrUnknownColumn struct {
	Column string
}

func (e *ErrUnknownColumn) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

// ErrRowOutOfRange indicates a RowRef past the end of the source.
type ErrRowOutOfRange struct {
	Ref  RowRef
	Rows int
}

func (e *ErrRowOutOfRange) Error() string {
	return fmt.Sprintf("row %d out of range (source has %d rows)", e.Ref, e.Rows)
}

// ErrBadValue indicates a column value of an unexpected type.
type ErrBadValue struct {
	Column string
	Ref    RowRef
	Value  any
}

func (e *ErrBadValue) Error() string {
	return fmt.Sprintf("column %q row %d: unexpected value type %T", e.Column, e.Ref, e.Value)
}
