package table

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
)

// MemorySource is an in-memory Source. It doubles as the working copy used
// when a strategy needs to append a backing column: WithColumn returns a new
// source sharing the base records, so the caller's original is never mutated.
type MemorySource struct {
	geomCol string
	columns []string
	records []Record

	// Appended working columns, column-major. Consulted before records.
	overlay map[string][]any
}

// NewMemorySource creates a MemorySource over the given records.
//
// columns must name every column present in the records, geometry column
// included. The geometry column must hold orb.Geometry values.
func NewMemorySource(geomCol string, columns []string, records []Record) (*MemorySource, error) {
	if !slices.Contains(columns, geomCol) {
		return nil, fmt.Errorf("geometry column %q not in column list", geomCol)
	}
	return &MemorySource{
		geomCol: geomCol,
		columns: slices.Clone(columns),
		records: records,
	}, nil
}

// NumRows returns the total row count.
func (s *MemorySource) NumRows() int { return len(s.records) }

// ColumnNames returns the column names.
func (s *MemorySource) ColumnNames() []string { return slices.Clone(s.columns) }

// HasColumn reports whether the named column exists.
func (s *MemorySource) HasColumn(name string) bool {
	return slices.Contains(s.columns, name)
}

// GeometryColumn returns the name of the geometry column.
func (s *MemorySource) GeometryColumn() string { return s.geomCol }

func (s *MemorySource) value(ref RowRef, column string) (any, error) {
	if int(ref) >= len(s.records) {
		return nil, &ErrRowOutOfRange{Ref: ref, Rows: len(s.records)}
	}
	if vals, ok := s.overlay[column]; ok {
		return vals[ref], nil
	}
	if !s.HasColumn(column) {
		return nil, &ErrUnknownColumn{Column: column}
	}
	return s.records[ref][column], nil
}

// StringValue returns the string value of a column for one row.
func (s *MemorySource) StringValue(ref RowRef, column string) (string, error) {
	v, err := s.value(ref, column)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", &ErrBadValue{Column: column, Ref: ref, Value: v}
	}
	return str, nil
}

// Geometry returns the geometry of one row.
func (s *MemorySource) Geometry(ref RowRef) (orb.Geometry, error) {
	v, err := s.value(ref, s.geomCol)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	g, ok := v.(orb.Geometry)
	if !ok {
		return nil, &ErrBadValue{Column: s.geomCol, Ref: ref, Value: v}
	}
	return g, nil
}

// Record materializes one full row, overlay columns included.
func (s *MemorySource) Record(ref RowRef) (Record, error) {
	if int(ref) >= len(s.records) {
		return nil, &ErrRowOutOfRange{Ref: ref, Rows: len(s.records)}
	}
	rec := make(Record, len(s.columns))
	for k, v := range s.records[ref] {
		rec[k] = v
	}
	for col, vals := range s.overlay {
		rec[col] = vals[ref]
	}
	return rec, nil
}

// WithColumn returns a new source with the named column appended.
//
// The base records are shared, not copied; an existing column of the same
// name is shadowed in the copy and untouched in the original.
func (s *MemorySource) WithColumn(name string, values []any) (*MemorySource, error) {
	if len(values) != len(s.records) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(s.records))
	}
	out := &MemorySource{
		geomCol: s.geomCol,
		columns: slices.Clone(s.columns),
		records: s.records,
		overlay: make(map[string][]any, len(s.overlay)+1),
	}
	for k, v := range s.overlay {
		out.overlay[k] = v
	}
	out.overlay[name] = values
	if !slices.Contains(out.columns, name) {
		out.columns = append(out.columns, name)
	}
	return out, nil
}
