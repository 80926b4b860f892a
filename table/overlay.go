package table

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
)

// WithColumn wraps any Source with one appended (or shadowed) column. It is
// how strategies build their in-memory working copy: the wrapped source is
// read-only and the caller's original is never touched.
func WithColumn(src Source, column string, values []any) (Source, error) {
	if len(values) != src.NumRows() {
		return nil, fmt.Errorf("column %q has %d values for %d rows", column, len(values), src.NumRows())
	}
	return &overlaySource{Source: src, column: column, values: values}, nil
}

type overlaySource struct {
	Source
	column string
	values []any
}

func (s *overlaySource) ColumnNames() []string {
	names := s.Source.ColumnNames()
	if !slices.Contains(names, s.column) {
		names = append(names, s.column)
	}
	return names
}

func (s *overlaySource) HasColumn(name string) bool {
	return name == s.column || s.Source.HasColumn(name)
}

func (s *overlaySource) StringValue(ref RowRef, column string) (string, error) {
	if column != s.column {
		return s.Source.StringValue(ref, column)
	}
	if int(ref) >= len(s.values) {
		return "", &ErrRowOutOfRange{Ref: ref, Rows: len(s.values)}
	}
	str, ok := s.values[ref].(string)
	if !ok {
		return "", &ErrBadValue{Column: column, Ref: ref, Value: s.values[ref]}
	}
	return str, nil
}

func (s *overlaySource) Geometry(ref RowRef) (orb.Geometry, error) {
	return s.Source.Geometry(ref)
}

func (s *overlaySource) Record(ref RowRef) (Record, error) {
	rec, err := s.Source.Record(ref)
	if err != nil {
		return nil, err
	}
	rec[s.column] = s.values[ref]
	return rec, nil
}
