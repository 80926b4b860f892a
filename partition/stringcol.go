package partition

import (
	"context"
	"fmt"

	"github.com/cholmes/geopartition/table"
)

// StringColumn partitions rows by the value of a string column, optionally
// truncated to a fixed number of leading characters.
type StringColumn struct {
	column    string
	prefixLen int
}

// StringColumnOption configures a StringColumn strategy.
type StringColumnOption func(*StringColumn)

// WithPrefixLength truncates column values to the first n characters before
// keying, grouping values that share a prefix into one partition.
func WithPrefixLength(n int) StringColumnOption {
	return func(s *StringColumn) { s.prefixLen = n }
}

// NewStringColumn creates a string-column strategy over the named column.
func NewStringColumn(column string, opts ...StringColumnOption) (*StringColumn, error) {
	if column == "" {
		return nil, fmt.Errorf("string column strategy: column name must not be empty")
	}
	s := &StringColumn{column: column}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefixLen < 0 {
		return nil, fmt.Errorf("string column strategy: prefix length %d is negative", s.prefixLen)
	}
	return s, nil
}

// Name identifies the strategy variant.
func (s *StringColumn) Name() string { return "string-column" }

// Plan assigns every row to the partition keyed by its column value. The
// column must already exist; unlike the computed-column strategies there is
// nothing to derive it from.
func (s *StringColumn) Plan(ctx context.Context, src table.Source) (*Result, error) {
	if src.NumRows() == 0 {
		return nil, ErrEmptyInput
	}
	if !src.HasColumn(s.column) {
		return nil, &ErrUnknownPartitionColumn{Column: s.column}
	}

	m, err := planRows(ctx, []string{s.column}, src.NumRows(), func(ref table.RowRef) (Key, error) {
		v, err := src.StringValue(ref, s.column)
		if err != nil {
			return Key{}, err
		}
		if s.prefixLen > 0 {
			if r := []rune(v); len(r) > s.prefixLen {
				v = string(r[:s.prefixLen])
			}
		}
		return StringKey(v), nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Mapping: m, Source: src, Column: s.column}, nil
}
