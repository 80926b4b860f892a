// Package partition defines the pluggable partition strategies and the
// key-to-row-set mapping they produce. The closed strategy set is
// {StringColumn, H3Cell, KDTree, AdminBoundary}; each validates its options
// up front and fails fast, with no partial side effects, before any row is
// assigned.
package partition

import (
	"context"
	"errors"
	"fmt"

	"github.com/cholmes/geopartition/join"
	"github.com/cholmes/geopartition/table"
)

// ErrEmptyInput is returned when a strategy is asked to plan over a source
// with no rows.
var ErrEmptyInput = errors.New("empty input: source has no rows")

// ErrUnknownPartitionColumn indicates a partitioning column the source does
// not have and the strategy cannot compute.
type ErrUnknownPartitionColumn struct {
	Column string
}

func (e *ErrUnknownPartitionColumn) Error() string {
	return fmt.Sprintf("partition column %q not found in source", e.Column)
}

// RowError attaches the offending row to a per-row failure (bad geometry,
// bad column value). Per-row errors abort planning; rows are never silently
// dropped.
type RowError struct {
	Ref table.RowRef
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Ref, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Result is the outcome of planning.
type Result struct {
	// Mapping assigns every input row to exactly one partition.
	Mapping *Mapping

	// Source is the working copy used for the write phase. It is the input
	// source itself unless the strategy appended a backing column; the
	// caller's original is never mutated.
	Source table.Source

	// Column names the backing partition column in Source, or "" when the
	// strategy has none (admin labels live in their own columns).
	Column string

	// Join carries spatial-join statistics, set only by AdminBoundary.
	Join *join.Stats
}

// Strategy plans a partition mapping over a row source.
type Strategy interface {
	// Name identifies the strategy variant for logs and errors.
	Name() string

	// Plan assigns every row of src to a partition. src must be non-empty.
	Plan(ctx context.Context, src table.Source) (*Result, error)
}
