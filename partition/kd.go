package partition

import (
	"context"
	"fmt"

	"github.com/cholmes/geopartition/geom"
	"github.com/cholmes/geopartition/partition/kdtree"
	"github.com/cholmes/geopartition/table"
)

// DefaultKDColumn is the working column carrying leaf assignments.
const DefaultKDColumn = "kd_leaf"

// KDTree partitions rows by recursive median splits over row centroids,
// producing a power-of-two number of balanced spatial partitions.
type KDTree struct {
	opts   kdtree.Options
	column string
}

// KDTreeOption configures a KDTree strategy.
type KDTreeOption func(*KDTree)

// WithKDColumn overrides the backing column name.
func WithKDColumn(name string) KDTreeOption {
	return func(s *KDTree) { s.column = name }
}

// WithKDOptions replaces the tree build parameters wholesale.
func WithKDOptions(o kdtree.Options) KDTreeOption {
	return func(s *KDTree) { s.opts = o }
}

// WithPartitions requests an explicit partition count (power of two).
func WithPartitions(p int) KDTreeOption {
	return func(s *KDTree) { s.opts.Partitions = p }
}

// WithExactMedians selects true-median splits over sampled estimates.
func WithExactMedians() KDTreeOption {
	return func(s *KDTree) { s.opts.Exact = true }
}

// NewKDTree creates a KD-tree strategy. Without options the partition count
// is derived from the input size and the default target rows per partition.
func NewKDTree(opts ...KDTreeOption) (*KDTree, error) {
	s := &KDTree{opts: kdtree.DefaultOptions, column: DefaultKDColumn}
	for _, opt := range opts {
		opt(s)
	}
	if s.column == "" {
		return nil, fmt.Errorf("kdtree strategy: column name must not be empty")
	}
	return s, nil
}

// Name identifies the strategy variant.
func (s *KDTree) Name() string { return "kdtree" }

// Plan computes row centroids, builds the tree, and maps every row to its
// leaf. Leaf assignments are appended to a working copy of the source so the
// writer can emit them alongside the row data.
func (s *KDTree) Plan(ctx context.Context, src table.Source) (*Result, error) {
	n := src.NumRows()
	if n == 0 {
		return nil, ErrEmptyInput
	}

	points := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := src.Geometry(table.RowRef(i))
		if err != nil {
			return nil, &RowError{Ref: table.RowRef(i), Err: err}
		}
		p, err := geom.Centroid(g)
		if err != nil {
			return nil, &RowError{Ref: table.RowRef(i), Err: err}
		}
		points[i] = p
	}

	tree, err := kdtree.Build(ctx, points, s.opts)
	if err != nil {
		return nil, err
	}

	leaves := make([]any, n)
	m := NewMapping([]string{s.column})
	for i := 0; i < n; i++ {
		leaf := tree.Assignment(i)
		leaves[i] = fmt.Sprintf("%05d", leaf)
		m.add(LeafKey(uint32(leaf)), table.RowRef(i))
	}

	working, err := table.WithColumn(src, s.column, leaves)
	if err != nil {
		return nil, err
	}
	return &Result{Mapping: m, Source: working, Column: s.column}, nil
}
