package partition

import (
	"context"
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/cholmes/geopartition/geom"
	"github.com/cholmes/geopartition/table"
)

// DefaultH3Column is the backing column name used when the source does not
// already carry H3 cells.
const DefaultH3Column = "h3_cell"

// H3Cell partitions rows by the H3 cell containing each row's centroid at a
// fixed resolution.
type H3Cell struct {
	resolution int
	column     string
}

// H3CellOption configures an H3Cell strategy.
type H3CellOption func(*H3Cell)

// WithH3Column overrides the backing column name.
func WithH3Column(name string) H3CellOption {
	return func(s *H3Cell) { s.column = name }
}

// NewH3Cell creates an H3 strategy at the given resolution (0-15).
func NewH3Cell(resolution int, opts ...H3CellOption) (*H3Cell, error) {
	if resolution < 0 || resolution > 15 {
		return nil, fmt.Errorf("h3 strategy: invalid H3 resolution %d (must be 0..15)", resolution)
	}
	s := &H3Cell{resolution: resolution, column: DefaultH3Column}
	for _, opt := range opts {
		opt(s)
	}
	if s.column == "" {
		return nil, fmt.Errorf("h3 strategy: column name must not be empty")
	}
	return s, nil
}

// Name identifies the strategy variant.
func (s *H3Cell) Name() string { return "h3" }

// Plan assigns every row to its H3 cell. When the backing column already
// exists its values are trusted; otherwise cells are computed from row
// centroids and appended to an in-memory working copy of the source.
func (s *H3Cell) Plan(ctx context.Context, src table.Source) (*Result, error) {
	n := src.NumRows()
	if n == 0 {
		return nil, ErrEmptyInput
	}

	if src.HasColumn(s.column) {
		m, err := planRows(ctx, []string{s.column}, n, func(ref table.RowRef) (Key, error) {
			v, err := src.StringValue(ref, s.column)
			if err != nil {
				return Key{}, err
			}
			var c h3.Cell
			if err := c.UnmarshalText([]byte(v)); err != nil {
				return Key{}, fmt.Errorf("parse h3 cell %q: %w", v, err)
			}
			if !c.IsValid() {
				return Key{}, fmt.Errorf("invalid h3 cell %q", v)
			}
			return H3Key(uint64(c)), nil
		})
		if err != nil {
			return nil, err
		}
		return &Result{Mapping: m, Source: src, Column: s.column}, nil
	}

	// Column absent: derive cells from centroids once, keyed and appended to
	// the working copy from the same computation.
	cells := make([]any, n)
	m, err := planRows(ctx, []string{s.column}, n, func(ref table.RowRef) (Key, error) {
		g, err := src.Geometry(ref)
		if err != nil {
			return Key{}, err
		}
		p, err := geom.Centroid(g)
		if err != nil {
			return Key{}, err
		}
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Y, Lng: p.X}, s.resolution)
		if err != nil {
			return Key{}, fmt.Errorf("h3 cell for (%f, %f): %w", p.Y, p.X, err)
		}
		cells[ref] = c.String()
		return H3Key(uint64(c)), nil
	})
	if err != nil {
		return nil, err
	}

	working, err := table.WithColumn(src, s.column, cells)
	if err != nil {
		return nil, err
	}
	return &Result{Mapping: m, Source: working, Column: s.column}, nil
}
