package partition

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"

	"github.com/cholmes/geopartition/table"
)

func TestH3CellComputesColumn(t *testing.T) {
	// Two clusters far apart plus a duplicate point: two partitions at a
	// coarse resolution.
	src := pointSource(t,
		[]string{"a", "b", "c"},
		[]orb.Point{{13.4, 52.5}, {13.4, 52.5}, {-74.0, 40.7}},
	)

	s, err := NewH3Cell(4)
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, res.Mapping.Validate(3))
	require.Equal(t, 2, res.Mapping.Partitions())
	require.Equal(t, DefaultH3Column, res.Column)

	// The working copy carries the computed column; the original does not.
	require.True(t, res.Source.HasColumn(DefaultH3Column))
	require.False(t, src.HasColumn(DefaultH3Column))

	v, err := res.Source.StringValue(0, DefaultH3Column)
	require.NoError(t, err)
	want, err := h3.LatLngToCell(h3.LatLng{Lat: 52.5, Lng: 13.4}, 4)
	require.NoError(t, err)
	require.Equal(t, want.String(), v)
}

func TestH3CellUsesExistingColumn(t *testing.T) {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 52.5, Lng: 13.4}, 4)
	require.NoError(t, err)

	records := []table.Record{
		{"geometry": orb.Point{13.4, 52.5}, "h3_cell": cell.String()},
		{"geometry": orb.Point{13.4, 52.5}, "h3_cell": cell.String()},
	}
	src, err := table.NewMemorySource("geometry", []string{"geometry", "h3_cell"}, records)
	require.NoError(t, err)

	s, err := NewH3Cell(4)
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, res.Mapping.Partitions())
	require.Same(t, table.Source(src), res.Source)

	key := res.Mapping.Keys()[0]
	require.Equal(t, KindH3, key.Kind())
	require.Equal(t, uint64(cell), key.Cell())
}

func TestH3CellBadExistingValue(t *testing.T) {
	records := []table.Record{
		{"geometry": orb.Point{0, 0}, "h3_cell": "not-a-cell"},
	}
	src, err := table.NewMemorySource("geometry", []string{"geometry", "h3_cell"}, records)
	require.NoError(t, err)

	s, err := NewH3Cell(4)
	require.NoError(t, err)

	_, err = s.Plan(context.Background(), src)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	require.EqualValues(t, 0, rowErr.Ref)
}

func TestH3CellResolutionValidation(t *testing.T) {
	_, err := NewH3Cell(-1)
	require.Error(t, err)

	_, err = NewH3Cell(16)
	require.Error(t, err)

	_, err = NewH3Cell(15)
	require.NoError(t, err)
}
