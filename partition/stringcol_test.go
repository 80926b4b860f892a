package partition

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/cholmes/geopartition/table"
)

func pointSource(t *testing.T, regions []string, pts []orb.Point) table.Source {
	t.Helper()

	records := make([]table.Record, len(regions))
	for i, r := range regions {
		records[i] = table.Record{"geometry": pts[i], "region": r}
	}
	src, err := table.NewMemorySource("geometry", []string{"geometry", "region"}, records)
	require.NoError(t, err)
	return src
}

func TestStringColumnPlan(t *testing.T) {
	src := pointSource(t,
		[]string{"Africa", "Asia", "Africa", "Europe"},
		[]orb.Point{{0, 0}, {100, 10}, {20, -10}, {10, 50}},
	)

	s, err := NewStringColumn("region")
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, res.Mapping.Validate(4))
	require.Equal(t, 3, res.Mapping.Partitions())
	require.Equal(t, "region", res.Column)
	require.Same(t, src, res.Source)

	keys := res.Mapping.Keys()
	require.Equal(t, "Africa", keys[0].Components()[0])
	require.Equal(t, "Asia", keys[1].Components()[0])
	require.Equal(t, "Europe", keys[2].Components()[0])

	africa := res.Mapping.Rows(keys[0])
	require.Equal(t, []uint32{0, 2}, africa.ToArray())
}

func TestStringColumnPrefix(t *testing.T) {
	src := pointSource(t,
		[]string{"DE-Berlin", "DE-Hamburg", "FR-Paris"},
		[]orb.Point{{13, 52}, {10, 53}, {2, 48}},
	)

	s, err := NewStringColumn("region", WithPrefixLength(2))
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 2, res.Mapping.Partitions())

	keys := res.Mapping.Keys()
	require.Equal(t, "DE", keys[0].Components()[0])
	require.Equal(t, "FR", keys[1].Components()[0])
}

func TestStringColumnMissingColumn(t *testing.T) {
	src := pointSource(t, []string{"Africa"}, []orb.Point{{0, 0}})

	s, err := NewStringColumn("nope")
	require.NoError(t, err)

	_, err = s.Plan(context.Background(), src)
	var unknown *ErrUnknownPartitionColumn
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "nope", unknown.Column)
}

func TestStringColumnEmptyInput(t *testing.T) {
	src := pointSource(t, nil, nil)

	s, err := NewStringColumn("region")
	require.NoError(t, err)

	_, err = s.Plan(context.Background(), src)
	require.ErrorIs(t, err, ErrEmptyInput)
}
