package partition

import (
	"context"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/cholmes/geopartition/partition/kdtree"
	"github.com/cholmes/geopartition/table"
)

func gridSource(t *testing.T, n int) table.Source {
	t.Helper()

	records := make([]table.Record, n)
	for i := 0; i < n; i++ {
		records[i] = table.Record{
			"geometry": orb.Point{float64(i % 37), float64(i % 23)},
			"region":   fmt.Sprintf("r%d", i%3),
		}
	}
	src, err := table.NewMemorySource("geometry", []string{"geometry", "region"}, records)
	require.NoError(t, err)
	return src
}

func TestKDTreePlanBalanced(t *testing.T) {
	const n, p = 1000, 8
	src := gridSource(t, n)

	s, err := NewKDTree(WithPartitions(p), WithExactMedians())
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, res.Mapping.Validate(n))
	require.Equal(t, p, res.Mapping.Partitions())

	for _, c := range res.Mapping.RowCounts() {
		require.Contains(t, []uint64{n / p, n/p + 1}, c)
	}

	// Leaf assignments land in the working copy, zero-padded.
	require.True(t, res.Source.HasColumn(DefaultKDColumn))
	v, err := res.Source.StringValue(0, DefaultKDColumn)
	require.NoError(t, err)
	require.Len(t, v, 5)
}

func TestKDTreePlanDeterministicExact(t *testing.T) {
	src := gridSource(t, 512)

	plan := func() []uint64 {
		s, err := NewKDTree(WithPartitions(16), WithExactMedians())
		require.NoError(t, err)
		res, err := s.Plan(context.Background(), src)
		require.NoError(t, err)
		return res.Mapping.RowCounts()
	}

	first := plan()
	second := plan()
	require.Equal(t, first, second)
}

func TestKDTreePlanValidation(t *testing.T) {
	src := gridSource(t, 100)

	s, err := NewKDTree(WithPartitions(12))
	require.NoError(t, err)
	_, err = s.Plan(context.Background(), src)
	var invalid *kdtree.ErrInvalidPartitionCount
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 12, invalid.Count)

	s, err = NewKDTree(WithPartitions(256))
	require.NoError(t, err)
	_, err = s.Plan(context.Background(), src)
	var insufficient *kdtree.ErrInsufficientRows
	require.ErrorAs(t, err, &insufficient)
}

func TestKDTreePlanEmptyInput(t *testing.T) {
	src := gridSource(t, 0)

	s, err := NewKDTree(WithPartitions(4))
	require.NoError(t, err)

	_, err = s.Plan(context.Background(), src)
	require.ErrorIs(t, err, ErrEmptyInput)
}
