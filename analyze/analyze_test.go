package analyze

import (
	"context"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/cholmes/geopartition/partition"
	"github.com/cholmes/geopartition/table"
)

// mappingOf plans a string-column mapping whose partition sizes follow
// counts: partition i gets counts[i] rows.
func mappingOf(t *testing.T, counts []int) *partition.Mapping {
	t.Helper()

	var records []table.Record
	for i, c := range counts {
		for j := 0; j < c; j++ {
			records = append(records, table.Record{
				"geometry": orb.Point{float64(j), float64(i)},
				"bucket":   fmt.Sprintf("p%03d", i),
			})
		}
	}
	src, err := table.NewMemorySource("geometry", []string{"geometry", "bucket"}, records)
	require.NoError(t, err)

	s, err := partition.NewStringColumn("bucket")
	require.NoError(t, err)
	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	return res.Mapping
}

func TestAnalyzeBalanced(t *testing.T) {
	m := mappingOf(t, []int{100, 100, 100, 100})

	r := Analyze(m, Thresholds{})
	require.False(t, r.Blocked())
	require.Empty(t, r.Warnings)

	require.Equal(t, 4, r.Stats.Partitions)
	require.EqualValues(t, 100, r.Stats.Min)
	require.EqualValues(t, 100, r.Stats.Max)
	require.InDelta(t, 100, r.Stats.Mean, 1e-9)
	require.InDelta(t, 100, r.Stats.Median, 1e-9)
	require.InDelta(t, 0, r.Stats.CV, 1e-9)
}

func TestAnalyzeSkewedDistribution(t *testing.T) {
	// One partition of 99 rows plus nine singletons: uneven distribution
	// and singleton warnings both fire.
	counts := []int{99, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	m := mappingOf(t, counts)

	r := Analyze(m, Thresholds{})
	require.True(t, r.Blocked())

	kinds := make(map[WarningKind]bool)
	for _, w := range r.Warnings {
		kinds[w.Kind] = true
	}
	require.True(t, kinds[WarnUneven])
	require.True(t, kinds[WarnSingletons])
	require.True(t, kinds[WarnSmallPartitions])
}

func TestAnalyzeSmallPartitions(t *testing.T) {
	// Six of ten partitions below the floor of 10 rows, none singleton,
	// spread too mild for the CV limit.
	m := mappingOf(t, []int{20, 20, 20, 20, 5, 5, 5, 5, 5, 5})

	r := Analyze(m, Thresholds{})
	require.True(t, r.Blocked())
	require.Len(t, r.Warnings, 1)
	require.Equal(t, WarnSmallPartitions, r.Warnings[0].Kind)
}

func TestAnalyzeThresholdOverrides(t *testing.T) {
	m := mappingOf(t, []int{20, 20, 20, 5, 5, 5})

	// Default fraction (0.5) tolerates 3 of 6 small partitions.
	require.False(t, Analyze(m, Thresholds{}).Blocked())

	// A stricter fraction flags the same mapping.
	r := Analyze(m, Thresholds{SmallFraction: 0.25})
	require.True(t, r.Blocked())
	require.Equal(t, WarnSmallPartitions, r.Warnings[0].Kind)
}

func TestAnalyzeSizeHint(t *testing.T) {
	m := mappingOf(t, []int{50, 50, 50, 50})

	r := AnalyzeWithSizeHint(m, Thresholds{}, 4<<20)
	require.EqualValues(t, 1<<20, r.EstimatedBytesPerPartition)
}

func TestAnalyzeMedianEvenCount(t *testing.T) {
	m := mappingOf(t, []int{10, 20, 30, 40})

	r := Analyze(m, Thresholds{})
	require.InDelta(t, 25, r.Stats.Median, 1e-9)
	require.EqualValues(t, 10, r.Stats.Min)
	require.EqualValues(t, 40, r.Stats.Max)
}
