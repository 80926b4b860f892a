package partition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cholmes/geopartition/table"
)

func TestKeyComponents(t *testing.T) {
	require.Equal(t, []string{"Africa"}, StringKey("Africa").Components())
	require.Equal(t, []string{"00042"}, LeafKey(42).Components())
	require.Equal(t, []string{"A", "A-north"}, AdminKey([]string{"A", "A-north"}).Components())

	// Fixed-width rendering keeps lexical order equal to numeric order.
	require.Less(t, LeafKey(2).String(), LeafKey(10).String())
	require.Less(t, H3Key(0x85283473fffffff).canon(), H3Key(0x85283477fffffff).canon())
}

func TestMappingCanonicalOrder(t *testing.T) {
	m := NewMapping([]string{"region"})
	m.add(StringKey("Europe"), 0)
	m.add(StringKey("Africa"), 1)
	m.add(StringKey("Asia"), 2)
	m.add(StringKey("Africa"), 3)

	keys := m.Keys()
	require.Equal(t, []string{"Africa"}, keys[0].Components())
	require.Equal(t, []string{"Asia"}, keys[1].Components())
	require.Equal(t, []string{"Europe"}, keys[2].Components())

	require.Equal(t, []uint64{2, 1, 1}, m.RowCounts())
	require.EqualValues(t, 4, m.TotalRows())
}

func TestMappingRowsInsertionOrder(t *testing.T) {
	m := NewMapping([]string{"region"})
	for _, ref := range []table.RowRef{5, 1, 3} {
		m.add(StringKey("A"), ref)
	}
	// Roaring iteration is ascending, matching source order for refs.
	require.Equal(t, []uint32{1, 3, 5}, m.Rows(StringKey("A")).ToArray())
}

func TestMappingValidate(t *testing.T) {
	m := NewMapping([]string{"region"})
	m.add(StringKey("A"), 0)
	m.add(StringKey("B"), 1)
	m.add(StringKey("B"), 2)

	require.NoError(t, m.Validate(3))

	// A missing row breaks total coverage.
	require.Error(t, m.Validate(4))

	// A row shared by two partitions breaks disjointness.
	m.add(StringKey("A"), 2)
	require.Error(t, m.Validate(3))
}
