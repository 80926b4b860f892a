package join

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/cholmes/geopartition/admin"
	"github.com/cholmes/geopartition/geom"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func record(labels []string, p orb.Polygon) BoundaryRecord {
	b := p.Bound()
	return BoundaryRecord{
		Geometry: p,
		BBox:     geom.BoundingBox{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]},
		Labels:   labels,
	}
}

func TestIndexLocate(t *testing.T) {
	x := NewIndex([]string{"country", "region"}, []BoundaryRecord{
		record([]string{"A", "A-north"}, square(0, 0, 10, 10)),
		record([]string{"B", "B-west"}, square(20, 0, 30, 10)),
	})

	labels, matched := x.Locate(geom.Point{X: 5, Y: 5})
	require.True(t, matched)
	require.Equal(t, []string{"A", "A-north"}, labels)

	labels, matched = x.Locate(geom.Point{X: 25, Y: 5})
	require.True(t, matched)
	require.Equal(t, []string{"B", "B-west"}, labels)
}

func TestIndexLocateUnmatched(t *testing.T) {
	x := NewIndex([]string{"country", "region"}, []BoundaryRecord{
		record([]string{"A", "A-north"}, square(0, 0, 10, 10)),
	})

	// Ocean point: sentinel at every level, never an error.
	labels, matched := x.Locate(geom.Point{X: 100, Y: 100})
	require.False(t, matched)
	require.Equal(t, []string{Unknown, Unknown}, labels)
}

func TestIndexOverlapTieBreak(t *testing.T) {
	// Overlapping squares: the earliest-loaded record wins.
	x := NewIndex([]string{"zone"}, []BoundaryRecord{
		record([]string{"first"}, square(0, 0, 10, 10)),
		record([]string{"second"}, square(5, 0, 15, 10)),
	})

	labels, matched := x.Locate(geom.Point{X: 7, Y: 5})
	require.True(t, matched)
	require.Equal(t, []string{"first"}, labels)

	// Reversed load order flips the winner.
	y := NewIndex([]string{"zone"}, []BoundaryRecord{
		record([]string{"second"}, square(5, 0, 15, 10)),
		record([]string{"first"}, square(0, 0, 10, 10)),
	})
	labels, _ = y.Locate(geom.Point{X: 7, Y: 5})
	require.Equal(t, []string{"second"}, labels)
}

func TestIndexBBoxRejectsNonContained(t *testing.T) {
	// An L-shaped gap: point inside the bbox but outside the polygon.
	poly := orb.Polygon{orb.Ring{
		{0, 0}, {10, 0}, {10, 2}, {2, 2}, {2, 10}, {0, 10}, {0, 0},
	}}
	x := NewIndex([]string{"zone"}, []BoundaryRecord{record([]string{"L"}, poly)})

	_, matched := x.Locate(geom.Point{X: 8, Y: 8})
	require.False(t, matched)

	labels, matched := x.Locate(geom.Point{X: 1, Y: 8})
	require.True(t, matched)
	require.Equal(t, []string{"L"}, labels)
}

const boundaryGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"subtype": "region", "country": "A", "region": "A-north"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"subtype": "country", "country": "A"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[20,0],[20,20],[0,20],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"subtype": "region", "country": "B"},
      "geometry": {"type": "Polygon", "coordinates": [[[30,0],[40,0],[40,10],[30,10],[30,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"subtype": "region", "country": "C", "region": "C-east"},
      "geometry": {"type": "Point", "coordinates": [50, 50]}
    }
  ]
}`

func TestReadSubtypeFilter(t *testing.T) {
	d := admin.Dataset{
		Name:            "test",
		SubtypeProperty: "subtype",
		Subtypes:        []string{"country", "region"},
	}
	levels := []admin.Level{
		{Name: "country", Property: "country"},
		{Name: "region", Property: "region"},
	}

	x, err := Read(strings.NewReader(boundaryGeoJSON), d, levels)
	require.NoError(t, err)

	// Country-subtype and point-geometry features are skipped; the region
	// feature missing its region property keeps the sentinel label.
	require.Equal(t, 2, x.Len())
	require.Equal(t, []string{"country", "region"}, x.Levels())

	labels, matched := x.Locate(geom.Point{X: 5, Y: 5})
	require.True(t, matched)
	require.Equal(t, []string{"A", "A-north"}, labels)

	labels, matched = x.Locate(geom.Point{X: 35, Y: 5})
	require.True(t, matched)
	require.Equal(t, []string{"B", Unknown}, labels)
}
