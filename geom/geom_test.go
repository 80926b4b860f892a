package geom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox_ContainsIntersects(t *testing.T) {
	b := BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 5}
	require.True(t, b.Valid())
	require.True(t, b.Contains(Point{X: 5, Y: 2}))
	require.True(t, b.Contains(Point{X: 0, Y: 0}), "edges are inclusive")
	require.False(t, b.Contains(Point{X: 11, Y: 2}))

	require.True(t, b.Intersects(BoundingBox{MinX: 9, MinY: 4, MaxX: 20, MaxY: 20}))
	require.True(t, b.Intersects(BoundingBox{MinX: 10, MinY: 5, MaxX: 20, MaxY: 20}), "touching counts")
	require.False(t, b.Intersects(BoundingBox{MinX: 11, MinY: 6, MaxX: 20, MaxY: 20}))

	// Degenerate (point) boxes are valid.
	p := BoundingBox{MinX: 1, MinY: 1, MaxX: 1, MaxY: 1}
	require.True(t, p.Valid())
	require.True(t, p.Contains(Point{X: 1, Y: 1}))
}

func TestExtent(t *testing.T) {
	_, ok := Extent(nil)
	require.False(t, ok)

	b, ok := Extent([]Point{{X: 3, Y: -1}, {X: -2, Y: 4}, {X: 0, Y: 0}})
	require.True(t, ok)
	require.Equal(t, BoundingBox{MinX: -2, MinY: -1, MaxX: 3, MaxY: 4}, b)
}

func TestCentroid(t *testing.T) {
	// Unit square centered on (0.5, 0.5).
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	c, err := Centroid(square)
	require.NoError(t, err)
	require.InDelta(t, 0.5, c.X, 1e-9)
	require.InDelta(t, 0.5, c.Y, 1e-9)

	// Point geometry is its own centroid.
	c, err = Centroid(orb.Point{3, 4})
	require.NoError(t, err)
	require.Equal(t, Point{X: 3, Y: 4}, c)

	_, err = Centroid(nil)
	var ig *ErrInvalidGeometry
	require.ErrorAs(t, err, &ig)
}

func TestBBox(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {2, 0}, {2, 3}, {0, 3}, {0, 0}}}
	b, err := BBox(square)
	require.NoError(t, err)
	require.Equal(t, BoundingBox{MinX: 0, MinY: 0, MaxX: 2, MaxY: 3}, b)

	_, err = BBox(nil)
	require.Error(t, err)
}

func TestHilbertPosition_Locality(t *testing.T) {
	extent := BoundingBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

	// Identical points share a position; distinct corners do not.
	a := HilbertPosition(Point{X: 0.1, Y: 0.1}, extent)
	b := HilbertPosition(Point{X: 0.1, Y: 0.1}, extent)
	require.Equal(t, a, b)

	c := HilbertPosition(Point{X: 0.9, Y: 0.9}, extent)
	require.NotEqual(t, a, c)

	// Near neighbors are closer along the curve than far apart points.
	near := HilbertPosition(Point{X: 0.1001, Y: 0.1001}, extent)
	far := HilbertPosition(Point{X: 0.9, Y: 0.1}, extent)
	require.Less(t, diff(a, near), diff(a, far))

	// Out-of-extent points clamp instead of wrapping.
	require.Equal(t,
		HilbertPosition(Point{X: -5, Y: -5}, extent),
		HilbertPosition(Point{X: 0, Y: 0}, extent))
}

func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
