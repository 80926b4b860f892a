// Package geom provides the planar primitives used by the partitioning
// engine: representative points, bounding boxes and the geometry accessor
// that derives them from source geometries.
package geom

// Point is a representative planar coordinate (x = longitude, y = latitude
// for geographic data).
type Point struct {
	X float64
	Y float64
}

// BoundingBox is an axis-aligned box. Min <= Max holds on both axes;
// degenerate (point) boxes are valid.
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Valid reports whether the box satisfies the min <= max invariant.
func (b BoundingBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Contains reports whether p lies inside the box (inclusive on all edges).
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Intersects reports whether the two boxes overlap (touching edges count).
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Union returns the smallest box covering both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		MinX: min(b.MinX, o.MinX),
		MinY: min(b.MinY, o.MinY),
		MaxX: max(b.MaxX, o.MaxX),
		MaxY: max(b.MaxY, o.MaxY),
	}
}

// Width returns the x extent of the box.
func (b BoundingBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the y extent of the box.
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Extent returns the bounding box of a point set. The second return value is
// false for an empty set.
func Extent(points []Point) (BoundingBox, bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	b := BoundingBox{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b.MinX = min(b.MinX, p.X)
		b.MinY = min(b.MinY, p.Y)
		b.MaxX = max(b.MaxX, p.X)
		b.MaxY = max(b.MaxY, p.Y)
	}
	return b, true
}
