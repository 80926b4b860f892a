package geom

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidGeometry indicates a nil or degenerate input geometry.
//
// The offending row (if known) is carried by the caller, not here.
type ErrInvalidGeometry struct {
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

// Centroid returns the representative point of a geometry.
//
// For areal geometries this is the area centroid; for points it is the point
// itself. Fails on nil input rather than silently substituting the origin.
func Centroid(g orb.Geometry) (Point, error) {
	if g == nil {
		return Point{}, &ErrInvalidGeometry{Reason: "nil geometry"}
	}
	c, _ := planar.CentroidArea(g)
	return Point{X: c.X(), Y: c.Y()}, nil
}

// BBox returns the bounding box of a geometry.
func BBox(g orb.Geometry) (BoundingBox, error) {
	if g == nil {
		return BoundingBox{}, &ErrInvalidGeometry{Reason: "nil geometry"}
	}
	b := g.Bound()
	bb := BoundingBox{MinX: b.Min.X(), MinY: b.Min.Y(), MaxX: b.Max.X(), MaxY: b.Max.Y()}
	if !bb.Valid() {
		return BoundingBox{}, &ErrInvalidGeometry{Reason: "inverted bound"}
	}
	return bb, nil
}
