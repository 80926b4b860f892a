// Package join builds a spatial containment index over administrative
// boundary polygons and resolves points to hierarchical region labels.
package join

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"

	"github.com/cholmes/geopartition/geom"
)

// Unknown is the sentinel label assigned at every level for points outside
// all boundaries. Rows are never dropped for being unmatched.
const Unknown = "unknown"

// BoundaryRecord is one boundary polygon with its labels, one per level in
// hierarchy order. Records are immutable once the index is built.
type BoundaryRecord struct {
	Geometry orb.Geometry
	BBox     geom.BoundingBox
	Labels   []string
}

// Index answers point-containment queries over a set of boundary records.
// Candidates come from a bounding-box R-tree; exact containment decides.
// Built once per run and safe for concurrent reads afterwards.
type Index struct {
	levels   []string
	records  []BoundaryRecord
	tree     rtree.RTreeG[int]
	sentinel []string
}

// NewIndex builds an index over records. Every record must carry exactly
// len(levels) labels. Records with non-area geometry are rejected by the
// loader before they get here.
func NewIndex(levels []string, records []BoundaryRecord) *Index {
	x := &Index{
		levels:   levels,
		records:  records,
		sentinel: make([]string, len(levels)),
	}
	for i := range x.sentinel {
		x.sentinel[i] = Unknown
	}
	for i, r := range records {
		x.tree.Insert(
			[2]float64{r.BBox.MinX, r.BBox.MinY},
			[2]float64{r.BBox.MaxX, r.BBox.MaxY},
			i,
		)
	}
	return x
}

// Levels returns the level names in hierarchy order.
func (x *Index) Levels() []string { return x.levels }

// Len returns the number of boundary records.
func (x *Index) Len() int { return len(x.records) }

// Locate resolves a point to its region labels, one per level. Points on a
// shared border match the boundary with the lowest record index: records
// keep their load order, so results do not depend on R-tree traversal
// order. Unmatched points get the Unknown sentinel at every level.
func (x *Index) Locate(p geom.Point) (labels []string, matched bool) {
	pt := orb.Point{p.X, p.Y}

	best := -1
	x.tree.Search(
		[2]float64{p.X, p.Y},
		[2]float64{p.X, p.Y},
		func(_, _ [2]float64, i int) bool {
			if best != -1 && i >= best {
				return true
			}
			if contains(x.records[i].Geometry, pt) {
				best = i
			}
			return true
		},
	)

	if best == -1 {
		return x.sentinel, false
	}
	return x.records[best].Labels, true
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	default:
		return false
	}
}

// Stats summarizes one join run: how many rows matched a boundary and how
// many distinct labels each level produced.
type Stats struct {
	Rows         int
	Matched      int
	UniqueLabels []int
}

// Unmatched is the count of rows that received the sentinel at every level.
func (s Stats) Unmatched() int { return s.Rows - s.Matched }
