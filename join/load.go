package join

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cholmes/geopartition/admin"
	"github.com/cholmes/geopartition/geom"
)

// Load reads a GeoJSON boundary file and builds the containment index for
// the requested levels. Feature order in the file fixes the tie-break
// order. Features filtered out by the dataset's subtype policy, and
// features without area geometry, are skipped.
func Load(path string, d admin.Dataset, levels []admin.Level) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, d, levels)
}

// Read is Load over an arbitrary reader.
func Read(r io.Reader, d admin.Dataset, levels []admin.Level) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary file for %q: %w", d.Name, err)
	}

	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.Name
	}

	// Datasets mixing division kinds in one file mark each feature with a
	// subtype; only features of the deepest requested level carry the full
	// label hierarchy, so restrict the load to those.
	wantSubtype := ""
	if d.SubtypeProperty != "" && len(levels) > 0 {
		deepest := levels[len(levels)-1].Name
		if slices.Contains(d.Subtypes, deepest) {
			wantSubtype = deepest
		}
	}

	records := make([]BoundaryRecord, 0, len(fc.Features))
	for _, feat := range fc.Features {
		if wantSubtype != "" && feat.Properties.MustString(d.SubtypeProperty, "") != wantSubtype {
			continue
		}
		switch feat.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}

		labels := make([]string, len(levels))
		for i, l := range levels {
			labels[i] = feat.Properties.MustString(l.Property, Unknown)
		}
		b := feat.Geometry.Bound()
		records = append(records, BoundaryRecord{
			Geometry: feat.Geometry,
			BBox:     geom.BoundingBox{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]},
			Labels:   labels,
		})
	}

	return NewIndex(names, records), nil
}
