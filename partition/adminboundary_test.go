package partition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/cholmes/geopartition/admin"
	"github.com/cholmes/geopartition/join"
)

const worldGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"country": "A", "region": "A-west"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"country": "A", "region": "A-east"},
      "geometry": {"type": "Polygon", "coordinates": [[[10,0],[20,0],[20,10],[10,10],[10,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"country": "B", "region": "B-main"},
      "geometry": {"type": "Polygon", "coordinates": [[[30,0],[40,0],[40,10],[30,10],[30,0]]]}
    }
  ]
}`

func worldCache(t *testing.T) *admin.Cache {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(worldGeoJSON))
	}))
	t.Cleanup(srv.Close)

	reg := admin.NewRegistry()
	reg.Register(admin.Dataset{
		Name:     "world",
		Version:  "v1",
		Source:   admin.Source{Kind: admin.SourceHTTP, URL: srv.URL},
		Filename: "world.geojson",
		Levels: []admin.Level{
			{Name: "country", Property: "country"},
			{Name: "region", Property: "region"},
		},
	})

	c, err := admin.OpenCache(t.TempDir(), admin.WithRegistry(reg))
	require.NoError(t, err)
	return c
}

func TestAdminBoundaryPlan(t *testing.T) {
	cache := worldCache(t)

	src := pointSource(t,
		[]string{"r0", "r1", "r2", "r3"},
		[]orb.Point{{5, 5}, {15, 5}, {35, 5}, {100, 50}},
	)

	s, err := NewAdminBoundary(cache, "world", []string{"country", "region"})
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, res.Mapping.Validate(4))
	require.Equal(t, 4, res.Mapping.Partitions())
	require.Empty(t, res.Column)

	keys := res.Mapping.Keys()
	require.Equal(t, []string{"A", "A-east"}, keys[0].Components())
	require.Equal(t, []string{"A", "A-west"}, keys[1].Components())
	require.Equal(t, []string{"B", "B-main"}, keys[2].Components())
	require.Equal(t, []string{join.Unknown, join.Unknown}, keys[3].Components())

	// Per-level label columns land in the working copy.
	require.True(t, res.Source.HasColumn("admin:country"))
	require.True(t, res.Source.HasColumn("admin:region"))
	country, err := res.Source.StringValue(2, "admin:country")
	require.NoError(t, err)
	require.Equal(t, "B", country)
	region, err := res.Source.StringValue(3, "admin:region")
	require.NoError(t, err)
	require.Equal(t, join.Unknown, region)

	require.NotNil(t, res.Join)
	require.Equal(t, 4, res.Join.Rows)
	require.Equal(t, 3, res.Join.Matched)
	require.Equal(t, 1, res.Join.Unmatched())
	// Countries: A, B, unknown. Regions: A-west, A-east, B-main, unknown.
	require.Equal(t, []int{3, 4}, res.Join.UniqueLabels)
}

func TestAdminBoundarySingleLevel(t *testing.T) {
	cache := worldCache(t)

	src := pointSource(t,
		[]string{"r0", "r1"},
		[]orb.Point{{5, 5}, {15, 5}},
	)

	s, err := NewAdminBoundary(cache, "world", []string{"country"})
	require.NoError(t, err)

	res, err := s.Plan(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, res.Mapping.Partitions())
	require.Equal(t, []string{"A"}, res.Mapping.Keys()[0].Components())
}

func TestAdminBoundaryValidation(t *testing.T) {
	cache := worldCache(t)

	_, err := NewAdminBoundary(cache, "nope", nil)
	var unknownDS *admin.ErrUnknownDataset
	require.ErrorAs(t, err, &unknownDS)

	_, err = NewAdminBoundary(cache, "world", []string{"province"})
	var unknownLvl *admin.ErrUnknownLevel
	require.ErrorAs(t, err, &unknownLvl)
	require.Equal(t, []string{"country", "region"}, unknownLvl.Available)
}
