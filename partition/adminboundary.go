package partition

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cholmes/geopartition/admin"
	"github.com/cholmes/geopartition/geom"
	"github.com/cholmes/geopartition/join"
	"github.com/cholmes/geopartition/table"
)

// AdminColumnPrefix prefixes the per-level label columns appended to the
// working copy ("admin:country", "admin:region", ...).
const AdminColumnPrefix = "admin:"

// AdminBoundary partitions rows by administrative region membership: each
// row's centroid is located in a cached boundary dataset and keyed by the
// ordered tuple of labels at the requested levels.
type AdminBoundary struct {
	cache   *admin.Cache
	dataset admin.Dataset
	levels  []admin.Level
}

// NewAdminBoundary validates the dataset name and requested levels against
// the cache's registry up front. An empty level list requests every level
// the dataset exposes, in hierarchy order.
func NewAdminBoundary(cache *admin.Cache, dataset string, levels []string) (*AdminBoundary, error) {
	if cache == nil {
		return nil, fmt.Errorf("admin strategy: cache is required")
	}
	d, err := cache.Registry().Lookup(dataset)
	if err != nil {
		return nil, err
	}
	resolved, err := cache.Registry().ValidateLevels(dataset, levels)
	if err != nil {
		return nil, err
	}
	return &AdminBoundary{cache: cache, dataset: d, levels: resolved}, nil
}

// Name identifies the strategy variant.
func (s *AdminBoundary) Name() string { return "admin" }

// Levels returns the resolved level names in hierarchy order.
func (s *AdminBoundary) Levels() []string {
	names := make([]string, len(s.levels))
	for i, l := range s.levels {
		names[i] = l.Name
	}
	return names
}

// Plan downloads the boundary dataset if needed, builds the containment
// index, and joins every row centroid against it. Label columns for each
// level are appended to the working copy so the writer can emit them.
func (s *AdminBoundary) Plan(ctx context.Context, src table.Source) (*Result, error) {
	n := src.NumRows()
	if n == 0 {
		return nil, ErrEmptyInput
	}

	path, err := s.cache.EnsureAvailable(ctx, s.dataset.Name)
	if err != nil {
		return nil, err
	}
	idx, err := join.Load(path, s.dataset, s.levels)
	if err != nil {
		return nil, err
	}

	levelNames := s.Levels()
	columns := make([][]any, len(s.levels))
	for i := range columns {
		columns[i] = make([]any, n)
	}
	var matched atomic.Int64

	m, err := planRows(ctx, levelNames, n, func(ref table.RowRef) (Key, error) {
		g, err := src.Geometry(ref)
		if err != nil {
			return Key{}, err
		}
		p, err := geom.Centroid(g)
		if err != nil {
			return Key{}, err
		}
		labels, ok := idx.Locate(p)
		for i, label := range labels {
			columns[i][ref] = label
		}
		if ok {
			matched.Add(1)
		}
		return AdminKey(labels), nil
	})
	if err != nil {
		return nil, err
	}

	working := src
	for i, l := range s.levels {
		working, err = table.WithColumn(working, AdminColumnPrefix+l.Name, columns[i])
		if err != nil {
			return nil, err
		}
	}

	stats := &join.Stats{
		Rows:         n,
		Matched:      int(matched.Load()),
		UniqueLabels: uniqueLabelsPerLevel(m, len(s.levels)),
	}
	return &Result{Mapping: m, Source: working, Join: stats}, nil
}

func uniqueLabelsPerLevel(m *Mapping, levels int) []int {
	seen := make([]map[string]struct{}, levels)
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}
	for _, k := range m.Keys() {
		for i, label := range k.Components() {
			if i < levels {
				seen[i][label] = struct{}{}
			}
		}
	}
	counts := make([]int, levels)
	for i, s := range seen {
		counts[i] = len(s)
	}
	return counts
}
