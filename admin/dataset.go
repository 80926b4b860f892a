// Package admin manages named administrative-boundary reference datasets: a
// registry of known datasets, remote fetchers, and a verified on-disk cache
// shared across processes.
package admin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SourceKind selects the fetcher used for a dataset's remote location.
type SourceKind int

const (
	// SourceS3 is an AWS-hosted bucket fetched with the AWS SDK.
	SourceS3 SourceKind = iota
	// SourceMinIO is an S3-compatible endpoint (e.g. source.coop) fetched
	// with the MinIO client.
	SourceMinIO
	// SourceHTTP is a plain HTTPS URL.
	SourceHTTP
)

// Source locates a dataset's single boundary file. Bucket and Key apply to
// S3 and MinIO sources; URL applies to HTTP sources; Endpoint and Region
// qualify MinIO and S3 respectively.
type Source struct {
	Kind     SourceKind
	Bucket   string
	Key      string
	Endpoint string
	Region   string
	URL      string
}

// Level maps a hierarchy level name to the feature property carrying its
// label in the boundary file.
type Level struct {
	Name     string
	Property string
}

// Dataset describes one named boundary dataset: where to fetch it, the
// version tag forming its cache path, and the ordered level hierarchy it
// exposes. SubtypeProperty/Subtypes optionally restrict which features are
// loaded (datasets that mix division kinds in one file).
type Dataset struct {
	Name            string
	Version         string
	Source          Source
	Filename        string
	Levels          []Level
	SubtypeProperty string
	Subtypes        []string
}

// LevelNames returns the dataset's level names in hierarchy order.
func (d Dataset) LevelNames() []string {
	names := make([]string, len(d.Levels))
	for i, l := range d.Levels {
		names[i] = l.Name
	}
	return names
}

// ErrUnknownDataset indicates a dataset name absent from the registry.
type ErrUnknownDataset struct {
	Name      string
	Available []string
}

func (e *ErrUnknownDataset) Error() string {
	return fmt.Sprintf("unknown dataset %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ErrUnknownLevel indicates a requested level the dataset does not expose.
type ErrUnknownLevel struct {
	Dataset   string
	Level     string
	Available []string
}

func (e *ErrUnknownLevel) Error() string {
	return fmt.Sprintf("dataset %q has no level %q (available: %s)", e.Dataset, e.Level, strings.Join(e.Available, ", "))
}

// Registry holds the known datasets. The zero value is unusable; use
// NewRegistry, which seeds the built-in datasets.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]Dataset
}

// NewRegistry returns a registry seeded with the built-in gaul and overture
// datasets.
func NewRegistry() *Registry {
	r := &Registry{datasets: make(map[string]Dataset)}
	r.Register(Dataset{
		Name:    "gaul",
		Version: "2024",
		Source: Source{
			Kind:     SourceMinIO,
			Endpoint: "data.source.coop",
			Bucket:   "fiboa",
			Key:      "gaul/gaul-levels.geojson",
		},
		Filename: "gaul-levels.geojson",
		Levels: []Level{
			{Name: "continent", Property: "continent"},
			{Name: "country", Property: "name0"},
			{Name: "department", Property: "name2"},
		},
	})
	r.Register(Dataset{
		Name:    "overture",
		Version: "2025-01",
		Source: Source{
			Kind:   SourceS3,
			Bucket: "overturemaps-us-west-2",
			Key:    "release/divisions/division_area.geojson",
			Region: "us-west-2",
		},
		Filename: "division_area.geojson",
		Levels: []Level{
			{Name: "country", Property: "country"},
			{Name: "region", Property: "region"},
		},
		SubtypeProperty: "subtype",
		Subtypes:        []string{"country", "region"},
	})
	return r
}

// Register adds or replaces a dataset. Custom datasets use this to bring
// their own source and level mapping.
func (r *Registry) Register(d Dataset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[d.Name] = d
}

// Lookup resolves a dataset by name.
func (r *Registry) Lookup(name string) (Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.datasets[name]
	if !ok {
		return Dataset{}, &ErrUnknownDataset{Name: name, Available: r.namesLocked()}
	}
	return d, nil
}

// Names lists registered dataset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.datasets))
	for n := range r.datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateLevels checks that every requested level exists on the dataset,
// preserving request order. An empty request defaults to all dataset levels.
func (r *Registry) ValidateLevels(name string, levels []string) ([]Level, error) {
	d, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return d.Levels, nil
	}
	byName := make(map[string]Level, len(d.Levels))
	for _, l := range d.Levels {
		byName[l.Name] = l
	}
	out := make([]Level, 0, len(levels))
	for _, want := range levels {
		l, ok := byName[want]
		if !ok {
			return nil, &ErrUnknownLevel{Dataset: d.Name, Level: want, Available: d.LevelNames()}
		}
		out = append(out, l)
	}
	return out, nil
}
