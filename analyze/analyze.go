// Package analyze computes distribution statistics over a partition mapping
// and classifies warnings before anything touches the output root.
package analyze

import (
	"fmt"
	"math"
	"sort"

	"github.com/cholmes/geopartition/partition"
)

// Default thresholds for warning classification.
const (
	// DefaultCVLimit flags uneven distributions: coefficient of variation
	// (stddev / mean) above this is a warning.
	DefaultCVLimit = 1.5

	// DefaultSmallRowFloor is the row count below which a partition counts
	// as small.
	DefaultSmallRowFloor = 10

	// DefaultSmallFraction flags mappings where more than this fraction of
	// partitions is small.
	DefaultSmallFraction = 0.5
)

// Stats describes the row-count distribution of one mapping. Derived on
// demand; never cached across mapping changes.
type Stats struct {
	Partitions int
	RowCounts  []uint64
	Min        uint64
	Max        uint64
	Mean       float64
	Median     float64
	CV         float64
}

// WarningKind classifies an analysis warning.
type WarningKind int

const (
	// WarnUneven: coefficient of variation above the limit.
	WarnUneven WarningKind = iota
	// WarnSmallPartitions: too large a fraction of partitions below the
	// row floor.
	WarnSmallPartitions
	// WarnSingletons: at least one partition holding exactly one row.
	WarnSingletons
)

func (k WarningKind) String() string {
	switch k {
	case WarnUneven:
		return "uneven-distribution"
	case WarnSmallPartitions:
		return "excess-small-partitions"
	case WarnSingletons:
		return "singleton-partitions"
	default:
		return fmt.Sprintf("warning(%d)", int(k))
	}
}

// Warning is one classified finding. Warnings are always reported, never
// silently suppressed; whether they block execution is the engine's call.
type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Thresholds configure warning classification. The zero value is replaced
// by the defaults field by field.
type Thresholds struct {
	CVLimit       float64
	SmallRowFloor uint64
	SmallFraction float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.CVLimit <= 0 {
		t.CVLimit = DefaultCVLimit
	}
	if t.SmallRowFloor == 0 {
		t.SmallRowFloor = DefaultSmallRowFloor
	}
	if t.SmallFraction <= 0 {
		t.SmallFraction = DefaultSmallFraction
	}
	return t
}

// Report bundles the stats with the warnings they triggered.
type Report struct {
	Stats    Stats
	Warnings []Warning

	// EstimatedBytesPerPartition is mean partition size given a source
	// byte-size hint, zero when no hint was provided.
	EstimatedBytesPerPartition uint64
}

// Blocked reports whether execution should abort absent an explicit force.
func (r Report) Blocked() bool { return len(r.Warnings) > 0 }

// Analyze computes stats and classifies warnings for a mapping. Pure: no
// side effects, usable on mappings never materialized to disk.
func Analyze(m *partition.Mapping, t Thresholds) Report {
	return AnalyzeWithSizeHint(m, t, 0)
}

// AnalyzeWithSizeHint is Analyze plus a per-partition byte-size estimate
// from a total source size hint.
func AnalyzeWithSizeHint(m *partition.Mapping, t Thresholds, sourceBytes uint64) Report {
	t = t.withDefaults()
	s := compute(m.RowCounts())

	r := Report{Stats: s}
	if s.Partitions > 0 && sourceBytes > 0 {
		r.EstimatedBytesPerPartition = sourceBytes / uint64(s.Partitions)
	}

	if s.CV > t.CVLimit {
		r.Warnings = append(r.Warnings, Warning{
			Kind:    WarnUneven,
			Message: fmt.Sprintf("coefficient of variation %.2f exceeds %.2f", s.CV, t.CVLimit),
		})
	}

	small := 0
	singletons := 0
	for _, c := range s.RowCounts {
		if c < t.SmallRowFloor {
			small++
		}
		if c == 1 {
			singletons++
		}
	}
	if s.Partitions > 0 {
		if frac := float64(small) / float64(s.Partitions); frac > t.SmallFraction {
			r.Warnings = append(r.Warnings, Warning{
				Kind: WarnSmallPartitions,
				Message: fmt.Sprintf("%d of %d partitions below %d rows (%.0f%%)",
					small, s.Partitions, t.SmallRowFloor, frac*100),
			})
		}
	}
	if singletons > 0 {
		r.Warnings = append(r.Warnings, Warning{
			Kind:    WarnSingletons,
			Message: fmt.Sprintf("%d partitions hold exactly one row", singletons),
		})
	}
	return r
}

func compute(counts []uint64) Stats {
	s := Stats{Partitions: len(counts), RowCounts: counts}
	if len(counts) == 0 {
		return s
	}

	s.Min, s.Max = counts[0], counts[0]
	var sum uint64
	for _, c := range counts {
		sum += c
		if c < s.Min {
			s.Min = c
		}
		if c > s.Max {
			s.Max = c
		}
	}
	s.Mean = float64(sum) / float64(len(counts))

	sorted := make([]uint64, len(counts))
	copy(sorted, counts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		s.Median = (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
	} else {
		s.Median = float64(sorted[mid])
	}

	var sq float64
	for _, c := range counts {
		d := float64(c) - s.Mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(counts)))
	if s.Mean > 0 {
		s.CV = stddev / s.Mean
	}
	return s
}
