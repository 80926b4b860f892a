package kdtree

import (
	"math/rand"
	"sort"
)

// approxSplit estimates the subset median by reservoir sampling. The RNG is
// seeded from the configured seed and the node's arena position, so a fixed
// seed reproduces the same estimates regardless of build parallelism.
func (b *builder) approxSplit(subset []uint32, axis uint8, idx int) float64 {
	k := b.opts.SampleSize
	if len(subset) <= k {
		return medianOf(b.coords(subset, axis))
	}

	mix := int64(uint64(idx+1) * 0x9e3779b97f4a7c15)
	rng := rand.New(rand.NewSource(b.opts.Seed ^ mix))
	sample := make([]float64, k)
	for i := 0; i < k; i++ {
		sample[i] = coord(b.points[subset[i]], axis)
	}
	for i := k; i < len(subset); i++ {
		if j := rng.Intn(i + 1); j < k {
			sample[j] = coord(b.points[subset[i]], axis)
		}
	}
	return medianOf(sample)
}

func (b *builder) coords(subset []uint32, axis uint8) []float64 {
	out := make([]float64, len(subset))
	for i, pt := range subset {
		out[i] = coord(b.points[pt], axis)
	}
	return out
}

func medianOf(vals []float64) float64 {
	sort.Float64s(vals)
	return vals[(len(vals)-1)/2]
}
