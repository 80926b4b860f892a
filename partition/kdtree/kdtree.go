// Package kdtree implements the balanced spatial partitioner: a KD-tree over
// row centroids split recursively at the coordinate median until a
// power-of-two number of leaves is reached.
//
// Nodes live in a flat arena indexed by position in a complete binary tree
// (children of node i are 2i+1 and 2i+2), so parallel construction needs no
// ownership links and the finished tree is immutable and safe for concurrent
// reads.
package kdtree

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cholmes/geopartition/geom"
)

// DefaultOptions holds the default build parameters.
var DefaultOptions = Options{
	TargetRowsPerPartition: 120_000,
	SampleSize:             1024,
	Seed:                   1,
}

// Options configure a KD-tree build.
type Options struct {
	// TargetRowsPerPartition sizes the tree when Partitions is zero: the
	// partition count is n/target rounded up to the next power of two.
	TargetRowsPerPartition int

	// Partitions is the explicit partition count. Must be a power of two;
	// the recursion is strictly binary in both exact and approximate mode.
	Partitions int

	// Exact selects true-median splits: deterministic and reproducible for
	// the same input ordering, at full-sort cost per level.
	Exact bool

	// SampleSize is the reservoir size for approximate median estimation.
	SampleSize int

	// Seed fixes the sampling sequence in approximate mode. Runs with the
	// same seed and input are reproducible; different seeds are only
	// statistically similar.
	Seed int64

	// MinLeafRows stops recursion early on subsets that could not be split
	// without dropping below this floor. Zero disables the floor.
	MinLeafRows int
}

// ErrInvalidPartitionCount indicates a requested partition count that is not
// a power of two.
type ErrInvalidPartitionCount struct {
	Count int
}

func (e *ErrInvalidPartitionCount) Error() string {
	return fmt.Sprintf("partition count %d is not a power of two", e.Count)
}

// ErrInsufficientRows indicates fewer rows than requested partitions. It
// names the largest feasible power-of-two count for the input.
type ErrInsufficientRows struct {
	Rows       int
	Partitions int
	Feasible   int
}

func (e *ErrInsufficientRows) Error() string {
	return fmt.Sprintf("%d rows cannot fill %d partitions (maximum feasible power of two: %d)",
		e.Rows, e.Partitions, e.Feasible)
}

type node struct {
	axis  uint8   // 0 = x, 1 = y
	split float64 // coordinate separating left (<=) from right (>)
	leaf  int32   // leaf id, -1 for internal nodes
}

// Tree is an immutable balanced KD-tree over a point set.
type Tree struct {
	nodes  []node
	depth  int
	leaves int

	// order is a permutation of point indices; each leaf owns a contiguous
	// range of it.
	order  []uint32
	ranges []leafRange // indexed by leaf id
	assign []int32     // leaf id per input point index
}

type leafRange struct {
	start, end int32
}

// Build constructs the tree for the given points.
//
// Leaf ids are assigned in depth-first traversal order, left subtree before
// right at every level; callers may rely on that ordering for reproducible
// partition ids in exact mode.
func Build(ctx context.Context, points []geom.Point, o Options) (*Tree, error) {
	n := len(points)
	if o.TargetRowsPerPartition <= 0 {
		o.TargetRowsPerPartition = DefaultOptions.TargetRowsPerPartition
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultOptions.SampleSize
	}

	p := o.Partitions
	if p != 0 {
		if p < 1 || bits.OnesCount(uint(p)) != 1 {
			return nil, &ErrInvalidPartitionCount{Count: p}
		}
	} else {
		p = nextPowerOfTwo(int(math.Round(float64(n) / float64(o.TargetRowsPerPartition))))
	}
	if n < p {
		return nil, &ErrInsufficientRows{Rows: n, Partitions: p, Feasible: prevPowerOfTwo(n)}
	}

	depth := bits.TrailingZeros(uint(p))
	t := &Tree{
		nodes:  make([]node, (1<<(depth+1))-1),
		depth:  depth,
		order:  make([]uint32, n),
		assign: make([]int32, n),
	}
	for i := range t.nodes {
		t.nodes[i].leaf = -1
	}
	for i := range t.order {
		t.order[i] = uint32(i)
	}

	b := &builder{tree: t, points: points, opts: o}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	b.split(gctx, g, 0, 0, t.order)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Cancellation makes split bail out without marking leaves; the arena is
	// unfinished and must not be walked.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.numberLeaves()
	return t, nil
}

// Depth returns the tree depth (0 for a single partition).
func (t *Tree) Depth() int { return t.depth }

// Leaves returns the number of leaf partitions.
func (t *Tree) Leaves() int { return t.leaves }

// Assignment returns the leaf id for one input point index.
func (t *Tree) Assignment(i int) int32 { return t.assign[i] }

// LeafRows returns the input point indices owned by one leaf, in input order.
func (t *Tree) LeafRows(leaf int32) []uint32 {
	r := t.ranges[leaf]
	rows := make([]uint32, r.end-r.start)
	copy(rows, t.order[r.start:r.end])
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
	return rows
}

// Locate descends the tree for a point that was not part of the build, e.g.
// to assign late-arriving rows to existing partitions. Points on a split
// plane go left, matching the <=/> convention used by the build.
func (t *Tree) Locate(p geom.Point) int32 {
	i := 0
	for {
		nd := t.nodes[i]
		if nd.leaf >= 0 {
			return nd.leaf
		}
		c := p.X
		if nd.axis == 1 {
			c = p.Y
		}
		if c <= nd.split {
			i = 2*i + 1
		} else {
			i = 2*i + 2
		}
	}
}

type builder struct {
	tree   *Tree
	points []geom.Point
	opts   Options
}

// split recursively partitions subset (a slice of t.order) for the node at
// arena position idx and depth d. Subtrees are disjoint slices, so the two
// recursive calls share no mutable state and may run concurrently.
func (b *builder) split(ctx context.Context, g *errgroup.Group, idx, d int, subset []uint32) {
	t := b.tree
	if d == t.depth || (b.opts.MinLeafRows > 0 && len(subset)/2 < b.opts.MinLeafRows) {
		t.nodes[idx].leaf = 0 // marked; real ids assigned by numberLeaves
		for _, pt := range subset {
			// Record the arena slot; numberLeaves rewrites to leaf ids.
			t.assign[pt] = int32(idx)
		}
		return
	}

	if err := ctx.Err(); err != nil {
		return
	}

	axis := uint8(d % 2)
	mid := (len(subset) + 1) / 2 // left gets the extra row on odd counts

	var splitVal float64
	if b.opts.Exact {
		splitVal = b.exactSplit(subset, axis, mid)
	} else {
		splitVal = b.approxSplit(subset, axis, idx)
	}
	left, right := b.partition(subset, axis, splitVal, mid)

	t.nodes[idx].axis = axis
	t.nodes[idx].split = splitVal

	// TryGo rather than Go: a blocked spawn inside a worker could deadlock
	// the group once the limit is reached, so fall back to inline recursion.
	l, r := 2*idx+1, 2*idx+2
	spawned := len(left) > 4096 && g.TryGo(func() error {
		b.split(ctx, g, l, d+1, left)
		return ctx.Err()
	})
	if !spawned {
		b.split(ctx, g, l, d+1, left)
	}
	b.split(ctx, g, r, d+1, right)
}

// exactSplit sorts the subset by (coordinate, row ref) and returns the
// coordinate of the last row in the left half. Sorting here also performs
// the partition: after it, subset[:mid] is exactly the left half.
func (b *builder) exactSplit(subset []uint32, axis uint8, mid int) float64 {
	pts := b.points
	sort.Slice(subset, func(i, j int) bool {
		a, c := coord(pts[subset[i]], axis), coord(pts[subset[j]], axis)
		if a != c {
			return a < c
		}
		return subset[i] < subset[j] // row-ref tie-break keeps the split stable
	})
	return coord(pts[subset[mid-1]], axis)
}

// partition splits subset into left/right around splitVal. In exact mode the
// subset is already ordered and the cut is positional; in approximate mode
// rows equal to the split value fill the left half in row-ref order first.
func (b *builder) partition(subset []uint32, axis uint8, splitVal float64, mid int) (left, right []uint32) {
	if b.opts.Exact {
		return subset[:mid], subset[mid:]
	}

	pts := b.points
	buf := make([]uint32, 0, len(subset))
	var ties, above []uint32
	for _, pt := range subset {
		switch c := coord(pts[pt], axis); {
		case c < splitVal:
			buf = append(buf, pt)
		case c == splitVal:
			ties = append(ties, pt)
		default:
			above = append(above, pt)
		}
	}
	// Ties go left until the left half reaches its target size.
	for _, pt := range ties {
		if len(buf) < mid {
			buf = append(buf, pt)
		} else {
			above = append(above, pt)
		}
	}
	n := copy(subset, buf)
	copy(subset[n:], above)
	return subset[:n], subset[n:]
}

func coord(p geom.Point, axis uint8) float64 {
	if axis == 1 {
		return p.Y
	}
	return p.X
}

// numberLeaves assigns sequential leaf ids in DFS order (left before right)
// and resolves per-point assignments from arena slots to leaf ids. Doing
// this after the parallel build keeps the id contract independent of
// goroutine scheduling.
func (t *Tree) numberLeaves() {
	slotToLeaf := make(map[int32]int32)
	var next int32
	var walk func(idx int)
	walk = func(idx int) {
		if t.nodes[idx].leaf >= 0 {
			t.nodes[idx].leaf = next
			slotToLeaf[int32(idx)] = next
			next++
			return
		}
		walk(2*idx + 1)
		walk(2*idx + 2)
	}
	walk(0)
	t.leaves = int(next)

	counts := make([]int32, t.leaves)
	for i, slot := range t.assign {
		leaf := slotToLeaf[slot]
		t.assign[i] = leaf
		counts[leaf]++
	}

	// Rebuild the per-leaf ranges over a freshly packed order array.
	t.ranges = make([]leafRange, t.leaves)
	var off int32
	for leaf, c := range counts {
		t.ranges[leaf] = leafRange{start: off, end: off}
		off += c
	}
	for i, leaf := range t.assign {
		r := &t.ranges[leaf]
		t.order[r.end] = uint32(i)
		r.end++
	}
}

func nextPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

func prevPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << (bits.Len(uint(v)) - 1)
}
