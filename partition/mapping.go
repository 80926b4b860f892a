package partition

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/cholmes/geopartition/table"
)

// Mapping is the result of planning: partition key to the set of rows it
// owns. Row sets are roaring bitmaps over RowRefs; refs are dense indices,
// so ascending bitmap iteration is source insertion order.
//
// Invariant: every input row appears in exactly one partition, and no
// partition is empty ([Mapping.Validate]).
type Mapping struct {
	levels  []string
	entries map[string]*entry
	sorted  []string // canonical keys, ascending; rebuilt on mutation
	rows    uint64
}

type entry struct {
	key Key
	set *roaring.Bitmap
}

// NewMapping creates an empty mapping whose key components are named by
// levels (one name per component; a single-column strategy has one level).
func NewMapping(levels []string) *Mapping {
	return &Mapping{
		levels:  levels,
		entries: make(map[string]*entry),
	}
}

// Levels returns the names of the key components.
func (m *Mapping) Levels() []string { return m.levels }

// Partitions returns the number of non-empty partitions.
func (m *Mapping) Partitions() int { return len(m.entries) }

// TotalRows returns the number of rows across all partitions.
func (m *Mapping) TotalRows() uint64 { return m.rows }

func (m *Mapping) add(k Key, ref table.RowRef) {
	c := k.canon()
	e, ok := m.entries[c]
	if !ok {
		e = &entry{key: k, set: roaring.New()}
		m.entries[c] = e
		m.sorted = nil
	}
	e.set.Add(uint32(ref))
	m.rows++
}

func (m *Mapping) merge(other map[string]*entry) {
	for c, oe := range other {
		e, ok := m.entries[c]
		if !ok {
			m.entries[c] = oe
			m.sorted = nil
			m.rows += oe.set.GetCardinality()
			continue
		}
		m.rows += oe.set.GetCardinality()
		e.set.Or(oe.set)
	}
}

func (m *Mapping) order() []string {
	if m.sorted == nil {
		m.sorted = make([]string, 0, len(m.entries))
		for c := range m.entries {
			m.sorted = append(m.sorted, c)
		}
		sort.Strings(m.sorted)
	}
	return m.sorted
}

// Keys returns the partition keys in canonical ascending order.
func (m *Mapping) Keys() []Key {
	keys := make([]Key, 0, len(m.entries))
	for _, c := range m.order() {
		keys = append(keys, m.entries[c].key)
	}
	return keys
}

// Rows returns the row set for a key, or nil if the partition is unknown.
// The returned bitmap is owned by the mapping; callers must not mutate it.
func (m *Mapping) Rows(k Key) *roaring.Bitmap {
	e, ok := m.entries[k.canon()]
	if !ok {
		return nil
	}
	return e.set
}

// RowCounts returns per-partition row counts in canonical key order.
func (m *Mapping) RowCounts() []uint64 {
	counts := make([]uint64, 0, len(m.entries))
	for _, c := range m.order() {
		counts = append(counts, m.entries[c].set.GetCardinality())
	}
	return counts
}

// Each calls fn for every partition in canonical key order, stopping at the
// first error.
func (m *Mapping) Each(fn func(k Key, rows *roaring.Bitmap) error) error {
	for _, c := range m.order() {
		e := m.entries[c]
		if err := fn(e.key, e.set); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks total disjoint coverage of n input rows: every row in
// exactly one partition, no empty partitions.
func (m *Mapping) Validate(n int) error {
	union := roaring.New()
	var sum uint64
	for _, e := range m.entries {
		card := e.set.GetCardinality()
		if card == 0 {
			return fmt.Errorf("partition %q is empty", e.key)
		}
		sum += card
		union.Or(e.set)
	}
	if sum != uint64(n) || union.GetCardinality() != uint64(n) {
		return fmt.Errorf("mapping covers %d rows (%d distinct) of %d input rows",
			sum, union.GetCardinality(), n)
	}
	if n > 0 && union.Maximum() != uint32(n-1) {
		return fmt.Errorf("mapping references row %d beyond input size %d", union.Maximum(), n)
	}
	return nil
}
