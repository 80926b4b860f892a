package partition

import (
	"fmt"
	"strings"
)

// Kind discriminates the closed set of partition key variants.
type Kind int

const (
	// KindString keys partitions by a string column value or prefix.
	KindString Kind = iota
	// KindH3 keys partitions by an H3 cell id.
	KindH3
	// KindKDLeaf keys partitions by a KD-tree leaf id.
	KindKDLeaf
	// KindAdmin keys partitions by a hierarchy of admin region labels.
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindH3:
		return "h3"
	case KindKDLeaf:
		return "kdtree"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Key identifies one partition. Keys are stable for the lifetime of a single
// partition run and are never persisted across runs.
type Key struct {
	kind   Kind
	value  string
	cell   uint64
	leaf   uint32
	labels []string
}

// StringKey builds a string-column key.
func StringKey(v string) Key { return Key{kind: KindString, value: v} }

// H3Key builds an H3 cell key.
func H3Key(cell uint64) Key { return Key{kind: KindH3, cell: cell} }

// LeafKey builds a KD-tree leaf key.
func LeafKey(id uint32) Key { return Key{kind: KindKDLeaf, leaf: id} }

// AdminKey builds a hierarchical admin-label key; labels are ordered by the
// requested levels.
func AdminKey(labels []string) Key { return Key{kind: KindAdmin, labels: labels} }

// Kind returns the key variant.
func (k Key) Kind() Kind { return k.kind }

// Cell returns the H3 cell id for KindH3 keys.
func (k Key) Cell() uint64 { return k.cell }

// Leaf returns the leaf id for KindKDLeaf keys.
func (k Key) Leaf() uint32 { return k.leaf }

// Components returns the key's value per level, in level order. Non-admin
// keys have exactly one component.
func (k Key) Components() []string {
	switch k.kind {
	case KindString:
		return []string{k.value}
	case KindH3:
		return []string{fmt.Sprintf("%015x", k.cell)}
	case KindKDLeaf:
		return []string{fmt.Sprintf("%05d", k.leaf)}
	case KindAdmin:
		return k.labels
	default:
		return nil
	}
}

// canon is the canonical map/sort key. H3 cells and KD leaf ids are rendered
// fixed-width so lexical order equals numeric order.
func (k Key) canon() string {
	return strings.Join(k.Components(), "\x1f")
}

func (k Key) String() string {
	return strings.Join(k.Components(), "/")
}
