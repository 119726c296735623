// Package octree implements the occupancy octree the derivation pipeline runs on. Every
// node stores an occupancy probability, the number of observations aggregated into it
// and a derived weight. Nodes live in a single arena and refer to each other by NodeID,
// and every node additionally carries the path code Key that locates it from the root.
//
// Each internal node has exactly eight children. Child i of a node covers the octant whose
// center is offset by +size/4 along x if bit 0 of i is set (-size/4 otherwise), and likewise
// for y with bit 1 and z with bit 2.
package octree

import (
	"fmt"
	"strings"
)

// NodeID indexes a node within its tree's arena.
type NodeID int32

// NoNode is the NodeID of a node that does not exist.
const NoNode NodeID = -1

// MaxSupportedDepth is the deepest level a Key can address.
const MaxSupportedDepth = 21

// Kind distinguishes raw input trees from augmented trees, whose weights are meaningful.
type Kind uint8

// The kinds of tree handled by the pipeline.
const (
	Raw = Kind(iota)
	Augmented
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case Augmented:
		return "augmented"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Key is the path code of a node: the child index taken at every level below the root,
// three bits per level with the deepest level in the lowest bits.
type Key struct {
	Depth uint8
	Path  uint64
}

// Child returns the key of child i.
func (k Key) Child(i int) Key {
	return Key{Depth: k.Depth + 1, Path: k.Path<<3 | uint64(i&7)}
}

// Parent returns the key of the parent. The root is its own parent.
func (k Key) Parent() Key {
	if k.Depth == 0 {
		return k
	}
	return Key{Depth: k.Depth - 1, Path: k.Path >> 3}
}

// ChildIndex returns the index of this node within its parent.
func (k Key) ChildIndex() int {
	return int(k.Path & 7)
}

// IndexAt returns the child index taken when descending to the given level, 1 <= level <= Depth.
func (k Key) IndexAt(level int) int {
	return int((k.Path >> (3 * uint(int(k.Depth)-level))) & 7)
}

func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString("/")
	for level := 1; level <= int(k.Depth); level++ {
		fmt.Fprintf(&sb, "%d", k.IndexAt(level))
	}
	return sb.String()
}

// Thresholds classify nodes by occupancy. A node is occupied when its occupancy is at
// least Occupied and free when its occupancy is below Free.
type Thresholds struct {
	Occupied float64
	Free     float64
}

// DefaultThresholds splits occupancy at 0.5.
var DefaultThresholds = Thresholds{Occupied: 0.5, Free: 0.5}
