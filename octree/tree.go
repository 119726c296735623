package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/viewpoint/spatialmath"
)

type node struct {
	key          Key
	parent       NodeID
	firstChild   NodeID
	occupancy    float64
	observations uint32
	weight       float64
}

// Tree is an occupancy octree stored as an arena of nodes. The eight children of a node
// are allocated together and always have larger IDs than their parent.
type Tree struct {
	kind       Kind
	center     r3.Vector
	side       float64
	maxDepth   int
	thresholds Thresholds
	nodes      []node
}

// New creates a raw tree consisting of a single unobserved root node covering the cube
// with the given center and side length. No node may be deeper than maxDepth.
func New(center r3.Vector, side float64, maxDepth int) (*Tree, error) {
	if side <= 0 || math.IsNaN(side) || math.IsInf(side, 0) {
		return nil, errors.Errorf("invalid side length (%.2f) for octree", side)
	}
	if maxDepth < 0 || maxDepth > MaxSupportedDepth {
		return nil, errors.Errorf("invalid max depth %d for octree, must be within [0, %d]", maxDepth, MaxSupportedDepth)
	}
	return &Tree{
		kind:       Raw,
		center:     center,
		side:       side,
		maxDepth:   maxDepth,
		thresholds: DefaultThresholds,
		nodes:      []node{{parent: NoNode, firstChild: NoNode}},
	}, nil
}

// Kind returns whether this is a raw or an augmented tree.
func (t *Tree) Kind() Kind {
	return t.kind
}

// Thresholds returns the occupancy classification thresholds of the tree.
func (t *Tree) Thresholds() Thresholds {
	return t.thresholds
}

// SetThresholds changes the occupancy classification thresholds of the tree.
func (t *Tree) SetThresholds(th Thresholds) {
	t.thresholds = th
}

// Root returns the ID of the root node.
func (t *Tree) Root() NodeID {
	return 0
}

// NumNodes returns the number of nodes in the tree.
func (t *Tree) NumNodes() int {
	return len(t.nodes)
}

// MaxDepth returns the deepest level nodes may be expanded to.
func (t *Tree) MaxDepth() int {
	return t.maxDepth
}

// Bounds returns the cube covered by the root node.
func (t *Tree) Bounds() spatialmath.BoundingBox {
	return spatialmath.NewBoundingBoxFromCenter(t.center, t.side)
}

// Expand gives the leaf id its eight children. The children start out with the occupancy,
// observation count and weight of their parent.
func (t *Tree) Expand(id NodeID) error {
	n := t.nodes[id]
	if n.firstChild != NoNode {
		return errors.Errorf("node %s already has children", n.key)
	}
	if int(n.key.Depth) >= t.maxDepth {
		return errors.Errorf("cannot expand node %s beyond max depth %d", n.key, t.maxDepth)
	}
	first := NodeID(len(t.nodes))
	t.nodes[id].firstChild = first
	for i := 0; i < 8; i++ {
		t.nodes = append(t.nodes, node{
			key:          n.key.Child(i),
			parent:       id,
			firstChild:   NoNode,
			occupancy:    n.occupancy,
			observations: n.observations,
			weight:       n.weight,
		})
	}
	return nil
}

// Occupancy returns the occupancy probability of id.
func (t *Tree) Occupancy(id NodeID) float64 {
	return t.nodes[id].occupancy
}

// SetOccupancy sets the occupancy probability of id.
func (t *Tree) SetOccupancy(id NodeID, occupancy float64) {
	t.nodes[id].occupancy = occupancy
}

// ObservationCount returns the number of observations aggregated into id.
func (t *Tree) ObservationCount(id NodeID) uint32 {
	return t.nodes[id].observations
}

// SetObservationCount sets the number of observations aggregated into id.
func (t *Tree) SetObservationCount(id NodeID, count uint32) {
	t.nodes[id].observations = count
}

// Weight returns the derived weight of id.
func (t *Tree) Weight(id NodeID) float64 {
	return t.nodes[id].weight
}

// SetWeight sets the derived weight of id.
func (t *Tree) SetWeight(id NodeID, weight float64) {
	t.nodes[id].weight = weight
}

// IsOccupied returns true if the occupancy of id is at least the occupied threshold.
func (t *Tree) IsOccupied(id NodeID) bool {
	return t.nodes[id].occupancy >= t.thresholds.Occupied
}

// IsFree returns true if the occupancy of id is below the free threshold.
func (t *Tree) IsFree(id NodeID) bool {
	return t.nodes[id].occupancy < t.thresholds.Free
}

// IsKnown returns true if id has been observed at least once.
func (t *Tree) IsKnown(id NodeID) bool {
	return t.nodes[id].observations > 0
}

// IsLeaf returns true if id has no children.
func (t *Tree) IsLeaf(id NodeID) bool {
	return t.nodes[id].firstChild == NoNode
}

// Child returns child i of id, or NoNode for a leaf.
func (t *Tree) Child(id NodeID, i int) NodeID {
	first := t.nodes[id].firstChild
	if first == NoNode {
		return NoNode
	}
	return first + NodeID(i)
}

// Children returns the eight children of id in index order, or nil for a leaf.
func (t *Tree) Children(id NodeID) []NodeID {
	first := t.nodes[id].firstChild
	if first == NoNode {
		return nil
	}
	children := make([]NodeID, 8)
	for i := range children {
		children[i] = first + NodeID(i)
	}
	return children
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// Ancestor returns the node levels above id.
func (t *Tree) Ancestor(id NodeID, levels int) (NodeID, error) {
	for i := 0; i < levels; i++ {
		parent := t.nodes[id].parent
		if parent == NoNode {
			return NoNode, errors.Errorf("node %s has no ancestor %d levels up", t.nodes[id].key, levels)
		}
		id = parent
	}
	return id, nil
}

// Depth returns the level of id, the root being at depth 0.
func (t *Tree) Depth(id NodeID) int {
	return int(t.nodes[id].key.Depth)
}

// Key returns the path code of id.
func (t *Tree) Key(id NodeID) Key {
	return t.nodes[id].key
}

// Lookup finds the node with the given key.
func (t *Tree) Lookup(key Key) (NodeID, bool) {
	id := t.Root()
	for level := 1; level <= int(key.Depth); level++ {
		id = t.Child(id, key.IndexAt(level))
		if id == NoNode {
			return NoNode, false
		}
	}
	return id, true
}

// Size returns the side length of the cube covered by id.
func (t *Tree) Size(id NodeID) float64 {
	return math.Ldexp(t.side, -t.Depth(id))
}

// Center returns the center of the cube covered by id.
func (t *Tree) Center(id NodeID) r3.Vector {
	key := t.nodes[id].key
	center := t.center
	half := t.side / 2
	for level := 1; level <= int(key.Depth); level++ {
		half /= 2
		idx := key.IndexAt(level)
		center.X += axisSign(idx, 0) * half
		center.Y += axisSign(idx, 1) * half
		center.Z += axisSign(idx, 2) * half
	}
	return center
}

// BoundingBox returns the cube covered by id.
func (t *Tree) BoundingBox(id NodeID) spatialmath.BoundingBox {
	return spatialmath.NewBoundingBoxFromCenter(t.Center(id), t.Size(id))
}

func axisSign(childIndex, axis int) float64 {
	if childIndex&(1<<axis) != 0 {
		return 1
	}
	return -1
}
