package octree

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/viewpoint/spatialmath"
)

// Walk visits from and all of its descendants depth-first in pre-order, children in index
// order. If fn returns false the descendants of that node are skipped.
func (t *Tree) Walk(from NodeID, fn func(id NodeID) bool) {
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(id) {
			continue
		}
		if first := t.nodes[id].firstChild; first != NoNode {
			for i := NodeID(7); i >= 0; i-- {
				stack = append(stack, first+i)
			}
		}
	}
}

// NodesAtDepth returns every node exactly depth levels below the root, in pre-order.
func (t *Tree) NodesAtDepth(depth int) []NodeID {
	var ids []NodeID
	t.Walk(t.Root(), func(id NodeID) bool {
		if t.Depth(id) == depth {
			ids = append(ids, id)
			return false
		}
		return true
	})
	return ids
}

// Leaves returns every leaf of the tree in pre-order.
func (t *Tree) Leaves() []NodeID {
	var ids []NodeID
	t.Walk(t.Root(), func(id NodeID) bool {
		if t.IsLeaf(id) {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// LeavesInBox returns every leaf whose cube overlaps box with positive volume, in pre-order.
func (t *Tree) LeavesInBox(box spatialmath.BoundingBox) []NodeID {
	var ids []NodeID
	t.Walk(t.Root(), func(id NodeID) bool {
		if !t.BoundingBox(id).Overlaps(box) {
			return false
		}
		if t.IsLeaf(id) {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	clone := *t
	clone.nodes = make([]node, len(t.nodes))
	copy(clone.nodes, t.nodes)
	return &clone
}

// CloneAugmented returns a deep copy of the tree as an augmented tree with every weight zeroed.
func (t *Tree) CloneAugmented() *Tree {
	clone := t.Clone()
	clone.kind = Augmented
	clone.ResetWeights()
	return clone
}

// ResetWeights sets the weight of every node to 0.
func (t *Tree) ResetWeights() {
	for i := range t.nodes {
		t.nodes[i].weight = 0
	}
}

// UpdateInnerOccupancy recomputes every internal node from its children, bottom-up: the
// occupancy and weight become the maximum over the children and the observation count
// the minimum, so a consistent set of leaves always yields a consistent tree.
func (t *Tree) UpdateInnerOccupancy() {
	for id := len(t.nodes) - 1; id >= 0; id-- {
		first := t.nodes[id].firstChild
		if first == NoNode {
			continue
		}
		occupancy := math.Inf(-1)
		weight := math.Inf(-1)
		observations := uint32(math.MaxUint32)
		for i := NodeID(0); i < 8; i++ {
			child := t.nodes[first+i]
			occupancy = math.Max(occupancy, child.occupancy)
			weight = math.Max(weight, child.weight)
			if child.observations < observations {
				observations = child.observations
			}
		}
		t.nodes[id].occupancy = occupancy
		t.nodes[id].weight = weight
		t.nodes[id].observations = observations
	}
}

// Stats summarizes a tree for diagnostics.
type Stats struct {
	Nodes          int
	Leaves         int
	UnknownNodes   int
	UnknownLeaves  int
	OccupiedLeaves int

	// MetricMin and MetricMax bound the observed leaves, or the whole tree if none is observed.
	MetricMin r3.Vector
	MetricMax r3.Vector
}

// MetricSize returns the extent of the observed region.
func (s Stats) MetricSize() r3.Vector {
	return s.MetricMax.Sub(s.MetricMin)
}

// Stats walks the tree and collects its diagnostics.
func (t *Tree) Stats() Stats {
	var s Stats
	var observed spatialmath.BoundingBox
	haveObserved := false
	for id := range t.nodes {
		nid := NodeID(id)
		s.Nodes++
		leaf := t.IsLeaf(nid)
		known := t.IsKnown(nid)
		if leaf {
			s.Leaves++
			if t.IsOccupied(nid) {
				s.OccupiedLeaves++
			}
		}
		if !known {
			s.UnknownNodes++
			if leaf {
				s.UnknownLeaves++
			}
		}
		if leaf && known {
			box := t.BoundingBox(nid)
			if haveObserved {
				observed = observed.Union(box)
			} else {
				observed = box
				haveObserved = true
			}
		}
	}
	if !haveObserved {
		observed = t.Bounds()
	}
	s.MetricMin = observed.Min
	s.MetricMax = observed.Max
	return s
}
