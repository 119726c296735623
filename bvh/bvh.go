// Package bvh implements a bounding volume hierarchy over axis-aligned boxes carrying
// occupancy payloads, built once from the leaves of an augmented occupancy tree.
package bvh

import (
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/viewpoint/spatialmath"
)

// maxLeafObjects is the most objects stored in one leaf node.
const maxLeafObjects = 4

// ErrEmptyBVH is returned when building a hierarchy from no objects.
var ErrEmptyBVH = errors.New("no objects to build BVH from")

// NodeObject is the payload attached to one box of the hierarchy.
type NodeObject struct {
	Occupancy        float64
	ObservationCount uint32
	Weight           float64
}

// ObjectWithBoundingBox pairs a payload with the box it occupies.
type ObjectWithBoundingBox struct {
	Box    spatialmath.BoundingBox
	Object NodeObject
}

// IntersectionResult is one object found by a box query.
type IntersectionResult struct {
	// Index identifies the object within the hierarchy, see Object and SetWeight.
	Index  int
	Box    spatialmath.BoundingBox
	Object NodeObject
}

type node struct {
	box spatialmath.BoundingBox
	// left and right index the children of an internal node; both are zero for a leaf
	left, right int32
	// first and count give the objects of a leaf
	first, count int32
}

func (n *node) isLeaf() bool {
	return n.count > 0
}

// BVH is a bounding volume hierarchy. Its structure is immutable once built but object
// weights may be rewritten.
type BVH struct {
	nodes   []node
	objects []ObjectWithBoundingBox
}

// Build bulk-builds a hierarchy. Nodes are split at the median object along the longest
// axis of their objects' centers. The input slice is not modified.
func Build(objects []ObjectWithBoundingBox) (*BVH, error) {
	if len(objects) == 0 {
		return nil, ErrEmptyBVH
	}
	b := &BVH{
		nodes:   make([]node, 0, 2*len(objects)/maxLeafObjects+1),
		objects: append([]ObjectWithBoundingBox(nil), objects...),
	}
	b.build(0, len(b.objects))
	return b, nil
}

func (b *BVH) build(from, to int) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{box: boundsOf(b.objects[from:to])})
	if to-from <= maxLeafObjects {
		b.nodes[idx].first = int32(from)
		b.nodes[idx].count = int32(to - from)
		return idx
	}

	members := b.objects[from:to]
	centers := spatialmath.BoundingBox{Min: members[0].Box.Center(), Max: members[0].Box.Center()}
	for _, o := range members[1:] {
		c := o.Box.Center()
		centers = centers.Union(spatialmath.BoundingBox{Min: c, Max: c})
	}
	axis := centers.LongestAxis()
	sort.SliceStable(members, func(i, j int) bool {
		return spatialmath.AxisValue(members[i].Box.Center(), axis) < spatialmath.AxisValue(members[j].Box.Center(), axis)
	})

	mid := from + (to-from)/2
	left := b.build(from, mid)
	right := b.build(mid, to)
	b.nodes[idx].left = left
	b.nodes[idx].right = right
	return idx
}

func boundsOf(objects []ObjectWithBoundingBox) spatialmath.BoundingBox {
	box := objects[0].Box
	for _, o := range objects[1:] {
		box = box.Union(o.Box)
	}
	return box
}

// Root returns the bounding box of the whole hierarchy.
func (b *BVH) Root() spatialmath.BoundingBox {
	return b.nodes[0].box
}

// Len returns the number of objects in the hierarchy.
func (b *BVH) Len() int {
	return len(b.objects)
}

// NumNodes returns the number of nodes in the hierarchy.
func (b *BVH) NumNodes() int {
	return len(b.nodes)
}

// Objects returns all objects in hierarchy order.
func (b *BVH) Objects() []ObjectWithBoundingBox {
	return b.objects
}

// Object returns the object with the given index.
func (b *BVH) Object(index int) ObjectWithBoundingBox {
	return b.objects[index]
}

// SetWeight changes the weight of the object with the given index.
func (b *BVH) SetWeight(index int, weight float64) {
	b.objects[index].Object.Weight = weight
}

// Intersects returns every object whose box overlaps box with positive volume.
func (b *BVH) Intersects(box spatialmath.BoundingBox) []IntersectionResult {
	var results []IntersectionResult
	stack := []int32{0}
	for len(stack) > 0 {
		n := &b.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !n.box.Overlaps(box) {
			continue
		}
		if !n.isLeaf() {
			stack = append(stack, n.right, n.left)
			continue
		}
		for i := n.first; i < n.first+n.count; i++ {
			o := b.objects[i]
			if o.Box.Overlaps(box) {
				results = append(results, IntersectionResult{Index: int(i), Box: o.Box, Object: o.Object})
			}
		}
	}
	return results
}

// Depth returns the number of levels of the hierarchy.
func (b *BVH) Depth() int {
	var depth func(idx int32) int
	depth = func(idx int32) int {
		n := &b.nodes[idx]
		if n.isLeaf() {
			return 1
		}
		l, r := depth(n.left), depth(n.right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return depth(0)
}
