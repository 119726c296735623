package bvh

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/spatialmath"
)

func unitObjects(n int) []ObjectWithBoundingBox {
	objects := make([]ObjectWithBoundingBox, n)
	for i := range objects {
		x := float64(i)
		objects[i] = ObjectWithBoundingBox{
			Box:    spatialmath.NewBoundingBox(r3.Vector{X: x}, r3.Vector{X: x + 1, Y: 1, Z: 1}),
			Object: NodeObject{Occupancy: 0.9, ObservationCount: uint32(i), Weight: x},
		}
	}
	return objects
}

func TestBuild(t *testing.T) {
	t.Run("no objects", func(t *testing.T) {
		_, err := Build(nil)
		test.That(t, errors.Is(err, ErrEmptyBVH), test.ShouldBeTrue)
	})

	t.Run("few objects make a single leaf", func(t *testing.T) {
		b, err := Build(unitObjects(3))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, b.NumNodes(), test.ShouldEqual, 1)
		test.That(t, b.Depth(), test.ShouldEqual, 1)
		test.That(t, b.Len(), test.ShouldEqual, 3)
		test.That(t, b.Root(), test.ShouldResemble,
			spatialmath.NewBoundingBox(r3.Vector{}, r3.Vector{X: 3, Y: 1, Z: 1}))
	})

	t.Run("many objects make internal nodes", func(t *testing.T) {
		objects := unitObjects(10)
		b, err := Build(objects)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, b.NumNodes(), test.ShouldBeGreaterThan, 1)
		test.That(t, b.Depth(), test.ShouldEqual, 3)
		test.That(t, b.Len(), test.ShouldEqual, 10)
		test.That(t, b.Root().Max.X, test.ShouldEqual, 10.)
		// the input is left alone
		test.That(t, objects[0].Object.Weight, test.ShouldEqual, 0.)

		weights := make([]float64, 0, b.Len())
		for _, o := range b.Objects() {
			weights = append(weights, o.Object.Weight)
			test.That(t, b.Root().ContainsBox(o.Box), test.ShouldBeTrue)
		}
		sort.Float64s(weights)
		test.That(t, weights, test.ShouldResemble, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	})
}

func TestIntersects(t *testing.T) {
	var objects []ObjectWithBoundingBox
	for x := 0; x < 6; x++ {
		for y := 0; y < 6; y++ {
			for z := 0; z < 6; z++ {
				min := r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}
				objects = append(objects, ObjectWithBoundingBox{
					Box:    spatialmath.NewBoundingBox(min, min.Add(r3.Vector{X: 1, Y: 1, Z: 1})),
					Object: NodeObject{Weight: float64(x*36 + y*6 + z)},
				})
			}
		}
	}
	b, err := Build(objects)
	test.That(t, err, test.ShouldBeNil)

	for _, query := range []spatialmath.BoundingBox{
		spatialmath.NewBoundingBoxFromCenter(r3.Vector{X: 3, Y: 3, Z: 3}, 1),
		spatialmath.NewBoundingBoxFromCenter(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, 0.5),
		spatialmath.NewBoundingBox(r3.Vector{X: -1, Y: -1, Z: -1}, r3.Vector{X: 7, Y: 0.5, Z: 7}),
		spatialmath.NewBoundingBox(r3.Vector{X: 6, Y: 0, Z: 0}, r3.Vector{X: 7, Y: 6, Z: 6}),
	} {
		var want []float64
		for _, o := range objects {
			if o.Box.Overlaps(query) {
				want = append(want, o.Object.Weight)
			}
		}
		var got []float64
		for _, r := range b.Intersects(query) {
			test.That(t, b.Object(r.Index).Box, test.ShouldResemble, r.Box)
			got = append(got, r.Object.Weight)
		}
		sort.Float64s(want)
		sort.Float64s(got)
		test.That(t, got, test.ShouldResemble, want)
	}

	results := b.Intersects(spatialmath.NewBoundingBoxFromCenter(r3.Vector{X: 3, Y: 3, Z: 3}, 1))
	test.That(t, len(results), test.ShouldEqual, 8)
	b.SetWeight(results[0].Index, -1)
	test.That(t, b.Object(results[0].Index).Object.Weight, test.ShouldEqual, -1.)
}

func TestBuildFromOctree(t *testing.T) {
	tree, err := octree.New(r3.Vector{}, 4, 2)
	test.That(t, err, test.ShouldBeNil)
	root := tree.Root()
	test.That(t, tree.Expand(root), test.ShouldBeNil)
	for i, child := range tree.Children(root) {
		switch i {
		case 0:
			// free and known: excluded
			tree.SetOccupancy(child, 0.1)
			tree.SetObservationCount(child, 4)
		case 1:
			// free but unknown: kept
			tree.SetOccupancy(child, 0.1)
		default:
			tree.SetOccupancy(child, 0.8)
			tree.SetObservationCount(child, 2)
			tree.SetWeight(child, float64(i))
		}
	}
	tree.UpdateInnerOccupancy()

	// the region cuts off every octant with z > 0 and half of the octants along x
	roi := spatialmath.NewBoundingBox(r3.Vector{X: -1, Y: -2, Z: -2}, r3.Vector{X: 2, Y: 2, Z: 0})
	objects := ObjectsFromOctree(tree, roi)
	test.That(t, len(objects), test.ShouldEqual, 3)
	for _, o := range objects {
		test.That(t, o.Box.IsEmpty(), test.ShouldBeFalse)
		test.That(t, roi.ContainsBox(o.Box), test.ShouldBeTrue)
	}
	test.That(t, objects[0].Box, test.ShouldResemble,
		spatialmath.NewBoundingBox(r3.Vector{X: 0, Y: -2, Z: -2}, r3.Vector{X: 2, Y: 0, Z: 0}))
	test.That(t, objects[0].Object, test.ShouldResemble, NodeObject{Occupancy: 0.1})
	test.That(t, objects[1].Box.Min.X, test.ShouldEqual, -1.)
	test.That(t, objects[1].Object, test.ShouldResemble, NodeObject{Occupancy: 0.8, ObservationCount: 2, Weight: 2})

	b, err := BuildFromOctree(tree, roi, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Len(), test.ShouldEqual, 3)
	test.That(t, b.Root(), test.ShouldResemble,
		spatialmath.NewBoundingBox(r3.Vector{X: -1, Y: -2, Z: -2}, r3.Vector{X: 2, Y: 2, Z: 0}))

	_, err = BuildFromOctree(tree, spatialmath.NewBoundingBox(r3.Vector{X: 10}, r3.Vector{X: 11, Y: 1, Z: 1}),
		logging.NewTestLogger(t))
	test.That(t, errors.Is(err, ErrEmptyBVH), test.ShouldBeTrue)
}

func TestMarshal(t *testing.T) {
	b, err := Build(unitObjects(37))
	test.That(t, err, test.ShouldBeNil)
	b.SetWeight(5, 0.25)

	data, err := b.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	decoded, err := Unmarshal(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Root(), test.ShouldResemble, b.Root())
	test.That(t, decoded.Objects(), test.ShouldResemble, b.Objects())
	test.That(t, decoded.NumNodes(), test.ShouldEqual, b.NumNodes())
	query := spatialmath.NewBoundingBox(r3.Vector{X: 4.5}, r3.Vector{X: 9.5, Y: 1, Z: 1})
	test.That(t, decoded.Intersects(query), test.ShouldResemble, b.Intersects(query))

	again, err := decoded.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, data)

	path := filepath.Join(t.TempDir(), "tree.bvh")
	test.That(t, b.WriteFile(path), test.ShouldBeNil)
	read, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Objects(), test.ShouldResemble, b.Objects())

	t.Run("corrupt node reference", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		// the left child of the root node follows the header and its box
		bad[8+48] = 0
		_, err := Unmarshal(bad)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "invalid children")
	})
}
