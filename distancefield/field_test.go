package distancefield

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/viewpoint/spatialmath"
)

func TestGridGeometry(t *testing.T) {
	box := spatialmath.NewBoundingBox(r3.Vector{}, r3.Vector{X: 10, Y: 5, Z: 2})
	g, err := NewGridGeometry(box, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Origin, test.ShouldResemble, r3.Vector{})
	test.That(t, g.Increment, test.ShouldEqual, 2.)
	test.That(t, g.Bounds.Max, test.ShouldResemble, r3.Vector{X: 10, Y: 10, Z: 10})

	test.That(t, g.IsInside(r3.Vector{}), test.ShouldBeTrue)
	test.That(t, g.IsInside(r3.Vector{X: 9.99, Y: 9.99, Z: 9.99}), test.ShouldBeTrue)
	test.That(t, g.IsInside(r3.Vector{X: 10}), test.ShouldBeFalse)
	test.That(t, g.IsInside(r3.Vector{Y: -0.01}), test.ShouldBeFalse)

	x, y, z := g.Indices(r3.Vector{X: 2.9, Y: 3.1, Z: 0.4})
	test.That(t, []int{x, y, z}, test.ShouldResemble, []int{1, 2, 0})
	// rounding past the last cell stays in the grid
	x, y, z = g.Indices(r3.Vector{X: 9.9, Y: 7.1, Z: 6.9})
	test.That(t, []int{x, y, z}, test.ShouldResemble, []int{3, 3, 3})

	test.That(t, g.Position(1, 2, 3), test.ShouldResemble, r3.Vector{X: 2, Y: 4, Z: 6})
	test.That(t, g.CellBox(0, 0, 0), test.ShouldResemble,
		spatialmath.NewBoundingBox(r3.Vector{X: -1, Y: -1, Z: -1}, r3.Vector{X: 1, Y: 1, Z: 1}))

	_, err = NewGridGeometry(box, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewGridGeometry(spatialmath.BoundingBox{}, 4)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestChamferTransform(t *testing.T) {
	seeds := NewGrid(4, math.Inf(1))
	seeds.Set(0, 0, 0, 0)

	field, err := ChamferTransform{}.Transform(seeds)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, field.At(0, 0, 0), test.ShouldEqual, 0.)
	test.That(t, field.At(3, 0, 0), test.ShouldAlmostEqual, 3.)
	test.That(t, field.At(2, 2, 0), test.ShouldAlmostEqual, 2*math.Sqrt2)
	test.That(t, field.At(3, 3, 3), test.ShouldAlmostEqual, 3*math.Sqrt(3))
	test.That(t, field.At(3, 1, 0), test.ShouldAlmostEqual, 2+math.Sqrt2)

	transformed := field.At(3, 3, 3)
	field.Clip(1)
	test.That(t, field.At(3, 3, 3), test.ShouldEqual, math.Min(transformed, 1))
	test.That(t, field.Max(), test.ShouldEqual, 1.)
	test.That(t, field.Min(), test.ShouldEqual, 0.)

	t.Run("seed values carry over", func(t *testing.T) {
		seeds := NewGrid(3, math.Inf(1))
		seeds.Set(0, 0, 0, 0.5)
		seeds.Set(2, 2, 2, 0.25)
		field, err := ChamferTransform{}.Transform(seeds)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, field.At(0, 0, 0), test.ShouldEqual, 0.5)
		test.That(t, field.At(1, 1, 1), test.ShouldAlmostEqual, 0.25+math.Sqrt(3))
		test.That(t, field.At(1, 0, 0), test.ShouldAlmostEqual, 1.5)
	})

	t.Run("no seeds", func(t *testing.T) {
		field, err := ChamferTransform{}.Transform(NewGrid(2, math.Inf(1)))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, math.IsInf(field.Max(), 1), test.ShouldBeTrue)
	})
}

// cubeMesh returns two triangles whose centroids are (1, 1, 1) and (8.5, 8.5, 8.5).
func cubeMesh() *spatialmath.Mesh {
	return spatialmath.NewMeshFromTriangles([]*spatialmath.Triangle{
		spatialmath.NewTriangle(r3.Vector{X: 0, Y: 1, Z: 1}, r3.Vector{X: 2, Y: 1, Z: 1}, r3.Vector{X: 1, Y: 1, Z: 1}),
		spatialmath.NewTriangle(r3.Vector{X: 8.5, Y: 8, Z: 8.5}, r3.Vector{X: 8.5, Y: 9, Z: 8.5}, r3.Vector{X: 8.5, Y: 8.5, Z: 8.5}),
		// outside of the grid
		spatialmath.NewTriangle(r3.Vector{X: 20}, r3.Vector{X: 21}, r3.Vector{X: 20, Y: 1}),
	})
}

func TestGenerate(t *testing.T) {
	box := spatialmath.NewBoundingBox(r3.Vector{}, r3.Vector{X: 10, Y: 10, Z: 10})
	const cutoff = 2.5

	field, err := Generate(cubeMesh(), box, 4, cutoff, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, field.Geometry.Increment, test.ShouldEqual, 2.)
	test.That(t, field.Cutoff, test.ShouldEqual, cutoff)

	// (1, 1, 1) rounds to cell (1, 1, 1) at (2, 2, 2): sqrt(3) away, or sqrt(3)/2 voxels
	test.That(t, field.At(1, 1, 1), test.ShouldAlmostEqual, math.Sqrt(3)/2)
	// (8.5, 8.5, 8.5) rounds to cell (4, 4, 4) which is clamped to (3, 3, 3) at (6, 6, 6)
	test.That(t, field.At(3, 3, 3), test.ShouldAlmostEqual, math.Min(cutoff, math.Sqrt(3)*2.5/2))
	test.That(t, field.At(2, 1, 1), test.ShouldAlmostEqual, 1+math.Sqrt(3)/2)

	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				v := field.At(x, y, z)
				test.That(t, v, test.ShouldBeGreaterThanOrEqualTo, 0)
				test.That(t, v, test.ShouldBeLessThanOrEqualTo, cutoff)
			}
		}
	}

	summary, err := field.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Min, test.ShouldAlmostEqual, math.Sqrt(3)/2)
	test.That(t, summary.Max, test.ShouldEqual, cutoff)
	test.That(t, summary.AtCutoff, test.ShouldBeGreaterThan, 0)
	test.That(t, summary.AtCutoff, test.ShouldBeLessThan, 1)

	t.Run("degenerate face", func(t *testing.T) {
		mesh := spatialmath.NewMesh([]r3.Vector{{}, {X: 1}, {Y: 1}, {Z: 1}}, [][]int{{0, 1, 2, 3}})
		_, err := Generate(mesh, box, 4, cutoff, nil)
		test.That(t, errors.Is(err, spatialmath.ErrDegenerateFace), test.ShouldBeTrue)
	})

	t.Run("negative cutoff", func(t *testing.T) {
		_, err := Generate(cubeMesh(), box, 4, -1, nil)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("transformer changing the dimension", func(t *testing.T) {
		_, err := Generate(cubeMesh(), box, 4, cutoff, shrinkingTransform{})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "dimension 3")
	})
}

type shrinkingTransform struct{}

func (shrinkingTransform) Transform(seeds *Grid) (*Grid, error) {
	return NewGrid(seeds.Dimension()-1, 0), nil
}

func TestFieldMarshal(t *testing.T) {
	box := spatialmath.NewBoundingBox(r3.Vector{X: -1, Y: 2, Z: 0.5}, r3.Vector{X: 4, Y: 3, Z: 1})
	field, err := Generate(cubeMesh(), box, 5, 1.5, nil)
	test.That(t, err, test.ShouldBeNil)

	data, err := field.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	decoded, err := Unmarshal(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Geometry, test.ShouldResemble, field.Geometry)
	test.That(t, decoded.Matches(field.Geometry, 1.5), test.ShouldBeTrue)
	test.That(t, decoded.Matches(field.Geometry, 2), test.ShouldBeFalse)
	other, err := NewGridGeometry(box, 6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Matches(other, 1.5), test.ShouldBeFalse)

	path := filepath.Join(t.TempDir(), "mesh.obj.df")
	test.That(t, field.WriteFile(path), test.ShouldBeNil)
	read, err := ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	again, err := read.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, data)

	_, err = Unmarshal(data[:len(data)-8])
	test.That(t, err, test.ShouldNotBeNil)
}
