package spatialmath

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestTriangleCentroid(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 1, Y: 1, Z: 1},
		r3.Vector{X: 4, Y: 1, Z: 1},
		r3.Vector{X: 1, Y: 4, Z: 1},
	)
	test.That(t, tri.Centroid(), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 1})
	test.That(t, tri.Area(), test.ShouldAlmostEqual, 4.5)
	test.That(t, tri.Normal(), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	box := tri.BoundingBox()
	test.That(t, box.Min, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, box.Max, test.ShouldResemble, r3.Vector{X: 4, Y: 4, Z: 1})
}

func TestMeshTriangles(t *testing.T) {
	vertices := []r3.Vector{{}, {X: 1}, {Y: 1}, {Z: 1}}

	t.Run("triangular faces", func(t *testing.T) {
		m := NewMesh(vertices, [][]int{{0, 1, 2}, {0, 1, 3}})
		triangles, err := m.Triangles()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(triangles), test.ShouldEqual, 2)
		test.That(t, triangles[1].Points(), test.ShouldResemble, []r3.Vector{{}, {X: 1}, {Z: 1}})
	})

	t.Run("quad face is degenerate", func(t *testing.T) {
		m := NewMesh(vertices, [][]int{{0, 1, 2}, {0, 1, 2, 3}})
		_, err := m.Triangles()
		test.That(t, errors.Is(err, ErrDegenerateFace), test.ShouldBeTrue)
	})

	t.Run("missing vertex", func(t *testing.T) {
		m := NewMesh(vertices, [][]int{{0, 1, 7}})
		_, err := m.Triangles()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "references vertex 7")
	})

	t.Run("bounding box", func(t *testing.T) {
		m := NewMesh(vertices, nil)
		box := m.BoundingBox()
		test.That(t, box.Min, test.ShouldResemble, r3.Vector{})
		test.That(t, box.Max, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
	})
}

func TestReadOBJ(t *testing.T) {
	t.Run("vertices and faces", func(t *testing.T) {
		src := `# a tetrahedron
o tet
v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
v 0 0 1.5
f 1 2 3
f 1/1/1 2/2/1 4/3/1
f -4 -2 -1
`
		m, err := ReadOBJ(strings.NewReader(src))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(m.Vertices()), test.ShouldEqual, 4)
		test.That(t, m.Vertices()[3], test.ShouldResemble, r3.Vector{Z: 1.5})
		test.That(t, m.Faces(), test.ShouldResemble, [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}})
	})

	t.Run("bad vertex", func(t *testing.T) {
		_, err := ReadOBJ(strings.NewReader("v 0 zero 0\n"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "line 1")
	})

	t.Run("round trip", func(t *testing.T) {
		m := NewMeshFromTriangles([]*Triangle{
			NewTriangle(r3.Vector{}, r3.Vector{X: 0.25}, r3.Vector{Y: -3}),
		})
		var buf bytes.Buffer
		test.That(t, WriteOBJ(&buf, m), test.ShouldBeNil)
		read, err := ReadOBJ(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Vertices(), test.ShouldResemble, m.Vertices())
		test.That(t, read.Faces(), test.ShouldResemble, m.Faces())
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := ReadMesh("surface.stl")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported mesh format")
	})
}

func TestReadPLY(t *testing.T) {
	t.Run("ascii with extra properties", func(t *testing.T) {
		src := `ply
format ascii 1.0
comment written by poisson reconstruction
element vertex 4
property float x
property float y
property float z
property float value
element face 2
property list uchar int vertex_indices
end_header
0 0 0 0.1
1 0 0 0.2
0 1 0 0.3
0 0 1.5 0.4
3 0 1 2
3 0 1 3
`
		m, err := ReadPLY(strings.NewReader(src))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(m.Vertices()), test.ShouldEqual, 4)
		test.That(t, m.Vertices()[3], test.ShouldResemble, r3.Vector{Z: 1.5})
		test.That(t, m.Faces(), test.ShouldResemble, [][]int{{0, 1, 2}, {0, 1, 3}})
		triangles, err := m.Triangles()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(triangles), test.ShouldEqual, 2)
	})

	t.Run("round trip through file", func(t *testing.T) {
		m := NewMeshFromTriangles([]*Triangle{
			NewTriangle(r3.Vector{}, r3.Vector{X: 0.25}, r3.Vector{Y: -3}),
			NewTriangle(r3.Vector{Z: 2}, r3.Vector{X: 0.25}, r3.Vector{Y: -3}),
		})
		var buf bytes.Buffer
		test.That(t, WritePLY(&buf, m), test.ShouldBeNil)
		path := filepath.Join(t.TempDir(), "meshed-poisson.ply")
		test.That(t, os.WriteFile(path, buf.Bytes(), 0o600), test.ShouldBeNil)

		read, err := ReadMesh(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Vertices(), test.ShouldResemble, m.Vertices())
		test.That(t, read.Faces(), test.ShouldResemble, m.Faces())
	})

	t.Run("quad face is read but degenerate", func(t *testing.T) {
		src := `ply
format ascii 1.0
element vertex 4
property double x
property double y
property double z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`
		m, err := ReadPLY(strings.NewReader(src))
		test.That(t, err, test.ShouldBeNil)
		_, err = m.Triangles()
		test.That(t, errors.Is(err, ErrDegenerateFace), test.ShouldBeTrue)
	})

	t.Run("missing coordinate", func(t *testing.T) {
		src := `ply
format ascii 1.0
element vertex 1
property double x
property double y
end_header
0 0
`
		_, err := ReadPLY(strings.NewReader(src))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `"z"`)
	})
}
