package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrDegenerateFace is returned for a mesh face that does not have exactly three vertices.
var ErrDegenerateFace = errors.New("mesh face does not have exactly 3 vertices")

// Mesh is a vertex list plus a face list indexing into it. A mesh is read-only once loaded.
type Mesh struct {
	vertices []r3.Vector
	faces    [][]int
}

// NewMesh creates a mesh. Faces are not checked until Triangles is called.
func NewMesh(vertices []r3.Vector, faces [][]int) *Mesh {
	return &Mesh{vertices: vertices, faces: faces}
}

// NewMeshFromTriangles creates a mesh with one face per triangle, without sharing vertices.
func NewMeshFromTriangles(triangles []*Triangle) *Mesh {
	m := &Mesh{
		vertices: make([]r3.Vector, 0, 3*len(triangles)),
		faces:    make([][]int, 0, len(triangles)),
	}
	for _, t := range triangles {
		base := len(m.vertices)
		m.vertices = append(m.vertices, t.p0, t.p1, t.p2)
		m.faces = append(m.faces, []int{base, base + 1, base + 2})
	}
	return m
}

// Vertices returns the vertex list of the mesh.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Faces returns the face list of the mesh.
func (m *Mesh) Faces() [][]int {
	return m.faces
}

// NumFaces returns the number of faces in the mesh.
func (m *Mesh) NumFaces() int {
	return len(m.faces)
}

// Triangles resolves every face into a triangle. A face without exactly three vertices
// yields ErrDegenerateFace and a face referencing a missing vertex is an error as well.
func (m *Mesh) Triangles() ([]*Triangle, error) {
	triangles := make([]*Triangle, 0, len(m.faces))
	for i, face := range m.faces {
		if len(face) != 3 {
			return nil, errors.Wrapf(ErrDegenerateFace, "face %d has %d vertices", i, len(face))
		}
		for _, idx := range face {
			if idx < 0 || idx >= len(m.vertices) {
				return nil, errors.Errorf("face %d references vertex %d but mesh has %d vertices", i, idx, len(m.vertices))
			}
		}
		triangles = append(triangles, NewTriangle(m.vertices[face[0]], m.vertices[face[1]], m.vertices[face[2]]))
	}
	return triangles, nil
}

// BoundingBox returns the tightest box around all vertices of the mesh.
func (m *Mesh) BoundingBox() BoundingBox {
	if len(m.vertices) == 0 {
		return BoundingBox{}
	}
	box := BoundingBox{
		Min: r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, v := range m.vertices {
		box = box.Union(BoundingBox{Min: v, Max: v})
	}
	return box
}
