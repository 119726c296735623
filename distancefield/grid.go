// Package distancefield computes a coarse voxel grid holding, for every cell, the distance
// in voxel units to the nearest surface of a mesh, clipped to a cutoff.
package distancefield

import (
	"math"

	"github.com/ctessum/sparse"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/viewpoint/spatialmath"
)

// MaxDimension is the largest supported number of cells per axis.
const MaxDimension = 1024

// GridGeometry maps between grid indices and world positions: cell (x, y, z) sits at
// Origin + Increment*(x, y, z). The grid has Dimension cells per axis and covers Bounds.
type GridGeometry struct {
	Origin    r3.Vector
	Increment float64
	Dimension int
	Bounds    spatialmath.BoundingBox
}

// NewGridGeometry lays a grid of dim cells per axis over box. The grid starts at the box
// minimum and its increment is the box's largest extent divided by dim+1.
func NewGridGeometry(box spatialmath.BoundingBox, dim int) (GridGeometry, error) {
	if dim <= 0 || dim > MaxDimension {
		return GridGeometry{}, errors.Errorf("grid dimension must be within [1, %d], got %d", MaxDimension, dim)
	}
	extent := box.MaxExtent()
	if !(extent > 0) || math.IsInf(extent, 0) {
		return GridGeometry{}, errors.Errorf("cannot lay a grid over box %s", box)
	}
	inc := extent / float64(dim+1)
	span := inc * float64(dim+1)
	return GridGeometry{
		Origin:    box.Min,
		Increment: inc,
		Dimension: dim,
		Bounds:    spatialmath.NewBoundingBox(box.Min, box.Min.Add(r3.Vector{X: span, Y: span, Z: span})),
	}, nil
}

// IsInside returns true if p lies in the region covered by the grid, including its
// minimum faces and excluding its maximum faces.
func (g GridGeometry) IsInside(p r3.Vector) bool {
	return p.X >= g.Bounds.Min.X && p.X < g.Bounds.Max.X &&
		p.Y >= g.Bounds.Min.Y && p.Y < g.Bounds.Max.Y &&
		p.Z >= g.Bounds.Min.Z && p.Z < g.Bounds.Max.Z
}

// Indices returns the cell nearest to p, clamped into the grid.
func (g GridGeometry) Indices(p r3.Vector) (x, y, z int) {
	rel := p.Sub(g.Origin)
	return g.clamp(rel.X), g.clamp(rel.Y), g.clamp(rel.Z)
}

func (g GridGeometry) clamp(offset float64) int {
	idx := int(math.Round(offset / g.Increment))
	if idx < 0 {
		return 0
	}
	if idx >= g.Dimension {
		return g.Dimension - 1
	}
	return idx
}

// Position returns the world position of cell (x, y, z).
func (g GridGeometry) Position(x, y, z int) r3.Vector {
	return g.Origin.Add(r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}.Mul(g.Increment))
}

// CellBox returns the cube of side Increment centered at cell (x, y, z).
func (g GridGeometry) CellBox(x, y, z int) spatialmath.BoundingBox {
	return spatialmath.NewBoundingBoxFromCenter(g.Position(x, y, z), g.Increment)
}

// Grid is a dense cube of scalars with the same number of cells along each axis.
type Grid struct {
	dim  int
	data *sparse.DenseArray
}

// NewGrid returns a grid of dim cells per axis with every cell set to fill.
func NewGrid(dim int, fill float64) *Grid {
	g := &Grid{dim: dim, data: sparse.ZerosDense(dim, dim, dim)}
	if fill != 0 {
		for i := range g.data.Elements {
			g.data.Elements[i] = fill
		}
	}
	return g
}

// Dimension returns the number of cells per axis.
func (g *Grid) Dimension() int {
	return g.dim
}

// At returns the value of cell (x, y, z).
func (g *Grid) At(x, y, z int) float64 {
	return g.data.Get(x, y, z)
}

// Set changes the value of cell (x, y, z).
func (g *Grid) Set(x, y, z int, v float64) {
	g.data.Set(v, x, y, z)
}

// Values returns all cell values in unspecified order. Modifying them modifies the grid.
func (g *Grid) Values() []float64 {
	return g.data.Elements
}

// Max returns the largest value in the grid.
func (g *Grid) Max() float64 {
	return floats.Max(g.data.Elements)
}

// Min returns the smallest value in the grid.
func (g *Grid) Min() float64 {
	return floats.Min(g.data.Elements)
}

// Clip lowers every value above limit to limit.
func (g *Grid) Clip(limit float64) {
	for i, v := range g.data.Elements {
		if v > limit {
			g.data.Elements[i] = limit
		}
	}
}
