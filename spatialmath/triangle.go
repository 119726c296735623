package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Triangle is a single face of a mesh.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector
}

// NewTriangle creates a triangle from its three corners.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{p0: p0, p1: p1, p2: p2}
}

// Points returns the three corners of the triangle.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Centroid returns the average of the triangle's corners.
func (t *Triangle) Centroid() r3.Vector {
	sum := t.p0.Add(t.p1).Add(t.p2)
	return r3.Vector{X: sum.X / 3, Y: sum.Y / 3, Z: sum.Z / 3}
}

// Normal returns the unit normal of the triangle following the right-hand rule.
func (t *Triangle) Normal() r3.Vector {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Normalize()
}

// Area returns the surface area of the triangle.
func (t *Triangle) Area() float64 {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm() / 2
}

// BoundingBox returns the tightest axis-aligned box around the triangle.
func (t *Triangle) BoundingBox() BoundingBox {
	return BoundingBox{
		Min: r3.Vector{
			X: math.Min(t.p0.X, math.Min(t.p1.X, t.p2.X)),
			Y: math.Min(t.p0.Y, math.Min(t.p1.Y, t.p2.Y)),
			Z: math.Min(t.p0.Z, math.Min(t.p1.Z, t.p2.Z)),
		},
		Max: r3.Vector{
			X: math.Max(t.p0.X, math.Max(t.p1.X, t.p2.X)),
			Y: math.Max(t.p0.Y, math.Max(t.p1.Y, t.p2.Y)),
			Z: math.Max(t.p0.Z, math.Max(t.p1.Z, t.p2.Z)),
		},
	}
}
