// Package spatialmath defines the world-space geometry shared by the derivation stages:
// axis-aligned bounding boxes, triangles and triangle meshes.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// BoundingBox is an axis-aligned box in world coordinates.
type BoundingBox struct {
	Min r3.Vector `json:"min" yaml:"min" toml:"min"`
	Max r3.Vector `json:"max" yaml:"max" toml:"max"`
}

// NewBoundingBox returns the box spanning min to max.
func NewBoundingBox(min, max r3.Vector) BoundingBox {
	return BoundingBox{Min: min, Max: max}
}

// NewBoundingBoxFromCenter returns the cube centered at center with the given side length.
func NewBoundingBoxFromCenter(center r3.Vector, side float64) BoundingBox {
	half := r3.Vector{X: side / 2, Y: side / 2, Z: side / 2}
	return BoundingBox{Min: center.Sub(half), Max: center.Add(half)}
}

// IsEmpty returns true if the box has no volume along any axis.
func (b BoundingBox) IsEmpty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}

// Intersects returns true if the two closed boxes share at least one point.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.Min.X <= other.Max.X && other.Min.X <= b.Max.X &&
		b.Min.Y <= other.Max.Y && other.Min.Y <= b.Max.Y &&
		b.Min.Z <= other.Max.Z && other.Min.Z <= b.Max.Z
}

// Overlaps returns true if the intersection of the two boxes has positive volume.
// Boxes that merely touch on a face, edge or corner do not overlap.
func (b BoundingBox) Overlaps(other BoundingBox) bool {
	return b.Min.X < other.Max.X && other.Min.X < b.Max.X &&
		b.Min.Y < other.Max.Y && other.Min.Y < b.Max.Y &&
		b.Min.Z < other.Max.Z && other.Min.Z < b.Max.Z
}

// Clip returns the intersection of b with other. The result IsEmpty when the boxes do not overlap.
func (b BoundingBox) Clip(other BoundingBox) BoundingBox {
	return BoundingBox{
		Min: r3.Vector{X: math.Max(b.Min.X, other.Min.X), Y: math.Max(b.Min.Y, other.Min.Y), Z: math.Max(b.Min.Z, other.Min.Z)},
		Max: r3.Vector{X: math.Min(b.Max.X, other.Max.X), Y: math.Min(b.Max.Y, other.Max.Y), Z: math.Min(b.Max.Z, other.Max.Z)},
	}
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		Min: r3.Vector{X: math.Min(b.Min.X, other.Min.X), Y: math.Min(b.Min.Y, other.Min.Y), Z: math.Min(b.Min.Z, other.Min.Z)},
		Max: r3.Vector{X: math.Max(b.Max.X, other.Max.X), Y: math.Max(b.Max.Y, other.Max.Y), Z: math.Max(b.Max.Z, other.Max.Z)},
	}
}

// Contains returns true if pt lies in the closed box.
func (b BoundingBox) Contains(pt r3.Vector) bool {
	return pt.X >= b.Min.X && pt.X <= b.Max.X &&
		pt.Y >= b.Min.Y && pt.Y <= b.Max.Y &&
		pt.Z >= b.Min.Z && pt.Z <= b.Max.Z
}

// ContainsBox returns true if other lies entirely inside b.
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	return b.Contains(other.Min) && b.Contains(other.Max)
}

// Extent returns the side lengths of the box.
func (b BoundingBox) Extent() r3.Vector {
	return b.Max.Sub(b.Min)
}

// MaxExtent returns the largest side length of the box.
func (b BoundingBox) MaxExtent() float64 {
	e := b.Extent()
	return math.Max(e.X, math.Max(e.Y, e.Z))
}

// LongestAxis returns 0, 1 or 2 for the x, y or z axis along which the box is longest.
func (b BoundingBox) LongestAxis() int {
	e := b.Extent()
	switch {
	case e.X >= e.Y && e.X >= e.Z:
		return 0
	case e.Y >= e.Z:
		return 1
	default:
		return 2
	}
}

// Center returns the center point of the box.
func (b BoundingBox) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[(%.4f, %.4f, %.4f) - (%.4f, %.4f, %.4f)]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

// AxisValue returns the component of v along axis 0, 1 or 2.
func AxisValue(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
