package distancefield

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/viewpoint/artifact"
	"go.viam.com/viewpoint/spatialmath"
)

var fieldFormat = artifact.NewFormat("VPDF", 1)

// Field is a distance field together with the grid geometry it was computed on and the
// cutoff its values were clipped to.
type Field struct {
	Geometry GridGeometry
	Cutoff   float64
	grid     *Grid
}

// Grid returns the field values.
func (f *Field) Grid() *Grid {
	return f.grid
}

// At returns the distance stored in cell (x, y, z).
func (f *Field) At(x, y, z int) float64 {
	return f.grid.At(x, y, z)
}

// Matches returns true if the field was computed on geometry with the given cutoff.
func (f *Field) Matches(geometry GridGeometry, cutoff float64) bool {
	return f.Geometry == geometry && f.Cutoff == cutoff
}

// Generate computes the distance field of mesh over the grid laid on box. Every triangle
// centroid inside the grid seeds its nearest cell with the centroid's distance to that
// cell in voxel units; transformer then propagates the seeds and the result is clipped
// to cutoff.
func Generate(
	mesh *spatialmath.Mesh,
	box spatialmath.BoundingBox,
	dim int,
	cutoff float64,
	transformer Transformer,
) (*Field, error) {
	if !(cutoff >= 0) {
		return nil, errors.Errorf("distance field cutoff must not be negative, got %g", cutoff)
	}
	geometry, err := NewGridGeometry(box, dim)
	if err != nil {
		return nil, err
	}
	triangles, err := mesh.Triangles()
	if err != nil {
		return nil, err
	}

	seeds := NewGrid(dim, math.Inf(1))
	for _, tri := range triangles {
		centroid := tri.Centroid()
		if !geometry.IsInside(centroid) {
			continue
		}
		x, y, z := geometry.Indices(centroid)
		dist := geometry.Position(x, y, z).Distance(centroid) / geometry.Increment
		if dist < seeds.At(x, y, z) {
			seeds.Set(x, y, z, dist)
		}
	}

	if transformer == nil {
		transformer = ChamferTransform{}
	}
	grid, err := transformer.Transform(seeds)
	if err != nil {
		return nil, errors.Wrap(err, "propagating distance field")
	}
	if grid.Dimension() != dim {
		return nil, errors.Errorf("distance transform returned a grid of dimension %d, expected %d", grid.Dimension(), dim)
	}
	grid.Clip(cutoff)
	return &Field{Geometry: geometry, Cutoff: cutoff, grid: grid}, nil
}

// Summary describes the distribution of values of a field.
type Summary struct {
	Min, Max, Mean, Median float64

	// AtCutoff is the fraction of cells clipped to the cutoff.
	AtCutoff float64
}

// Summarize computes the value distribution of the field.
func (f *Field) Summarize() (Summary, error) {
	data := stats.Float64Data(f.grid.Values())
	var s Summary
	var err error
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	clipped := 0
	for _, v := range data {
		if v >= f.Cutoff {
			clipped++
		}
	}
	s.AtCutoff = float64(clipped) / float64(len(data))
	return s, nil
}

// MarshalBinary encodes the geometry, cutoff and values of the field.
func (f *Field) MarshalBinary() ([]byte, error) {
	g := f.Geometry
	dim := g.Dimension
	enc := artifact.NewEncoder(96 + 8*dim*dim*dim)
	enc.Vector(g.Origin)
	enc.Float64(g.Increment)
	enc.Uint32(uint32(dim))
	enc.Vector(g.Bounds.Min)
	enc.Vector(g.Bounds.Max)
	enc.Float64(f.Cutoff)
	for x := 0; x < dim; x++ {
		for y := 0; y < dim; y++ {
			for z := 0; z < dim; z++ {
				enc.Float64(f.grid.At(x, y, z))
			}
		}
	}
	return enc.Bytes(), nil
}

// Unmarshal decodes a field written by MarshalBinary.
func Unmarshal(data []byte) (*Field, error) {
	dec := artifact.NewDecoder(data)
	var g GridGeometry
	g.Origin = dec.Vector()
	g.Increment = dec.Float64()
	g.Dimension = int(dec.Uint32())
	g.Bounds.Min = dec.Vector()
	g.Bounds.Max = dec.Vector()
	cutoff := dec.Float64()
	if err := dec.Err(); err != nil {
		return nil, err
	}
	dim := g.Dimension
	if dim <= 0 || dim > MaxDimension || dec.Remaining() != 8*dim*dim*dim {
		return nil, errors.Wrapf(artifact.ErrCorrupt, "distance field of dimension %d does not match %d bytes of values",
			dim, dec.Remaining())
	}
	grid := NewGrid(dim, 0)
	for x := 0; x < dim; x++ {
		for y := 0; y < dim; y++ {
			for z := 0; z < dim; z++ {
				grid.Set(x, y, z, dec.Float64())
			}
		}
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	return &Field{Geometry: g, Cutoff: cutoff, grid: grid}, nil
}

// WriteFile atomically writes the field to path.
func (f *Field) WriteFile(path string) error {
	payload, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return fieldFormat.WriteFile(path, payload)
}

// ReadFile loads a field written by WriteFile.
func ReadFile(path string) (*Field, error) {
	payload, err := fieldFormat.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Unmarshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding distance field %q", path)
	}
	return f, nil
}
