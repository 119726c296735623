package distancefield

import (
	"container/heap"
	"math"
)

// Transformer propagates a seed grid into a full distance field. Unseeded cells hold +Inf.
// In the result every cell holds the smallest seed value plus the distance, in voxel
// units, to that seed.
type Transformer interface {
	Transform(seeds *Grid) (*Grid, error)
}

// ChamferTransform is a chamfer distance transform over the 26-neighborhood: steps along
// an axis cost 1, across a face diagonal √2 and across a cube diagonal √3. Distances are
// exact along those directions and overestimate the Euclidean distance by at most a few
// percent elsewhere.
type ChamferTransform struct{}

type cell struct {
	x, y, z int
	dist    float64
}

type cellHeap []cell

func (h cellHeap) Len() int            { return len(h) }
func (h cellHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h cellHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *cellHeap) Push(x interface{}) { *h = append(*h, x.(cell)) }
func (h *cellHeap) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// Transform runs a multi-source shortest path search from every seeded cell.
func (ChamferTransform) Transform(seeds *Grid) (*Grid, error) {
	dim := seeds.Dimension()
	out := NewGrid(dim, math.Inf(1))
	h := &cellHeap{}
	for x := 0; x < dim; x++ {
		for y := 0; y < dim; y++ {
			for z := 0; z < dim; z++ {
				if v := seeds.At(x, y, z); !math.IsInf(v, 1) {
					out.Set(x, y, z, v)
					*h = append(*h, cell{x, y, z, v})
				}
			}
		}
	}
	heap.Init(h)

	for h.Len() > 0 {
		c := heap.Pop(h).(cell)
		if c.dist > out.At(c.x, c.y, c.z) {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					nx, ny, nz := c.x+dx, c.y+dy, c.z+dz
					if nx < 0 || ny < 0 || nz < 0 || nx >= dim || ny >= dim || nz >= dim {
						continue
					}
					steps := dx*dx + dy*dy + dz*dz
					if steps == 0 {
						continue
					}
					d := c.dist + stepCost[steps]
					if d < out.At(nx, ny, nz) {
						out.Set(nx, ny, nz, d)
						heap.Push(h, cell{nx, ny, nz, d})
					}
				}
			}
		}
	}
	return out, nil
}

var stepCost = [4]float64{0, 1, math.Sqrt2, math.Sqrt(3)}
