// Package weights rewrites the weights of an augmented tree and its BVH from a distance
// field: cells close to the mesh surface weigh close to 1, the farthest cells weigh 0.
package weights

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/viewpoint/bvh"
	"go.viam.com/viewpoint/distancefield"
	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/utils"
)

// Stats reports diagnostics of one weight update.
type Stats struct {
	Cells          int
	MaxDistance    float64
	ObjectUpdates  int
	LeafUpdates    int
	MinWeight      float64
	MaxWeight      float64
	MeanWeight     float64
	UpdatedObjects int
	UpdatedLeaves  int
}

// Weight maps a cell distance to a weight, ((maxDistance - d) / maxDistance)². A field
// without any positive distance puts every cell on the surface and weighs it 1.
func Weight(d, maxDistance float64) float64 {
	if !(maxDistance > 0) {
		return 1
	}
	inv := (maxDistance - d) / maxDistance
	return inv * inv
}

// Update resets every weight of tree and hierarchy and then, for every cell of field,
// writes the cell's weight to all BVH objects and tree leaves overlapping the cell's cube.
// Cells are visited in x, y, z order, so an object or leaf spanning several cells keeps
// the weight of the last one. Inner tree nodes are recomputed from their children afterwards.
//
// Unlike a reset of the tree weights alone, BVH objects are zeroed too, so an object that
// no cell overlaps ends with weight 0 like its leaf instead of keeping its augmentation
// weight.
//
// Update mutates tree and hierarchy in place and must not run concurrently with readers
// of either.
func Update(tree *octree.Tree, hierarchy *bvh.BVH, field *distancefield.Field, logger logging.Logger) (Stats, error) {
	var s Stats
	if tree.Kind() != octree.Augmented {
		return s, errors.Errorf("cannot update weights of a %s tree", tree.Kind())
	}
	timer := utils.NewTimer(nil)
	tree.ResetWeights()
	for i := 0; i < hierarchy.Len(); i++ {
		hierarchy.SetWeight(i, 0)
	}

	g := field.Geometry
	s.MaxDistance = field.Grid().Max()
	objects := make(map[int]struct{})
	leaves := make(map[octree.NodeID]struct{})
	cellWeights := make(stats.Float64Data, 0, g.Dimension*g.Dimension*g.Dimension)
	for x := 0; x < g.Dimension; x++ {
		for y := 0; y < g.Dimension; y++ {
			for z := 0; z < g.Dimension; z++ {
				w := Weight(field.At(x, y, z), s.MaxDistance)
				cellWeights = append(cellWeights, w)
				box := g.CellBox(x, y, z)
				for _, hit := range hierarchy.Intersects(box) {
					hierarchy.SetWeight(hit.Index, w)
					objects[hit.Index] = struct{}{}
					s.ObjectUpdates++
				}
				for _, leaf := range tree.LeavesInBox(box) {
					tree.SetWeight(leaf, w)
					leaves[leaf] = struct{}{}
					s.LeafUpdates++
				}
			}
		}
	}
	tree.UpdateInnerOccupancy()

	s.Cells = len(cellWeights)
	s.UpdatedObjects = len(objects)
	s.UpdatedLeaves = len(leaves)
	var err error
	if s.MinWeight, err = cellWeights.Min(); err != nil {
		return s, errors.Wrap(err, "summarizing weights")
	}
	if s.MaxWeight, err = cellWeights.Max(); err != nil {
		return s, errors.Wrap(err, "summarizing weights")
	}
	if s.MeanWeight, err = cellWeights.Mean(); err != nil {
		return s, errors.Wrap(err, "summarizing weights")
	}

	timer.LogTiming(logger, "Updating weights")
	logger.Infow("Updated weights",
		"cells", s.Cells,
		"max_distance", s.MaxDistance,
		"objects", s.UpdatedObjects,
		"leaves", s.UpdatedLeaves,
		"min_weight", s.MinWeight,
		"max_weight", s.MaxWeight,
		"mean_weight", s.MeanWeight,
	)
	return s, nil
}
