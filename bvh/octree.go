package bvh

import (
	"github.com/samber/lo"

	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/spatialmath"
	"go.viam.com/viewpoint/utils"
)

// ObjectsFromOctree returns one object per leaf of tree that is not both free and known,
// with the leaf's cube clipped to roi. Leaves whose clipped box is empty are dropped.
func ObjectsFromOctree(tree *octree.Tree, roi spatialmath.BoundingBox) []ObjectWithBoundingBox {
	return lo.FilterMap(tree.Leaves(), func(id octree.NodeID, _ int) (ObjectWithBoundingBox, bool) {
		if tree.IsFree(id) && tree.IsKnown(id) {
			return ObjectWithBoundingBox{}, false
		}
		box := tree.BoundingBox(id).Clip(roi)
		if box.IsEmpty() {
			return ObjectWithBoundingBox{}, false
		}
		return ObjectWithBoundingBox{
			Box: box,
			Object: NodeObject{
				Occupancy:        tree.Occupancy(id),
				ObservationCount: tree.ObservationCount(id),
				Weight:           tree.Weight(id),
			},
		}, true
	})
}

// BuildFromOctree builds the hierarchy over the occupied and unknown leaves of tree
// within roi.
func BuildFromOctree(tree *octree.Tree, roi spatialmath.BoundingBox, logger logging.Logger) (*BVH, error) {
	objects := ObjectsFromOctree(tree, roi)
	logger.Infow("Building BVH tree", "objects", len(objects))
	timer := utils.NewTimer(nil)
	b, err := Build(objects)
	if err != nil {
		return nil, err
	}
	timer.LogTiming(logger, "Built BVH tree")
	return b, nil
}
