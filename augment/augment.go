package augment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/utils"
)

// ErrOverlappingQuery means two query subtrees overlapped during the broadcast. Query nodes
// all sit at one depth, so this can only be caused by a broken tree implementation.
var ErrOverlappingQuery = errors.New("query subtrees overlap")

// Stats reports diagnostics of one augmentation.
type Stats struct {
	QueryNodes  int
	MaxWeight   float64
	CopyTime    time.Duration
	AugmentTime time.Duration
}

// Augment copies raw into a new augmented tree and weighs it. Every query node at the
// configured sample depth gets the sum of the contributions of the observed, occupied
// nodes around it, and that sum is written to the query node and all of its descendants.
// Both the input and the resulting tree must be consistent.
func Augment(ctx context.Context, raw *octree.Tree, cfg Config, logger logging.Logger) (*octree.Tree, Stats, error) {
	var stats Stats
	if err := cfg.Validate("augmentation"); err != nil {
		return nil, stats, err
	}
	if err := raw.CheckConsistency(); err != nil {
		return nil, stats, errors.Wrap(err, "inconsistent input tree")
	}

	timer := utils.NewTimer(nil)
	aug := raw.CloneAugmented()
	stats.CopyTime = timer.LogTiming(logger, "Copying raw tree")

	queries := aug.NodesAtDepth(cfg.SampleDepth)
	stats.QueryNodes = len(queries)
	if len(queries) == 0 {
		logger.Warnw("no query nodes at sample depth, all weights stay 0",
			"sample_depth", cfg.SampleDepth, "max_depth", aug.MaxDepth())
	}

	contribution := cfg.contribution()
	totals := make([]float64, len(queries))
	err := utils.GroupWorkParallel(ctx, len(queries), cfg.Parallelism,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) error {
				query := queries[workNum]
				total, err := aggregate(aug, query, cfg, contribution)
				if err != nil {
					return err
				}
				totals[workNum] = total
				return broadcast(aug, query, total)
			}, nil
		})
	if err != nil {
		return nil, stats, err
	}
	if len(totals) > 0 {
		stats.MaxWeight = floats.Max(totals)
	}
	stats.AugmentTime = timer.LogTiming(logger, "Augmenting tree")
	logger.Infow("Maximum weight", "max_weight", stats.MaxWeight, "query_nodes", stats.QueryNodes)

	if err := aug.CheckConsistency(); err != nil {
		return nil, stats, errors.Wrap(err, "inconsistent output tree")
	}
	return aug, stats, nil
}

// aggregate sums the contributions of the observed, occupied nodes in the neighborhood of
// query: the subtree rooted Reach levels above it, cut off at CutoffDepth.
func aggregate(tree *octree.Tree, query octree.NodeID, cfg Config, contribution ContributionFunc) (float64, error) {
	ancestor, err := tree.Ancestor(query, cfg.Reach)
	if err != nil {
		return 0, err
	}
	var total float64
	tree.Walk(ancestor, func(id octree.NodeID) bool {
		if !tree.IsLeaf(id) && tree.Depth(id) < cfg.CutoffDepth {
			return true
		}
		if tree.IsKnown(id) && tree.IsOccupied(id) {
			total += contribution(tree, query, id)
		}
		return false
	})
	return total, nil
}

func broadcast(tree *octree.Tree, query octree.NodeID, weight float64) error {
	var err error
	tree.Walk(query, func(id octree.NodeID) bool {
		if err != nil {
			return false
		}
		if tree.Weight(id) != 0 {
			err = errors.Wrapf(ErrOverlappingQuery, "node %s already has weight %g", tree.Key(id), tree.Weight(id))
			return false
		}
		tree.SetWeight(id, weight)
		return true
	})
	return err
}
