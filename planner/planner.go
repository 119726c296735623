// Package planner owns the derived data of the viewpoint planner: the augmented occupancy
// tree, the BVH over its occupied and unknown voxels and the distance field of the surface
// mesh. Each artifact is loaded from its cache file when that is up to date with its
// source and regenerated otherwise.
package planner

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/viewpoint/augment"
	"go.viam.com/viewpoint/bvh"
	"go.viam.com/viewpoint/config"
	"go.viam.com/viewpoint/distancefield"
	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/reconstruction"
	"go.viam.com/viewpoint/spatialmath"
	"go.viam.com/viewpoint/utils"
	"go.viam.com/viewpoint/weights"
)

// Artifact names one of the cached artifacts.
type Artifact int

// The cached artifacts in the order they are derived.
const (
	AugmentedTree Artifact = iota
	BVH
	DistanceField
)

func (a Artifact) String() string {
	switch a {
	case AugmentedTree:
		return "augmented tree"
	case BVH:
		return "BVH"
	case DistanceField:
		return "distance field"
	default:
		return fmt.Sprintf("Artifact(%d)", int(a))
	}
}

// Option customizes how NewData derives artifacts.
type Option func(*options)

type options struct {
	transformer distancefield.Transformer
}

// WithTransformer sets the distance transform used to generate the distance field.
func WithTransformer(transformer distancefield.Transformer) Option {
	return func(o *options) {
		o.transformer = transformer
	}
}

// Data is the derived data consumed by a viewpoint planner. It is safe for concurrent
// reads once NewData returns.
type Data struct {
	cfg    config.Config
	logger logging.Logger
	opts   options

	mesh           *spatialmath.Mesh
	reconstruction *reconstruction.Workspace
	tree           *octree.Tree
	hierarchy      *bvh.BVH
	field          *distancefield.Field
	regenerated    []Artifact
}

// NewData loads the inputs named by cfg and brings the cached artifacts up to date.
//
// The augmented tree is regenerated when missing or older than the raw tree, the BVH when
// missing or older than the augmented tree file, and the distance field when missing,
// older than the mesh, or computed on a grid other than the one laid over the current BVH.
// If anything was regenerated the weights of tree and BVH are recomputed from the distance
// field and both are written again.
func NewData(ctx context.Context, cfg config.Config, logger logging.Logger, opts ...Option) (*Data, error) {
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	d := &Data{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(&d.opts)
	}

	if err := d.readMesh(); err != nil {
		return nil, err
	}
	ws, err := reconstruction.Read(cfg.DenseReconstructionPath, logger.Sublogger("reconstruction"))
	if err != nil {
		return nil, errors.Wrap(err, "reading dense reconstruction")
	}
	d.reconstruction = ws

	for _, step := range []struct {
		artifact Artifact
		load     func(ctx context.Context) (bool, error)
	}{
		{AugmentedTree, d.readAndAugmentTree},
		{BVH, d.readBVH},
		{DistanceField, d.readDistanceField},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		generated, err := step.load(ctx)
		if err != nil {
			return nil, err
		}
		if generated {
			d.regenerated = append(d.regenerated, step.artifact)
		}
	}

	if len(d.regenerated) > 0 {
		if err := d.updateWeights(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Data) readMesh() error {
	mesh, err := spatialmath.ReadMesh(d.cfg.PoissonMeshFilename)
	if err != nil {
		return errors.Wrap(err, "reading mesh")
	}
	d.mesh = mesh
	d.logger.Infow("Loaded mesh", "path", d.cfg.PoissonMeshFilename, "triangles", mesh.NumFaces())
	return nil
}

// readAndAugmentTree loads the cached augmented tree or derives it from the raw tree.
func (d *Data) readAndAugmentTree(ctx context.Context) (bool, error) {
	path := d.cfg.OctreeFilename
	stale, err := utils.IsStale(path, d.cfg.RawOctreeFilename)
	if err != nil {
		return false, errors.Wrap(err, "checking augmented tree")
	}
	if !stale {
		d.logger.Infow("Loading up-to-date cached augmented tree", "path", path)
		tree, err := octree.ReadFile(path)
		if err != nil {
			return false, errors.Wrap(err, "reading cached augmented tree")
		}
		if tree.Kind() != octree.Augmented {
			return false, errors.Errorf("cached tree %q is a %s tree", path, tree.Kind())
		}
		tree.SetThresholds(d.cfg.Thresholds())
		d.tree = tree
		return false, nil
	}

	d.logger.Infow("Cached augmented tree is missing or old, regenerating it", "path", path)
	raw, err := d.readRawTree()
	if err != nil {
		return false, err
	}
	tree, _, err := augment.Augment(ctx, raw, d.cfg.Augmentation, d.logger.Sublogger("augment"))
	if err != nil {
		return false, errors.Wrap(err, "augmenting tree")
	}
	if err := tree.WriteFile(path); err != nil {
		return false, errors.Wrap(err, "writing augmented tree")
	}
	d.tree = tree
	return true, nil
}

func (d *Data) readRawTree() (*octree.Tree, error) {
	path := d.cfg.RawOctreeFilename
	timer := utils.NewTimer(nil)
	raw, err := octree.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading raw tree")
	}
	if raw.Kind() != octree.Raw {
		return nil, errors.Errorf("input tree %q is an %s tree", path, raw.Kind())
	}
	raw.SetThresholds(d.cfg.Thresholds())
	timer.LogTiming(d.logger, "Loading raw tree")

	stats := raw.Stats()
	d.logger.Infow("Loaded raw tree",
		"path", path,
		"leaves", stats.Leaves,
		"nodes", stats.Nodes,
		"unknown_nodes", stats.UnknownNodes,
		"unknown_leaves", stats.UnknownLeaves,
	)
	d.logger.Infow("Raw tree metric extents",
		"size", stats.MetricSize(),
		"min", stats.MetricMin,
		"max", stats.MetricMax,
	)
	return raw, nil
}

// readBVH loads the cached BVH or builds it from the augmented tree.
func (d *Data) readBVH(context.Context) (bool, error) {
	path := d.cfg.BVHFilename
	stale, err := utils.IsStale(path, d.cfg.OctreeFilename)
	if err != nil {
		return false, errors.Wrap(err, "checking BVH")
	}
	generated := false
	if stale {
		d.logger.Infow("Cached BVH is missing or old, regenerating it", "path", path)
		hierarchy, err := bvh.BuildFromOctree(d.tree, d.cfg.ROI, d.logger.Sublogger("bvh"))
		if err != nil {
			return false, errors.Wrap(err, "building BVH")
		}
		if err := hierarchy.WriteFile(path); err != nil {
			return false, errors.Wrap(err, "writing BVH")
		}
		d.hierarchy = hierarchy
		generated = true
	} else {
		d.logger.Infow("Loading up-to-date cached BVH", "path", path)
		hierarchy, err := bvh.ReadFile(path)
		if err != nil {
			return false, errors.Wrap(err, "reading cached BVH")
		}
		d.hierarchy = hierarchy
	}
	d.logger.Infow("BVH bounding box", "objects", d.hierarchy.Len(), "root", d.hierarchy.Root())
	return generated, nil
}

// readDistanceField loads the cached distance field or generates it from the mesh over
// the grid laid on the BVH bounding box.
func (d *Data) readDistanceField(context.Context) (bool, error) {
	path := d.cfg.DistanceFieldFilename
	geometry, err := distancefield.NewGridGeometry(d.hierarchy.Root(), d.cfg.GridDimension)
	if err != nil {
		return false, errors.Wrap(err, "laying distance field grid")
	}
	stale, err := utils.IsStale(path, d.cfg.PoissonMeshFilename)
	if err != nil {
		return false, errors.Wrap(err, "checking distance field")
	}
	if !stale {
		field, err := distancefield.ReadFile(path)
		if err != nil {
			return false, errors.Wrap(err, "reading cached distance field")
		}
		if field.Matches(geometry, d.cfg.DistanceFieldCutoff) {
			d.logger.Infow("Loaded up-to-date cached distance field", "path", path)
			d.field = field
			return false, nil
		}
		d.logger.Infow("Cached distance field was computed on another grid, regenerating it", "path", path)
	} else {
		d.logger.Infow("Cached distance field is missing or old, regenerating it", "path", path)
	}

	timer := utils.NewTimer(nil)
	field, err := distancefield.Generate(d.mesh, d.hierarchy.Root(), d.cfg.GridDimension,
		d.cfg.DistanceFieldCutoff, d.opts.transformer)
	if err != nil {
		return false, errors.Wrap(err, "generating distance field")
	}
	timer.LogTiming(d.logger, "Generating distance field")
	if summary, err := field.Summarize(); err != nil {
		d.logger.Debugw("Cannot summarize distance field", "error", err)
	} else {
		d.logger.Infow("Distance field",
			"min", summary.Min,
			"max", summary.Max,
			"mean", summary.Mean,
			"median", summary.Median,
			"at_cutoff", summary.AtCutoff,
		)
	}
	if err := field.WriteFile(path); err != nil {
		return false, errors.Wrap(err, "writing distance field")
	}
	d.field = field
	return true, nil
}

// updateWeights rewrites the weights from the distance field and persists tree and BVH,
// the tree first so the BVH stays fresh with respect to it.
func (d *Data) updateWeights() error {
	d.logger.Infow("Updating weights", "regenerated", d.regenerated)
	if _, err := weights.Update(d.tree, d.hierarchy, d.field, d.logger.Sublogger("weights")); err != nil {
		return errors.Wrap(err, "updating weights")
	}
	d.logger.Info("Writing updated augmented tree")
	if err := d.tree.WriteFile(d.cfg.OctreeFilename); err != nil {
		return errors.Wrap(err, "writing augmented tree")
	}
	d.logger.Info("Writing updated BVH")
	if err := d.hierarchy.WriteFile(d.cfg.BVHFilename); err != nil {
		return errors.Wrap(err, "writing BVH")
	}
	return nil
}

// Tree returns the augmented occupancy tree.
func (d *Data) Tree() *octree.Tree {
	return d.tree
}

// BVH returns the hierarchy over the occupied and unknown voxels within the region of interest.
func (d *Data) BVH() *bvh.BVH {
	return d.hierarchy
}

// DistanceField returns the distance field of the mesh.
func (d *Data) DistanceField() *distancefield.Field {
	return d.field
}

// Geometry returns the grid geometry of the distance field.
func (d *Data) Geometry() distancefield.GridGeometry {
	return d.field.Geometry
}

// Mesh returns the surface mesh.
func (d *Data) Mesh() *spatialmath.Mesh {
	return d.mesh
}

// Reconstruction returns the dense reconstruction workspace.
func (d *Data) Reconstruction() *reconstruction.Workspace {
	return d.reconstruction
}

// Regenerated returns the artifacts that were regenerated rather than loaded.
func (d *Data) Regenerated() []Artifact {
	return d.regenerated
}

// Config returns the configuration the data was derived with.
func (d *Data) Config() config.Config {
	return d.cfg
}
