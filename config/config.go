// Package config defines the configuration of the viewpoint planner data pipeline: where
// its inputs and cached artifacts live and how the artifacts are derived.
package config

import (
	"github.com/pkg/errors"

	"go.viam.com/viewpoint/augment"
	"go.viam.com/viewpoint/distancefield"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/spatialmath"
	"go.viam.com/viewpoint/utils"
)

// Defaults applied to values missing from a config file.
const (
	DefaultGridDimension       = 64
	DefaultDistanceFieldCutoff = 5.0
)

// Suffixes of the cached artifacts derived from their source files.
const (
	AugmentedTreeSuffix = ".aug"
	BVHSuffix           = ".bvh"
	DistanceFieldSuffix = ".df"
)

// Config describes one pipeline run.
type Config struct {
	// ROI restricts the voxels indexed by the BVH.
	ROI spatialmath.BoundingBox `json:"roi_bbox" yaml:"roi_bbox" toml:"roi_bbox"`
	// GridDimension is the number of distance field cells per axis.
	GridDimension int `json:"grid_dimension" yaml:"grid_dimension" toml:"grid_dimension"`
	// DistanceFieldCutoff is the largest distance, in voxels, stored in the distance field.
	DistanceFieldCutoff float64 `json:"distance_field_cutoff" yaml:"distance_field_cutoff" toml:"distance_field_cutoff"`

	DenseReconstructionPath string `json:"dense_reconstruction_path" yaml:"dense_reconstruction_path" toml:"dense_reconstruction_path"`
	RawOctreeFilename       string `json:"raw_octree_filename" yaml:"raw_octree_filename" toml:"raw_octree_filename"`
	PoissonMeshFilename     string `json:"poisson_mesh_filename" yaml:"poisson_mesh_filename" toml:"poisson_mesh_filename"`

	// OctreeFilename defaults to the raw octree filename with AugmentedTreeSuffix.
	OctreeFilename string `json:"octree_filename" yaml:"octree_filename" toml:"octree_filename"`
	// BVHFilename defaults to the augmented octree filename with BVHSuffix.
	BVHFilename string `json:"bvh_filename" yaml:"bvh_filename" toml:"bvh_filename"`
	// DistanceFieldFilename defaults to the mesh filename with DistanceFieldSuffix.
	DistanceFieldFilename string `json:"distance_field_filename" yaml:"distance_field_filename" toml:"distance_field_filename"`

	Augmentation augment.Config `json:"augmentation" yaml:"augmentation" toml:"augmentation"`

	OccupancyThreshold float64 `json:"occupancy_threshold" yaml:"occupancy_threshold" toml:"occupancy_threshold"`
	FreeThreshold      float64 `json:"free_threshold" yaml:"free_threshold" toml:"free_threshold"`
}

// Default returns a config with every optional value set to its default.
func Default() Config {
	return Config{
		GridDimension:       DefaultGridDimension,
		DistanceFieldCutoff: DefaultDistanceFieldCutoff,
		Augmentation:        augment.DefaultConfig(),
		OccupancyThreshold:  octree.DefaultThresholds.Occupied,
		FreeThreshold:       octree.DefaultThresholds.Free,
	}
}

// Thresholds returns the occupancy classification of the config.
func (c *Config) Thresholds() octree.Thresholds {
	return octree.Thresholds{Occupied: c.OccupancyThreshold, Free: c.FreeThreshold}
}

// Ensure fills in derived filenames and validates the config.
func (c *Config) Ensure() error {
	if c.OctreeFilename == "" && c.RawOctreeFilename != "" {
		c.OctreeFilename = c.RawOctreeFilename + AugmentedTreeSuffix
	}
	if c.BVHFilename == "" && c.OctreeFilename != "" {
		c.BVHFilename = c.OctreeFilename + BVHSuffix
	}
	if c.DistanceFieldFilename == "" && c.PoissonMeshFilename != "" {
		c.DistanceFieldFilename = c.PoissonMeshFilename + DistanceFieldSuffix
	}
	return c.Validate("")
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	for _, required := range []struct {
		field string
		value string
	}{
		{"dense_reconstruction_path", c.DenseReconstructionPath},
		{"raw_octree_filename", c.RawOctreeFilename},
		{"poisson_mesh_filename", c.PoissonMeshFilename},
		{"octree_filename", c.OctreeFilename},
		{"bvh_filename", c.BVHFilename},
		{"distance_field_filename", c.DistanceFieldFilename},
	} {
		if required.value == "" {
			return utils.NewConfigValidationFieldRequiredError(path, required.field)
		}
	}
	if c.OctreeFilename == c.RawOctreeFilename {
		return utils.NewConfigValidationError(path,
			errors.Errorf("octree_filename must differ from raw_octree_filename %q", c.RawOctreeFilename))
	}

	if c.ROI == (spatialmath.BoundingBox{}) {
		return utils.NewConfigValidationFieldRequiredError(path, "roi_bbox")
	}
	if c.ROI.IsEmpty() {
		return utils.NewConfigValidationError(path, errors.Errorf("roi_bbox %s has no volume", c.ROI))
	}
	if c.GridDimension <= 0 || c.GridDimension > distancefield.MaxDimension {
		return utils.NewConfigValidationError(path,
			errors.Errorf("grid_dimension must be within [1, %d], got %d", distancefield.MaxDimension, c.GridDimension))
	}
	if !(c.DistanceFieldCutoff > 0) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("distance_field_cutoff must be positive, got %g", c.DistanceFieldCutoff))
	}
	if c.FreeThreshold < 0 || c.OccupancyThreshold > 1 || c.FreeThreshold > c.OccupancyThreshold {
		return utils.NewConfigValidationError(path,
			errors.Errorf("thresholds must satisfy 0 <= free_threshold (%g) <= occupancy_threshold (%g) <= 1",
				c.FreeThreshold, c.OccupancyThreshold))
	}
	return c.Augmentation.Validate(joinPath(path, "augmentation"))
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}
