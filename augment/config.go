// Package augment derives an augmented occupancy tree from a raw one, assigning every node
// below the sampling depth the weight aggregated around its sampled ancestor.
package augment

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/utils"
)

// Defaults for Config.
const (
	DefaultSampleDepth = 12
	DefaultReach       = 2
	DefaultCutoffDepth = 16
	DefaultParallelism = 1
)

// ContributionFunc returns the weight that the explored node adds to the total of the
// query node. It must depend only on the occupancy and observation count of node and on
// the relative position of the two nodes. It must not read weights: with a parallelism
// above 1 other query subtrees are being written while it runs.
type ContributionFunc func(tree *octree.Tree, query, node octree.NodeID) float64

// InverseDistanceContribution weighs the node's occupancy times its observation count by
// the inverse of its distance to the query node, with distances clipped from below at
// half the query node's size so nearby nodes contribute in full.
func InverseDistanceContribution(tree *octree.Tree, query, node octree.NodeID) float64 {
	cutoff := 0.5 * tree.Size(query)
	dist := tree.Center(node).Distance(tree.Center(query))
	return tree.Occupancy(node) * float64(tree.ObservationCount(node)) * cutoff / math.Max(cutoff, dist)
}

// Config tunes the augmentation.
type Config struct {
	// SampleDepth is the depth of the query nodes.
	SampleDepth int `json:"sample_depth" yaml:"sample_depth" toml:"sample_depth"`
	// Reach is how many levels above a query node the explored neighborhood is rooted.
	Reach int `json:"reach" yaml:"reach" toml:"reach"`
	// CutoffDepth is the depth at which exploration stops descending.
	CutoffDepth int `json:"cutoff_depth" yaml:"cutoff_depth" toml:"cutoff_depth"`
	// Parallelism is the number of query node groups processed concurrently; 0 means one
	// per available processor.
	Parallelism int `json:"parallelism" yaml:"parallelism" toml:"parallelism"`

	Contribution ContributionFunc `json:"-" yaml:"-" toml:"-"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		SampleDepth: DefaultSampleDepth,
		Reach:       DefaultReach,
		CutoffDepth: DefaultCutoffDepth,
		Parallelism: DefaultParallelism,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Reach <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("reach must be positive, got %d", cfg.Reach))
	}
	if cfg.SampleDepth-cfg.Reach <= 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("sample_depth (%d) must be greater than reach (%d)", cfg.SampleDepth, cfg.Reach))
	}
	if cfg.CutoffDepth <= cfg.SampleDepth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("cutoff_depth (%d) must be greater than sample_depth (%d)", cfg.CutoffDepth, cfg.SampleDepth))
	}
	if cfg.CutoffDepth > octree.MaxSupportedDepth {
		return utils.NewConfigValidationError(path,
			errors.Errorf("cutoff_depth (%d) must not exceed %d", cfg.CutoffDepth, octree.MaxSupportedDepth))
	}
	if cfg.Parallelism < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("parallelism must not be negative, got %d", cfg.Parallelism))
	}
	return nil
}

func (cfg *Config) contribution() ContributionFunc {
	if cfg.Contribution == nil {
		return InverseDistanceContribution
	}
	return cfg.Contribution
}
