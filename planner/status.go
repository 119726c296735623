package planner

import (
	"time"

	"go.viam.com/viewpoint/config"
	"go.viam.com/viewpoint/utils"
)

// ArtifactStatus describes a cache file and the source it is derived from.
type ArtifactStatus struct {
	Artifact Artifact
	Path     string
	Source   string
	Exists   bool
	Stale    bool
	Size     int64
	ModTime  time.Time
}

// Status reports the cache files named by cfg without loading or regenerating anything.
// Only the timestamp rule is checked, so a distance field laid on an outdated grid is
// reported fresh here and still regenerated by NewData.
func Status(cfg config.Config) ([]ArtifactStatus, error) {
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	statuses := []ArtifactStatus{
		{Artifact: AugmentedTree, Path: cfg.OctreeFilename, Source: cfg.RawOctreeFilename},
		{Artifact: BVH, Path: cfg.BVHFilename, Source: cfg.OctreeFilename},
		{Artifact: DistanceField, Path: cfg.DistanceFieldFilename, Source: cfg.PoissonMeshFilename},
	}
	for i := range statuses {
		s := &statuses[i]
		modTime, exists, err := utils.ModTime(s.Path)
		if err != nil {
			return nil, err
		}
		s.Exists = exists
		s.ModTime = modTime
		s.Size = utils.FileSize(s.Path)
		_, sourceExists, err := utils.ModTime(s.Source)
		if err != nil {
			return nil, err
		}
		if !exists || !sourceExists {
			s.Stale = true
			continue
		}
		if s.Stale, err = utils.IsStale(s.Path, s.Source); err != nil {
			return nil, err
		}
	}
	return statuses, nil
}
