// Package reconstruction loads a dense reconstruction workspace: the registered images,
// the sparse model they were registered against and the stereo depth maps computed from
// them. The pipeline only checks the workspace and hands it to downstream planners.
package reconstruction

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/utils"
)

// Workspace directory layout.
const (
	ImagesDir    = "images"
	SparseDir    = "sparse"
	DepthMapsDir = "stereo/depth_maps"
)

// sparseModelFiles are the files of a sparse model, in text or binary form.
var sparseModelFiles = []string{"cameras", "images", "points3D"}

// ErrInvalidWorkspace is returned for a workspace missing one of its required parts.
var ErrInvalidWorkspace = errors.New("invalid dense reconstruction workspace")

// Workspace describes a dense reconstruction workspace on disk.
type Workspace struct {
	Path string
	// Images are the image filenames relative to the images directory, sorted.
	Images []string
	// SparseModel holds the path of each sparse model file keyed by its name.
	SparseModel map[string]string
	// DepthMaps is the number of stereo depth maps, which may be 0.
	DepthMaps int
	// Size is the total size of the workspace files in bytes.
	Size int64
}

// Read validates and indexes the workspace at path.
func Read(path string, logger logging.Logger) (*Workspace, error) {
	timer := utils.NewTimer(nil)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrInvalidWorkspace, "%q is not a directory", path)
	}

	ws := &Workspace{Path: path, SparseModel: map[string]string{}}
	ws.Images, ws.Size, err = listFiles(filepath.Join(path, ImagesDir))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidWorkspace, "reading images of %q: %v", path, err)
	}
	if len(ws.Images) == 0 {
		return nil, errors.Wrapf(ErrInvalidWorkspace, "%q has no images", path)
	}

	sparse, sparseSize, err := listFiles(filepath.Join(path, SparseDir))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidWorkspace, "reading sparse model of %q: %v", path, err)
	}
	ws.Size += sparseSize
	for _, name := range sparseModelFiles {
		file, ok := lo.Find(sparse, func(f string) bool {
			return f == name+".txt" || f == name+".bin"
		})
		if !ok {
			return nil, errors.Wrapf(ErrInvalidWorkspace, "sparse model of %q has no %s file", path, name)
		}
		ws.SparseModel[name] = filepath.Join(path, SparseDir, file)
	}

	depthMaps, depthSize, err := listFiles(filepath.Join(path, DepthMapsDir))
	switch {
	case err == nil:
		ws.DepthMaps = len(depthMaps)
		ws.Size += depthSize
	case errors.Is(err, os.ErrNotExist):
		logger.Warnw("workspace has no depth maps", "path", path)
	default:
		return nil, errors.Wrapf(err, "reading depth maps of %q", path)
	}

	timer.LogTiming(logger, "Loading dense reconstruction")
	logger.Infow("Loaded dense reconstruction",
		"path", path,
		"images", len(ws.Images),
		"depth_maps", ws.DepthMaps,
		"size", units.HumanSize(float64(ws.Size)),
	)
	return ws, nil
}

// ImagePath returns the path of the named image.
func (ws *Workspace) ImagePath(name string) string {
	return filepath.Join(ws.Path, ImagesDir, name)
}

// listFiles returns the regular files below dir relative to it, sorted, and their total size.
func listFiles(dir string) ([]string, int64, error) {
	var files []string
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		size += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Strings(files)
	return files, size, nil
}
