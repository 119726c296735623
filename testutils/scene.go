// Package testutils contains fixtures shared by the tests of the derivation stages.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/viewpoint/octree"
)

// ExpandedTree returns a raw tree whose leaves are all at depth. Every node is unobserved
// with occupancy 0.
func ExpandedTree(t *testing.T, center r3.Vector, side float64, depth int) *octree.Tree {
	t.Helper()
	tree, err := octree.New(center, side, depth)
	test.That(t, err, test.ShouldBeNil)
	// children always come after their parent, so one pass over the growing arena
	// reaches every node
	for id := octree.NodeID(0); int(id) < tree.NumNodes(); id++ {
		if tree.Depth(id) < depth {
			test.That(t, tree.Expand(id), test.ShouldBeNil)
		}
	}
	return tree
}

// WriteFiles creates each named file below root with its contents. Names use forward
// slashes and missing directories are created.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		test.That(t, os.MkdirAll(filepath.Dir(path), 0o755), test.ShouldBeNil)
		test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	}
}
