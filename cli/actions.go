package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/viewpoint/config"
	"go.viam.com/viewpoint/logging"
	"go.viam.com/viewpoint/octree"
	"go.viam.com/viewpoint/planner"
)

// printf prints a line to w.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("viewpoint-data")
	}
	return logging.NewLogger("viewpoint-data")
}

func readConfig(c *cli.Context) (*config.Config, error) {
	path := c.Path(flagConfig)
	if path == "" {
		return nil, errors.Errorf("--%s is required", flagConfig)
	}
	cfg, err := config.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}
	return cfg, nil
}

// DeriveAction brings all cached artifacts up to date.
func DeriveAction(c *cli.Context) error {
	cfg, err := readConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c)
	logging.ReplaceGlobal(logger)
	//nolint:errcheck
	defer logger.Sync()

	data, err := planner.NewData(c.Context, *cfg, logger)
	if err != nil {
		return err
	}
	regenerated := lo.Map(data.Regenerated(), func(a planner.Artifact, _ int) string { return a.String() })
	if len(regenerated) == 0 {
		printf(c.App.Writer, "all artifacts were up to date")
	} else {
		printf(c.App.Writer, "regenerated %s", strings.Join(regenerated, ", "))
	}
	geometry := data.Geometry()
	printf(c.App.Writer, "BVH holds %d objects within %s", data.BVH().Len(), data.BVH().Root())
	printf(c.App.Writer, "distance field has %d³ cells of %g starting at %v",
		geometry.Dimension, geometry.Increment, geometry.Origin)
	return nil
}

// CheckTreeAction loads a tree file, prints its statistics and fails if it is inconsistent.
func CheckTreeAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one tree file")
	}
	path := c.Args().First()
	tree, err := octree.ReadFile(path)
	if err != nil {
		return err
	}
	stats := tree.Stats()

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRows([]table.Row{
		{"Kind", tree.Kind()},
		{"Max depth", tree.MaxDepth()},
		{"Nodes", stats.Nodes},
		{"Leaves", stats.Leaves},
		{"Occupied leaves", stats.OccupiedLeaves},
		{"Unknown nodes", stats.UnknownNodes},
		{"Unknown leaves", stats.UnknownLeaves},
		{"Metric min", stats.MetricMin},
		{"Metric max", stats.MetricMax},
		{"Metric size", stats.MetricSize()},
	})
	printf(c.App.Writer, "%s", t.Render())

	if err := tree.CheckConsistency(); err != nil {
		return err
	}
	printf(c.App.Writer, "%s is consistent", path)
	return nil
}

// StatusAction prints whether every cached artifact is up to date with its source.
func StatusAction(c *cli.Context) error {
	cfg, err := readConfig(c)
	if err != nil {
		return err
	}
	statuses, err := planner.Status(*cfg)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Artifact", "Path", "State", "Size", "Modified"})
	for _, s := range statuses {
		state := "fresh"
		switch {
		case !s.Exists:
			state = "missing"
		case s.Stale:
			state = "stale"
		}
		size, modified := "", ""
		if s.Exists {
			size = units.HumanSize(float64(s.Size))
			modified = s.ModTime.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{s.Artifact, s.Path, state, size, modified})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}
