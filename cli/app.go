// Package cli contains the viewpoint-data command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	flagConfig = "config"
	flagDebug  = "debug"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "viewpoint-data",
		Usage:           "derive and inspect the cached data of the viewpoint planner",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (.json, .yaml or .toml)",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "derive",
				Usage:  "bring the augmented tree, BVH and distance field up to date",
				Action: DeriveAction,
			},
			{
				Name:      "check-tree",
				Usage:     "load an occupancy tree and check that it is consistent",
				ArgsUsage: "<tree file>",
				Action:    CheckTreeAction,
			},
			{
				Name:   "status",
				Usage:  "show whether the cached artifacts are up to date",
				Action: StatusAction,
			},
		},
	}
}
