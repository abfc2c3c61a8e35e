// Package cli wires the cobra command tree for the wellstitch binary.
//
// Each subcommand lives in its own file and bootstraps its own config and
// logger, because logger setup (colors, log file) depends on fully resolved
// flags. Errors raised before the logger exists bubble up to Execute and
// are printed plainly; later failures are logged in place and wrapped in
// errReported so Execute exits nonzero without printing them twice.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version and Commit are injected from main at build time via -ldflags.
var (
	Version = "2.0.0"
	Commit  = "unknown"
)

// errReported marks failures already written through the batch logger.
var errReported = errors.New("error already reported")

// NewRootCommand builds the root command with all subcommands registered.
// The root itself only carries help and version output.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wellstitch",
		Short: "Stitch multi-well plate scans into per-well hyperstacks",
		Long: `wellstitch turns a directory of per-well tile scans into one stitched
TIFF per well.

Tiles are matched by a configurable filename grammar, placed on the
acquisition grid, refined by overlap registration, fused, and written as
<WellID>.tif with ImageJ hyperstack metadata so downstream viewers open
the channel/slice structure directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
	}

	root.AddCommand(NewRunCommand())
	root.AddCommand(NewInspectCommand())
	return root
}

// Execute runs the root command and maps errors to the process exit code.
func Execute(root *cobra.Command) {
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "wellstitch: %v\n", err)
		}
		os.Exit(1)
	}
}
