// Command wellstitch is the CLI entrypoint for the plate stitcher. All
// functionality lives in internal/cli, which defines the cobra commands.
package main

import (
	"github.com/Leiden-Cell-Observatory/wellstitch/internal/cli"
)

// version and commit are injected at build time via -ldflags. A plain
// "go build" keeps the defaults.
var (
	version = "2.0.0"
	commit  = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Execute(cli.NewRootCommand())
}
