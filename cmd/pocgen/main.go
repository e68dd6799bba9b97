// pocgen - HTTP interception and raw replay controller.
package main

import "github.com/Svigo-o/PoCGen/pkg/cli"

// Build-time variables set via ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
