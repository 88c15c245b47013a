// spacerisk is the command-line interface: score threats against assets,
// apply controls, and roll results up into per-threat risk, all against a
// local state file.  The serve subcommand boots the full API server.
package main

import "github.com/orbitsec/spacerisk/internal/interfaces/cli"

func main() {
	cli.Execute()
}
