// Command yaml-doctor is the CLI front-end for the yaml-doctor checker:
// argument parsing, path/glob expansion, batch reporting, and the
// exit-code policy described in spec §6.
package main

import (
	"os"

	"github.com/shapestone/yaml-doctor/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand(os.Stdout, os.Stderr)
	err := cmd.Execute()
	os.Exit(cli.ExitCode(err))
}
