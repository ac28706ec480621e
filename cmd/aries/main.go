// Package main is the entry point for the aries CLI.
//
// aries provisions a single Hetzner Cloud server with an SSH key, a primary
// IPv4, a data volume and remote lifecycle commands, and tracks what it
// created in a state file.
//
// Commands: init, preview, up, destroy, refresh, output, graph, version.
//
// For detailed usage information, run:
//
//	aries --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/aries/cmd/aries/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
