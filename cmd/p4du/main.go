// Package main implements the p4du CLI.
// It checks programs for reads of uninitialized values and accesses to
// invalid headers, and removes writes that nothing reads.
package main

import (
	"os"

	"github.com/p4lang/p4c-sub009/cmd/p4du/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.SetVersionTemplate(`p4du version {{.Version}}
`)
	commands.RootCmd.Version = version

	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
