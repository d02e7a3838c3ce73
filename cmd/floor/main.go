package main

import (
	"os"

	"github.com/RobiAdawiya/andalan-solution/cmd/floor/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Errors are printed by the printer package with color formatting
	if err := commands.Execute(version, commit, date); err != nil {
		os.Exit(1)
	}
}
