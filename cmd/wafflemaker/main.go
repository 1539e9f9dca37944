package main

import (
	"os"

	"github.com/WaffleHacks/wafflemaker/cmd/wafflemaker/commands"
)

// Version information, set during build via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
