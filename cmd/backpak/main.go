// Command backpak is the CLI for the content-addressed, deduplicating
// backup engine: repository initialization, index rebuilding, and
// snapshot diffing. Backup/restore policy and the full ls/print UI are
// out of scope.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/backpak/cmd/backpak/commands"
	"github.com/marmos91/backpak/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger.Init(logger.Config{Level: "INFO", Format: "text", Output: "stderr"})

	commands.Version = version
	commands.Commit = commit

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
