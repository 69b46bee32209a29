// Package main provides the treesync CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/treesync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
