// Package main provides the storyscript compiler CLI.
package main

import (
	"os"

	"github.com/storyscript/storyc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
