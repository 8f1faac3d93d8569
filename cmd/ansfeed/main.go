// Package main provides the ansfeed CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/ansfeed/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
