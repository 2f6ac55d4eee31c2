// Package main provides the wikidom command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/wikidom/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
