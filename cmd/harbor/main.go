// Package main is the entry point for the harbor shell and CLI.
package main

import (
	"os"

	"github.com/harbor-io/harbor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
