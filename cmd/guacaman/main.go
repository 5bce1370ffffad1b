// Package main is the entry point for the guacaman binary.
package main

import (
	"os"

	"guacaman/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
