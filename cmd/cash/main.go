// Package main is the entry point for the cash CLI.
//
// Usage:
//
//	cash [flags] <command> [args]
//
// Commands:
//
//	run      - Cluster a CSV data set
//	inspect  - Show checkpoints of a run
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/cash/cmd/cash/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
