// Package main provides the entry point for frostsim, a cycle-accurate
// model of an out-of-order scheduling core.
//
// For the full CLI, use: go run ./cmd/frostsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("frostsim - out-of-order core timing model")
	fmt.Println("")
	fmt.Println("Usage: frostsim [options] <benchmark>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to latency configuration JSON file")
	fmt.Println("  -cycles    Cycle limit before giving up")
	fmt.Println("  -list      List available benchmarks")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/frostsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/frostsim' instead.")
	}
}
