// Package main provides the entry point for bpsim.
// bpsim is a branch direction predictor simulator driven by branch traces.
//
// For the full CLI, use: go run ./cmd/bpsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("bpsim - Branch Predictor Simulator")
	fmt.Println("")
	fmt.Println("Usage: bpsim run [options] <trace>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --predictor  static | gshare:<G> | tournament:<G>:<L>:<P> | custom | hybrid")
	fmt.Println("  --config     Path to a JSON or YAML simulation config")
	fmt.Println("  --top        Number of hot branches to report")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/bpsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/bpsim' instead.")
	}
}
