// Command bpsim simulates conditional branch direction predictors over
// branch traces.
//
// Usage:
//
//	bpsim run [flags] <trace>
//	bpsim bench [flags]
//	bpsim gen <workload> <out>
//
// Example:
//
//	# Replay a compressed trace with a 13-bit gshare predictor
//	bpsim run --predictor gshare:13 traces/fp_1.bz2
//
//	# Compare all predictors on the synthetic workloads, as CSV
//	bpsim bench --csv > results.csv
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bpsim",
		Short: "Branch direction predictor simulator",
		Long: `bpsim replays conditional branch traces through static, gshare,
tournament, perceptron and hybrid predictors and reports how often
each one mispredicts.
`,
		SilenceUsage: true,
	}

	prof := &profiler{}
	root.PersistentPreRunE = func(*cobra.Command, []string) error { return prof.start() }
	root.PersistentPostRunE = func(*cobra.Command, []string) error { return prof.stop() }

	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	prof.addFlags(root)

	root.AddCommand(newRunCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newGenCmd())

	return root
}

// newLogger returns a logger writing to w. Verbose output enables V(1)
// messages.
func newLogger(w io.Writer, verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func loggerFor(cmd *cobra.Command) logr.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return newLogger(cmd.ErrOrStderr(), verbose).WithName("bpsim")
}
