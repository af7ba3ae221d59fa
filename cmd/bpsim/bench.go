package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/bpsim/benchmarks"
	"github.com/sarchlab/bpsim/predictor"
)

type benchOptions struct {
	predictors []string
	traces     []string
	core       bool
	csv        bool
	json       bool
	parallel   int
	penalty    uint64
}

func newBenchCmd() *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench [flags]",
		Short: "Compare predictors on synthetic workloads and traces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.predictors, "predictor", "p", nil,
		"Predictors to compare (default: every variant)")
	cmd.Flags().StringSliceVarP(&opts.traces, "trace", "t", nil,
		"Trace files to add as workloads")
	cmd.Flags().BoolVar(&opts.core, "core", false,
		"Run only the core workloads")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "Output results in CSV format")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output results in JSON format")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0,
		"Concurrent replays (default: GOMAXPROCS)")
	cmd.Flags().Uint64Var(&opts.penalty, "penalty", 12,
		"Misprediction penalty in cycles")

	cmd.MarkFlagsMutuallyExclusive("csv", "json")

	return cmd
}

func runBench(cmd *cobra.Command, opts *benchOptions) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	config := benchmarks.DefaultConfig()
	config.Output = cmd.OutOrStdout()
	config.Logger = loggerFor(cmd)
	config.Verbose = verbose
	config.Parallelism = opts.parallel
	config.Penalty = opts.penalty

	if len(opts.predictors) > 0 {
		config.Predictors = nil
		for _, spec := range opts.predictors {
			p, err := predictor.ParseSpec(spec)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return fmt.Errorf("invalid predictor %q: %w", spec, err)
			}
			config.Predictors = append(config.Predictors, p)
		}
	}

	harness := benchmarks.NewHarness(config)
	if opts.core {
		harness.AddWorkloads(benchmarks.GetCoreWorkloads())
	} else {
		harness.AddWorkloads(benchmarks.GetWorkloads())
	}
	for _, path := range opts.traces {
		harness.AddWorkload(benchmarks.TraceWorkload(path))
	}

	config.Logger.Info("benchmark started", "runID", harness.RunID())

	results, err := harness.RunAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	switch {
	case opts.csv:
		harness.PrintCSV(results)
	case opts.json:
		return harness.PrintJSON(results)
	default:
		harness.PrintResults(results)
	}
	return nil
}
