package main

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"

	"github.com/sarchlab/bpsim/config"
	"github.com/sarchlab/bpsim/predictor"
	"github.com/sarchlab/bpsim/profile"
	"github.com/sarchlab/bpsim/replay"
	"github.com/sarchlab/bpsim/trace"
)

type runOptions struct {
	predictorSpec string
	configPath    string
	top           int
	penalty       uint64
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [flags] <trace>",
		Short: "Replay a branch trace through one predictor",
		Long: `Run reads a branch trace ("<hex pc> <0|1>" per line, optionally
.gz or .bz2 compressed), predicts every branch before training on its
outcome, and prints the misprediction rate.

Predictors: static, gshare:<G>, tournament:<G>:<L>:<P>, custom, hybrid.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.predictorSpec, "predictor", "p", "static",
		"Predictor to simulate")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a JSON or YAML simulation config")
	cmd.Flags().IntVar(&opts.top, "top", 0,
		"Number of hot branches to report (overrides config)")
	cmd.Flags().Uint64Var(&opts.penalty, "penalty", 0,
		"Misprediction penalty in cycles (overrides config)")

	return cmd
}

// loadRunConfig merges the config file and the flags that were set.
func loadRunConfig(cmd *cobra.Command, opts *runOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.configPath == "" || cmd.Flags().Changed("predictor") {
		p, err := predictor.ParseSpec(opts.predictorSpec)
		if err != nil {
			return nil, err
		}
		cfg.Predictor = p
	}
	if cmd.Flags().Changed("top") {
		cfg.TopBranches = opts.top
	}
	if cmd.Flags().Changed("penalty") {
		cfg.MispredictPenalty = opts.penalty
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runTrace(cmd *cobra.Command, opts *runOptions, path string) error {
	cfg, err := loadRunConfig(cmd, opts)
	if err != nil {
		return err
	}

	log := loggerFor(cmd)

	f, err := trace.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	core := predictor.New(cfg.Predictor)
	replayOpts := []replay.Option{
		replay.WithLogger(log.WithValues("trace", path)),
		replay.WithPenalty(cfg.MispredictPenalty),
		replay.WithProgressInterval(cfg.ProgressInterval),
	}

	var hot *profile.Table
	if cfg.TopBranches > 0 {
		hot = profile.New(profile.Config{Sets: cfg.ProfileSets, Ways: cfg.ProfileWays})
		replayOpts = append(replayOpts, replay.WithProfile(hot))
	}

	r := replay.New(core, replayOpts...)
	stats, err := r.Run(cmd.Context(), f)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), core, stats, cfg)
	if hot != nil {
		printHotBranches(cmd.OutOrStdout(), hot, cfg.TopBranches)
	}
	return nil
}

// printReport prints the accuracy summary of a replay.
func printReport(w io.Writer, core *predictor.Core, stats replay.Stats, cfg *config.Config) {
	freq := sim.Freq(cfg.FrequencyGHz) * sim.GHz

	_, _ = fmt.Fprintf(w, "%s\n", core.Config())
	_, _ = fmt.Fprintf(w, "Branches:        %10d\n", stats.Branches)
	_, _ = fmt.Fprintf(w, "Incorrect:       %10d\n", stats.Mispredictions)
	_, _ = fmt.Fprintf(w, "Misprediction Rate: %10.3f\n", stats.MispredictionRate())
	_, _ = fmt.Fprintf(w, "Penalty:         %10d cycles (%.3f us at %.2f GHz)\n",
		stats.PenaltyCycles, stats.PenaltyTime(freq)*1e6, cfg.FrequencyGHz)
}

// printHotBranches lists the most mispredicted branches.
func printHotBranches(w io.Writer, hot *profile.Table, n int) {
	top := hot.Top(n)
	if len(top) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "\nTop %d mispredicted branches:\n", len(top))
	_, _ = fmt.Fprintf(w, "  %-10s %12s %12s %8s\n", "PC", "Executions", "Incorrect", "Rate")
	for _, e := range top {
		_, _ = fmt.Fprintf(w, "  0x%08x %12d %12d %7.2f%%\n",
			e.PC, e.Executions, e.Mispredictions, e.MispredictionRate())
	}
}
