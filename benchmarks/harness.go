// Package benchmarks compares predictor variants on synthetic and recorded
// branch workloads.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sarchlab/bpsim/predictor"
	"github.com/sarchlab/bpsim/replay"
	"github.com/sarchlab/bpsim/trace"
)

// Result holds the outcome of one predictor on one workload.
type Result struct {
	// RunID identifies the harness run that produced the result.
	RunID string `json:"run_id"`

	// Workload names the branch workload.
	Workload string `json:"workload"`

	// Predictor names the predictor as accepted by --predictor.
	Predictor string `json:"predictor"`

	// Branches is the number of branches replayed.
	Branches uint64 `json:"branches"`

	// Correct is the number of correct predictions.
	Correct uint64 `json:"correct"`

	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64 `json:"mispredictions"`

	// MispredictionRate is Mispredictions / Branches in percent.
	MispredictionRate float64 `json:"misprediction_rate"`

	// PenaltyCycles is the cycles lost to mispredictions.
	PenaltyCycles uint64 `json:"penalty_cycles"`

	// WallTime is the time taken to replay the workload.
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Predictors lists the predictors to evaluate on every workload.
	Predictors []predictor.Config

	// Parallelism bounds the number of concurrent replays. Zero means
	// GOMAXPROCS.
	Parallelism int

	// Penalty is the cycles charged per misprediction.
	Penalty uint64

	// Output is where to write results (default: os.Stdout).
	Output io.Writer

	// Logger receives per-run messages (default: discard).
	Logger logr.Logger

	// Verbose adds workload descriptions to the human-readable report.
	Verbose bool
}

// DefaultPredictors returns one config for each variant with the default
// geometry.
func DefaultPredictors() []predictor.Config {
	var configs []predictor.Config
	for _, v := range predictor.Variants() {
		config := predictor.DefaultConfig()
		config.Variant = v
		configs = append(configs, config)
	}
	return configs
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Predictors: DefaultPredictors(),
		Penalty:    12,
		Output:     os.Stdout,
		Logger:     logr.Discard(),
	}
}

// Harness runs every predictor over every workload and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
	runID     xid.ID
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Harness{
		config:    config,
		workloads: []Workload{},
		runID:     xid.New(),
	}
}

// RunID returns the identifier stamped on every result.
func (h *Harness) RunID() string {
	return h.runID.String()
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll replays every (workload, predictor) pair on its own predictor
// core. Results are ordered by workload, then by predictor, regardless of
// the order in which the replays finish.
func (h *Harness) RunAll(ctx context.Context) ([]Result, error) {
	for _, config := range h.config.Predictors {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("predictor %s: %w", config, err)
		}
	}

	traces := make([][]trace.Record, len(h.workloads))
	for i, w := range h.workloads {
		records, err := w.Records()
		if err != nil {
			return nil, fmt.Errorf("workload %s: %w", w.Name, err)
		}
		traces[i] = records
	}

	numPredictors := len(h.config.Predictors)
	results := make([]Result, len(h.workloads)*numPredictors)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Parallelism)

	for wi := range h.workloads {
		for pi := range h.config.Predictors {
			slot := wi*numPredictors + pi
			g.Go(func() error {
				result, err := h.run(ctx, h.workloads[wi].Name, traces[wi], h.config.Predictors[pi])
				if err != nil {
					return err
				}
				results[slot] = result
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// run replays one workload on a fresh core.
func (h *Harness) run(
	ctx context.Context,
	name string,
	records []trace.Record,
	config predictor.Config,
) (Result, error) {
	core := predictor.New(config)
	r := replay.New(core, replay.WithPenalty(h.config.Penalty))

	start := time.Now()
	stats, err := r.Run(ctx, trace.NewSlice(records))
	wallTime := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("%s on %s: %w", config, name, err)
	}

	h.config.Logger.V(1).Info("benchmark done",
		"workload", name,
		"predictor", config.String(),
		"mispredictionRate", stats.MispredictionRate())

	return Result{
		RunID:             h.runID.String(),
		Workload:          name,
		Predictor:         core.Config().String(),
		Branches:          stats.Branches,
		Correct:           stats.Correct,
		Mispredictions:    stats.Mispredictions,
		MispredictionRate: stats.MispredictionRate(),
		PenaltyCycles:     stats.PenaltyCycles,
		WallTime:          wallTime,
	}, nil
}

// PrintResults outputs results in a human-readable format, one block per
// workload.
func (h *Harness) PrintResults(results []Result) {
	p := message.NewPrinter(language.English)
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== Branch Predictor Benchmark Results ===")
	_, _ = p.Fprintf(out, "Run: %s\n", h.runID.String())
	_, _ = fmt.Fprintln(out, "")

	descriptions := map[string]string{}
	for _, w := range h.workloads {
		descriptions[w.Name] = w.Description
	}

	current := ""
	for _, r := range results {
		if r.Workload != current {
			if current != "" {
				_, _ = fmt.Fprintln(out, "")
			}
			current = r.Workload
			_, _ = p.Fprintf(out, "Workload: %s (%d branches)\n", r.Workload, r.Branches)
			if h.config.Verbose && descriptions[r.Workload] != "" {
				_, _ = fmt.Fprintf(out, "  Description: %s\n", descriptions[r.Workload])
			}
		}
		_, _ = p.Fprintf(out, "  %-22s Incorrect: %10d  Misprediction Rate: %7.3f  Penalty: %12d cycles\n",
			r.Predictor, r.Mispredictions, r.MispredictionRate, r.PenaltyCycles)
	}
	_, _ = fmt.Fprintln(out, "")
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"run_id,workload,predictor,branches,correct,mispredictions,misprediction_rate,penalty_cycles,wall_time_ns")
	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%s,%d,%d,%d,%.3f,%d,%d\n",
			r.RunID,
			r.Workload,
			r.Predictor,
			r.Branches,
			r.Correct,
			r.Mispredictions,
			r.MispredictionRate,
			r.PenaltyCycles,
			r.WallTime.Nanoseconds(),
		)
	}
}

// PrintJSON outputs results as an indented JSON array.
func (h *Harness) PrintJSON(results []Result) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
