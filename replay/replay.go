// Package replay drives a predictor core over a branch trace and collects
// accuracy statistics.
package replay

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/bpsim/predictor"
	"github.com/sarchlab/bpsim/profile"
	"github.com/sarchlab/bpsim/trace"
)

// ctxCheckInterval is how many branches run between context checks.
const ctxCheckInterval = 4096

// Source yields branch records in program order and io.EOF at the end.
type Source interface {
	Next() (trace.Record, error)
}

// Stats holds the accuracy statistics of a replay.
type Stats struct {
	// Branches is the number of branches replayed.
	Branches uint64
	// Taken is the number of branches whose outcome was taken.
	Taken uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
	// PenaltyCycles is Mispredictions times the configured penalty.
	PenaltyCycles uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	if s.Branches == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Branches) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s Stats) MispredictionRate() float64 {
	if s.Branches == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Branches) * 100
}

// TakenRate returns the fraction of taken branches as a percentage.
func (s Stats) TakenRate() float64 {
	if s.Branches == 0 {
		return 0
	}
	return float64(s.Taken) / float64(s.Branches) * 100
}

// PenaltyTime returns the time in seconds the penalty cycles take at the
// given clock frequency.
func (s Stats) PenaltyTime(freq sim.Freq) float64 {
	if freq <= 0 {
		return 0
	}
	return float64(s.PenaltyCycles) / float64(freq)
}

// Replayer feeds branches to a predictor core one at a time.
type Replayer struct {
	core    *predictor.Core
	profile *profile.Table
	log     logr.Logger

	penalty          uint64
	progressInterval uint64

	stats Stats
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithProfile records every branch in the given hot-branch profile.
func WithProfile(p *profile.Table) Option {
	return func(r *Replayer) {
		r.profile = p
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(log logr.Logger) Option {
	return func(r *Replayer) {
		r.log = log
	}
}

// WithPenalty sets the cycles charged per misprediction.
func WithPenalty(cycles uint64) Option {
	return func(r *Replayer) {
		r.penalty = cycles
	}
}

// WithProgressInterval logs progress every n branches at verbosity 1.
func WithProgressInterval(n uint64) Option {
	return func(r *Replayer) {
		r.progressInterval = n
	}
}

// New creates a Replayer around core.
func New(core *predictor.Core, opts ...Option) *Replayer {
	r := &Replayer{
		core: core,
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Core returns the predictor being driven.
func (r *Replayer) Core() *predictor.Core {
	return r.core
}

// Profile returns the hot-branch profile, or nil if none is attached.
func (r *Replayer) Profile() *profile.Table {
	return r.profile
}

// Stats returns the statistics accumulated so far.
func (r *Replayer) Stats() Stats {
	return r.stats
}

// Step predicts the branch, then trains the core with its outcome. It
// returns whether the prediction was correct.
func (r *Replayer) Step(rec trace.Record) bool {
	predicted := r.core.Predict(rec.PC)
	correct := predicted == rec.Outcome

	r.stats.Branches++
	if rec.Outcome == predictor.Taken {
		r.stats.Taken++
	}
	if correct {
		r.stats.Correct++
	} else {
		r.stats.Mispredictions++
		r.stats.PenaltyCycles += r.penalty
	}

	if r.profile != nil {
		r.profile.Record(rec.PC, correct)
	}

	r.core.Train(rec.PC, rec.Outcome)

	return correct
}

// Run replays src until it is exhausted. It returns early with the
// context's error if ctx is cancelled, and with a wrapped error if src
// fails.
func (r *Replayer) Run(ctx context.Context, src Source) (Stats, error) {
	r.log.Info("replay started", "predictor", r.core.Config().String())

	for {
		if r.stats.Branches%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return r.stats, err
			}
		}

		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r.stats, fmt.Errorf("replay after %d branches: %w", r.stats.Branches, err)
		}

		r.Step(rec)

		if r.progressInterval > 0 && r.stats.Branches%r.progressInterval == 0 {
			r.log.V(1).Info("progress",
				"branches", r.stats.Branches,
				"mispredictionRate", r.stats.MispredictionRate())
		}
	}

	r.log.Info("replay finished",
		"branches", r.stats.Branches,
		"incorrect", r.stats.Mispredictions)

	return r.stats, nil
}

// Reset clears the core, the profile and the statistics.
func (r *Replayer) Reset() {
	r.core.Reset()
	if r.profile != nil {
		r.profile.Reset()
	}
	r.stats = Stats{}
}
