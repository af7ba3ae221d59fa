package benchmarks

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/sarchlab/bpsim/predictor"
	"github.com/sarchlab/bpsim/trace"
)

// Workload defines a single branch stream.
type Workload struct {
	// Name identifies the workload.
	Name string

	// Description explains what branch behavior the workload exercises.
	Description string

	// Generate builds the branch records. It must be deterministic.
	Generate func() []trace.Record

	// Path names a trace file to read instead of calling Generate.
	Path string
}

// Records returns the workload's branches.
func (w Workload) Records() ([]trace.Record, error) {
	if w.Path != "" {
		return trace.Load(w.Path)
	}
	if w.Generate == nil {
		return nil, fmt.Errorf("workload %s has no generator", w.Name)
	}
	return w.Generate(), nil
}

// TraceWorkload wraps a trace file. The file is read when the harness runs.
func TraceWorkload(path string) Workload {
	return Workload{
		Name:        filepath.Base(path),
		Description: "recorded trace " + path,
		Path:        path,
	}
}

// FindWorkload returns the built-in workload with the given name.
func FindWorkload(name string) (Workload, bool) {
	for _, w := range GetWorkloads() {
		if w.Name == name {
			return w, true
		}
	}
	return Workload{}, false
}

// GetWorkloads returns the standard set of synthetic workloads. Each one
// targets a specific predictor characteristic.
func GetWorkloads() []Workload {
	return []Workload{
		alwaysTaken(),
		alternatingBranch(),
		loopExit(8),
		nestedLoops(),
		correlatedPair(),
		biasedRandom(),
		longCorrelation(),
		manyBranches(),
	}
}

// GetCoreWorkloads returns a minimal set for quick checks.
func GetCoreWorkloads() []Workload {
	return []Workload{
		alwaysTaken(),
		loopExit(8),
		correlatedPair(),
	}
}

// builder appends branches to a record stream.
type builder struct {
	records []trace.Record
}

func (b *builder) branch(pc uint32, taken bool) {
	b.records = append(b.records, trace.Record{PC: pc, Outcome: predictor.OutcomeOf(taken)})
}

// 1. Always Taken - one branch that is taken every time
func alwaysTaken() Workload {
	return Workload{
		Name:        "always_taken",
		Description: "single branch, always taken - every predictor should converge",
		Generate: func() []trace.Record {
			var b builder
			for i := 0; i < 10000; i++ {
				b.branch(0x400100, true)
			}
			return b.records
		},
	}
}

// 2. Alternating - T N T N ...
func alternatingBranch() Workload {
	return Workload{
		Name:        "alternating",
		Description: "single branch alternating T/N - needs history, defeats a bare counter",
		Generate: func() []trace.Record {
			var b builder
			for i := 0; i < 10000; i++ {
				b.branch(0x400200, i%2 == 0)
			}
			return b.records
		},
	}
}

// 3. Loop Exit - backward branch taken n-1 times, then falls through
func loopExit(n int) Workload {
	return Workload{
		Name:        fmt.Sprintf("loop_%d", n),
		Description: fmt.Sprintf("loop back-edge with trip count %d - local history catches the exit", n),
		Generate: func() []trace.Record {
			var b builder
			for iter := 0; iter < 2000; iter++ {
				for i := 0; i < n; i++ {
					b.branch(0x400300, i < n-1)
				}
			}
			return b.records
		},
	}
}

// 4. Nested Loops - inner trip count 4, outer trip count 3, plus a guard
func nestedLoops() Workload {
	return Workload{
		Name:        "nested_loops",
		Description: "inner and outer loop back-edges with an if inside the inner body",
		Generate: func() []trace.Record {
			var b builder
			for rep := 0; rep < 800; rep++ {
				for o := 0; o < 3; o++ {
					for i := 0; i < 4; i++ {
						b.branch(0x400410, i%2 == 1) // if (i & 1)
						b.branch(0x400420, i < 3)    // inner back-edge
					}
					b.branch(0x400430, o < 2) // outer back-edge
				}
			}
			return b.records
		},
	}
}

// 5. Correlated Pair - the second branch repeats the first one's outcome
func correlatedPair() Workload {
	return Workload{
		Name:        "correlated_pair",
		Description: "random branch followed by a branch with the same outcome - global history wins",
		Generate: func() []trace.Record {
			rng := rand.New(rand.NewSource(1))
			var b builder
			for i := 0; i < 5000; i++ {
				taken := rng.Intn(2) == 1
				b.branch(0x400500, taken)
				b.branch(0x400540, taken)
			}
			return b.records
		},
	}
}

// 6. Biased Random - independent branches with fixed bias
func biasedRandom() Workload {
	return Workload{
		Name:        "biased_random",
		Description: "16 independent branches taken with 90% probability - bias only",
		Generate: func() []trace.Record {
			rng := rand.New(rand.NewSource(2))
			var b builder
			for i := 0; i < 10000; i++ {
				pc := 0x400600 + uint32(rng.Intn(16))*4
				b.branch(pc, rng.Intn(10) != 0)
			}
			return b.records
		},
	}
}

// 7. Long Correlation - outcome depends on a branch 20 branches back
func longCorrelation() Workload {
	return Workload{
		Name:        "long_correlation",
		Description: "branch repeats the outcome of a branch 20 branches earlier - needs long history",
		Generate: func() []trace.Record {
			rng := rand.New(rand.NewSource(3))
			var b builder
			for i := 0; i < 3000; i++ {
				first := rng.Intn(2) == 1
				b.branch(0x400700, first)
				for j := 0; j < 19; j++ {
					b.branch(0x400710, true)
				}
				b.branch(0x400780, first)
			}
			return b.records
		},
	}
}

// 8. Many Branches - a large footprint of biased branches that alias in
// small tables
func manyBranches() Workload {
	return Workload{
		Name:        "many_branches",
		Description: "4096 static branches with per-branch bias - table aliasing pressure",
		Generate: func() []trace.Record {
			rng := rand.New(rand.NewSource(4))
			var b builder
			for i := 0; i < 40000; i++ {
				n := uint32(rng.Intn(4096))
				b.branch(0x500000+n*4, n%3 != 0)
			}
			return b.records
		},
	}
}
