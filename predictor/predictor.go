// Package predictor implements conditional branch direction predictors.
//
// A Core owns all predictor state for one simulation. The driver calls
// Predict before a branch resolves and Train once its outcome is known, one
// branch at a time in program order. Cores share no state, so independent
// cores may run on different goroutines.
package predictor

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant selects the prediction strategy of a Core.
type Variant int

const (
	// Static always predicts taken.
	Static Variant = iota
	// Gshare indexes one counter table by global history XOR pc.
	Gshare
	// Tournament chooses between a local and a global predictor.
	Tournament
	// Custom is the perceptron predictor.
	Custom
	// Hybrid is a tournament whose global half is gshare-indexed.
	Hybrid
)

var variantNames = map[Variant]string{
	Static:     "Static",
	Gshare:     "Gshare",
	Tournament: "Tournament",
	Custom:     "Custom",
	Hybrid:     "Hybrid",
}

// String returns the display name of the variant.
func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Variants lists every known variant in declaration order.
func Variants() []Variant {
	return []Variant{Static, Gshare, Tournament, Custom, Hybrid}
}

// ParseVariant converts a case-insensitive name into a Variant.
func ParseVariant(name string) (Variant, error) {
	for _, v := range Variants() {
		if strings.EqualFold(name, v.String()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown predictor variant %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(v.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MaxTableBits bounds every table width so that allocation stays under a
// few hundred megabytes.
const MaxTableBits = 24

// Config holds the predictor variant and its table geometry.
type Config struct {
	// Variant selects the strategy.
	Variant Variant `json:"variant" yaml:"variant"`
	// GlobalHistoryBits is the global history length (G). Gshare and
	// tournament tables have 2^G entries.
	GlobalHistoryBits uint `json:"global_history_bits" yaml:"global_history_bits"`
	// LocalHistoryBits is the per-branch history length (L).
	LocalHistoryBits uint `json:"local_history_bits" yaml:"local_history_bits"`
	// PCIndexBits is the number of pc bits indexing the local history
	// table (P).
	PCIndexBits uint `json:"pc_index_bits" yaml:"pc_index_bits"`
}

// DefaultConfig returns the static predictor with the default geometry.
func DefaultConfig() Config {
	return Config{
		Variant:           Static,
		GlobalHistoryBits: 14,
		LocalHistoryBits:  10,
		PCIndexBits:       10,
	}
}

// ParseSpec parses a predictor description of the form used on the command
// line: "static", "gshare:<G>", "tournament:<G>:<L>:<P>", "custom" or
// "hybrid". Widths not given keep their default values.
func ParseSpec(spec string) (Config, error) {
	config := DefaultConfig()

	parts := strings.Split(spec, ":")
	variant, err := ParseVariant(parts[0])
	if err != nil {
		return config, err
	}
	config.Variant = variant

	widths := []*uint{
		&config.GlobalHistoryBits,
		&config.LocalHistoryBits,
		&config.PCIndexBits,
	}
	args := parts[1:]

	maxArgs := 0
	switch variant {
	case Gshare:
		maxArgs = 1
	case Tournament:
		maxArgs = 3
	}
	if len(args) > maxArgs {
		return config, fmt.Errorf("%s takes at most %d width arguments, got %d",
			variant, maxArgs, len(args))
	}

	for i, arg := range args {
		n, err := strconv.ParseUint(arg, 10, 8)
		if err != nil || n == 0 {
			return config, fmt.Errorf("invalid width %q in %q", arg, spec)
		}
		*widths[i] = uint(n)
	}

	return config, nil
}

// String formats the config in ParseSpec syntax.
func (c Config) String() string {
	name := strings.ToLower(c.Variant.String())
	switch c.Variant {
	case Gshare:
		return fmt.Sprintf("%s:%d", name, c.GlobalHistoryBits)
	case Tournament:
		return fmt.Sprintf("%s:%d:%d:%d", name,
			c.GlobalHistoryBits, c.LocalHistoryBits, c.PCIndexBits)
	}
	return name
}

// Validate checks that the variant is known and that every width lies in
// [1, MaxTableBits]. New does not call it; callers that take widths from
// users must.
func (c Config) Validate() error {
	if _, ok := variantNames[c.Variant]; !ok {
		return fmt.Errorf("unknown predictor variant %d", int(c.Variant))
	}

	widths := []struct {
		name string
		bits uint
	}{
		{"global_history_bits", c.GlobalHistoryBits},
		{"local_history_bits", c.LocalHistoryBits},
		{"pc_index_bits", c.PCIndexBits},
	}
	for _, w := range widths {
		if w.bits == 0 || w.bits > MaxTableBits {
			return fmt.Errorf("%s must be in [1, %d], got %d", w.name, MaxTableBits, w.bits)
		}
	}
	return nil
}

// Strategy is one prediction algorithm together with its tables.
type Strategy interface {
	// Predict returns the predicted direction of the branch at pc. It does
	// not modify any state.
	Predict(pc uint32) Outcome
	// Train records the resolved outcome of the branch at pc.
	Train(pc uint32, outcome Outcome)
	// Reset restores the initial table contents.
	Reset()
}

// Core dispatches predictions and training to the configured strategy.
type Core struct {
	config   Config
	strategy Strategy
}

// New allocates a Core for the given config. Variants with fixed geometry
// override the widths in config; Config reports the widths in effect.
func New(config Config) *Core {
	c := &Core{config: config}

	switch config.Variant {
	case Static:
		c.strategy = staticStrategy{}
	case Gshare:
		c.strategy = newGshare(config.GlobalHistoryBits)
	case Tournament:
		c.strategy = newTournament(config.GlobalHistoryBits,
			config.LocalHistoryBits, config.PCIndexBits, false)
	case Custom:
		c.config.GlobalHistoryBits = PerceptronWeights - 1
		c.config.LocalHistoryBits = 0
		c.config.PCIndexBits = PerceptronIndexBits
		c.strategy = newPerceptron(PerceptronIndexBits, PerceptronWeights)
	case Hybrid:
		c.config.GlobalHistoryBits = hybridGlobalBits
		c.config.LocalHistoryBits = hybridLocalBits
		c.config.PCIndexBits = hybridPCIndexBits
		c.strategy = newTournament(hybridGlobalBits,
			hybridLocalBits, hybridPCIndexBits, true)
	default:
		c.strategy = fallbackStrategy{}
	}

	return c
}

// Predict returns the predicted direction for the branch at pc.
func (c *Core) Predict(pc uint32) Outcome {
	return c.strategy.Predict(pc)
}

// Train updates the predictor with the resolved outcome of the branch at pc.
func (c *Core) Train(pc uint32, outcome Outcome) {
	c.strategy.Train(pc, outcome)
}

// Reset clears all learned state.
func (c *Core) Reset() {
	c.strategy.Reset()
}

// Variant returns the configured variant.
func (c *Core) Variant() Variant {
	return c.config.Variant
}

// Config returns the effective configuration.
func (c *Core) Config() Config {
	return c.config
}

// Name returns the display name of the variant.
func (c *Core) Name() string {
	return c.config.Variant.String()
}

// staticStrategy predicts every branch taken.
type staticStrategy struct{}

func (staticStrategy) Predict(uint32) Outcome { return Taken }
func (staticStrategy) Train(uint32, Outcome)  {}
func (staticStrategy) Reset()                 {}

// fallbackStrategy serves variants New does not recognize.
type fallbackStrategy struct{}

func (fallbackStrategy) Predict(uint32) Outcome { return NotTaken }
func (fallbackStrategy) Train(uint32, Outcome)  {}
func (fallbackStrategy) Reset()                 {}
