// Package config holds the settings of a simulation run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/bpsim/predictor"
)

// MaxTableBits bounds every predictor table width.
const MaxTableBits = predictor.MaxTableBits

// Config holds the predictor selection and the reporting parameters of a
// simulation run.
type Config struct {
	// Predictor selects the variant and its table geometry.
	Predictor predictor.Config `json:"predictor" yaml:"predictor"`

	// MispredictPenalty is the number of cycles charged per misprediction.
	// Default: 12 cycles.
	MispredictPenalty uint64 `json:"mispredict_penalty" yaml:"mispredict_penalty"`

	// FrequencyGHz is the core clock used to convert penalty cycles to time.
	// Default: 3.5 GHz.
	FrequencyGHz float64 `json:"frequency_ghz" yaml:"frequency_ghz"`

	// ProfileSets and ProfileWays give the geometry of the hot-branch
	// profile. Default: 64 sets, 4 ways.
	ProfileSets int `json:"profile_sets" yaml:"profile_sets"`
	ProfileWays int `json:"profile_ways" yaml:"profile_ways"`

	// TopBranches is how many hot branches to report. Zero disables the
	// profile. Default: 10.
	TopBranches int `json:"top_branches" yaml:"top_branches"`

	// ProgressInterval is the number of branches between progress log
	// lines. Zero disables progress logging. Default: 1,000,000.
	ProgressInterval uint64 `json:"progress_interval" yaml:"progress_interval"`
}

// Default returns a Config with the default values.
func Default() *Config {
	return &Config{
		Predictor:         predictor.DefaultConfig(),
		MispredictPenalty: 12,
		FrequencyGHz:      3.5,
		ProfileSets:       64,
		ProfileWays:       4,
		TopBranches:       10,
		ProgressInterval:  1_000_000,
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a Config from a JSON or YAML file. The format follows the
// file extension. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Save writes the Config to a JSON or YAML file chosen by extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the values describe a runnable simulation.
func (c *Config) Validate() error {
	if err := c.Predictor.Validate(); err != nil {
		return err
	}
	if c.FrequencyGHz <= 0 {
		return fmt.Errorf("frequency_ghz must be > 0")
	}
	if c.TopBranches < 0 {
		return fmt.Errorf("top_branches must be >= 0")
	}
	if c.TopBranches > 0 && (c.ProfileSets <= 0 || c.ProfileWays <= 0) {
		return fmt.Errorf("profile_sets and profile_ways must be > 0 when top_branches is set")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
