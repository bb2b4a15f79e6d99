package agent

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config represents a configuration for creating an agent
type Config interface {
	// Type returns the Type of agent that the Config describes
	Type() Type

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error
}

// AlgoConfig configures the asynchronous training algorithm that runs
// an agent in a number of parallel processes
type AlgoConfig struct {
	Type          Type     `json:"type" yaml:"type"`
	NProcesses    int      `json:"n_processes" yaml:"n_processes"`
	LoggingLevel  string   `json:"logging_level" yaml:"logging_level"`
	EvalFrequency int      `json:"eval_frequency" yaml:"eval_frequency"`
	EvalNRuns     int      `json:"eval_n_runs" yaml:"eval_n_runs"`
	Seeds         []uint64 `json:"seeds" yaml:"seeds"`
}

// Validate returns an error if the AlgoConfig cannot be run
func (a AlgoConfig) Validate() error {
	if _, err := Lookup(a.Type); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if a.NProcesses <= 0 {
		return fmt.Errorf("validate: number of processes must be positive"+
			"\n\thave(%v)", a.NProcesses)
	}
	if a.EvalFrequency <= 0 {
		return fmt.Errorf("validate: evaluation frequency must be positive"+
			"\n\thave(%v)", a.EvalFrequency)
	}
	if a.EvalNRuns <= 0 {
		return fmt.Errorf("validate: number of evaluation runs must be "+
			"positive\n\thave(%v)", a.EvalNRuns)
	}
	if _, err := zerolog.ParseLevel(a.LoggingLevel); err != nil {
		return fmt.Errorf("validate: %v", err)
	}

	// Without seeds, each process is seeded by the trainer
	if a.Seeds != nil && len(a.Seeds) != a.NProcesses {
		return fmt.Errorf("validate: one seed required per process"+
			"\n\twant(%v)\n\thave(%v)", a.NProcesses, len(a.Seeds))
	}
	return nil
}
