// Package a3c configures the asynchronous advantage actor-critic agent
package a3c

import (
	"fmt"

	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/bonus"
)

func init() {
	agent.Register(agent.A3C, func(nActions int,
		b bonus.EvaluatorConfig) agent.Config {
		return NewConfig(nActions, b)
	})
}

// Config implements a configuration of an A3C agent
type Config struct {
	NActions int                   `json:"n_actions" yaml:"n_actions"`
	Bonus    bonus.EvaluatorConfig `json:"bonus_evaluator" yaml:"bonus_evaluator"`

	TMax  int     `json:"t_max" yaml:"t_max"` // Steps per update
	Beta  float64 `json:"beta" yaml:"beta"`   // Entropy regularization
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// NewConfig returns a Config with the default hyperparameters
func NewConfig(nActions int, b bonus.EvaluatorConfig) Config {
	return Config{
		NActions: nActions,
		Bonus:    b,
		TMax:     5,
		Beta:     0.01,
		Gamma:    0.99,
	}
}

// Type returns the Type of agent the Config describes
func (c Config) Type() agent.Type {
	return agent.A3C
}

// Validate checks a Config for errors. A Config with zero actions is
// valid, the trainer then uses the full action set of the game.
func (c Config) Validate() error {
	if c.NActions < 0 {
		return fmt.Errorf("validate: number of actions must be "+
			"non-negative\n\thave(%v)", c.NActions)
	}
	if c.TMax <= 0 {
		return fmt.Errorf("validate: t_max must be positive\n\thave(%v)",
			c.TMax)
	}
	if c.Beta < 0 {
		return fmt.Errorf("validate: entropy weight must be non-negative"+
			"\n\thave(%v)", c.Beta)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1]"+
			"\n\thave(%v)", c.Gamma)
	}
	if err := c.Bonus.Validate(); err != nil {
		return fmt.Errorf("validate: bonus evaluator: %v", err)
	}
	return nil
}
