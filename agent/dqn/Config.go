// Package dqn configures the asynchronous one-step Q-learning agent
package dqn

import (
	"fmt"

	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/bonus"
)

func init() {
	agent.Register(agent.DQN, func(nActions int,
		b bonus.EvaluatorConfig) agent.Config {
		return NewConfig(nActions, b)
	})
}

// Config implements a configuration of an asynchronous one-step
// Q-learning agent with an ε-greedy behaviour policy whose ε is
// annealed linearly from 1 to FinalEpsilon
type Config struct {
	NActions int                   `json:"n_actions" yaml:"n_actions"`
	Bonus    bonus.EvaluatorConfig `json:"bonus_evaluator" yaml:"bonus_evaluator"`

	TMax         int     `json:"t_max" yaml:"t_max"`
	TargetUpdate int     `json:"target_update_frequency" yaml:"target_update_frequency"`
	Gamma        float64 `json:"gamma" yaml:"gamma"`
	FinalEpsilon float64 `json:"final_epsilon" yaml:"final_epsilon"`
	DecaySteps   int     `json:"epsilon_decay_steps" yaml:"epsilon_decay_steps"`
}

// NewConfig returns a Config with the default hyperparameters
func NewConfig(nActions int, b bonus.EvaluatorConfig) Config {
	return Config{
		NActions:     nActions,
		Bonus:        b,
		TMax:         5,
		TargetUpdate: 40000,
		Gamma:        0.99,
		FinalEpsilon: 0.1,
		DecaySteps:   4000000,
	}
}

// Type returns the Type of agent the Config describes
func (c Config) Type() agent.Type {
	return agent.DQN
}

// Epsilon returns the exploration rate after step steps
func (c Config) Epsilon(step int) float64 {
	if step >= c.DecaySteps {
		return c.FinalEpsilon
	}
	frac := float64(step) / float64(c.DecaySteps)
	return 1 - frac*(1-c.FinalEpsilon)
}

// Validate checks a Config for errors. A Config with zero actions is
// valid, the trainer then uses the full action set of the game.
func (c Config) Validate() error {
	if c.NActions < 0 {
		return fmt.Errorf("validate: number of actions must be "+
			"non-negative\n\thave(%v)", c.NActions)
	}
	if c.TMax <= 0 || c.TargetUpdate <= 0 || c.DecaySteps <= 0 {
		return fmt.Errorf("validate: t_max, target update frequency, and "+
			"decay steps must be positive\n\thave(%v, %v, %v)", c.TMax,
			c.TargetUpdate, c.DecaySteps)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1]"+
			"\n\thave(%v)", c.Gamma)
	}
	if c.FinalEpsilon < 0 || c.FinalEpsilon > 1 {
		return fmt.Errorf("validate: final ε must be in [0, 1]"+
			"\n\thave(%v)", c.FinalEpsilon)
	}
	if err := c.Bonus.Validate(); err != nil {
		return fmt.Errorf("validate: bonus evaluator: %v", err)
	}
	return nil
}
