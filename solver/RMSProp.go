package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// supportedEta is the only η that Gorgonia's RMSProp solver uses
const supportedEta = 0.001

// RMSPropConfig implements a specific configuration of the RMSProp
// solver
type RMSPropConfig struct {
	StepSize float64 `json:"step_size" yaml:"step_size"`
	Epsilon  float64 `json:"epsilon" yaml:"epsilon"`
	Eta      float64 `json:"eta" yaml:"eta"`
	Rho      float64 `json:"rho" yaml:"rho"` // Decay of the squared gradient average
	Batch    int     `json:"batch" yaml:"batch"`
	Clip     float64 `json:"clip" yaml:"clip"` // <= 0 if no clipping
}

// NewDefaultRMSProp returns a new RMSProp Solver with the
// hyperparameters of asynchronous RMSProp: ε = 0.1 and ρ = 0.99
func NewDefaultRMSProp(stepSize float64, batchSize int) (*Solver, error) {
	return NewRMSProp(stepSize, 0.1, supportedEta, 0.99, batchSize, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, eta, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(RMSProp, RMSPropConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Eta:      eta,
		Rho:      rho,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a new Gorgonia RMSProp Solver as described by the
// RMSPropConfig
func (r RMSPropConfig) Create() G.Solver {
	opts := append(options(r.StepSize, r.Batch, r.Clip),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
	)
	return G.NewRMSPropSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (r RMSPropConfig) ValidType(t Type) bool {
	return t == RMSProp
}

// Validate checks the RMSPropConfig for errors
func (r RMSPropConfig) Validate() error {
	if err := validate(r.StepSize, r.Batch); err != nil {
		return err
	}
	if r.Eta != supportedEta {
		return fmt.Errorf("validate: only η = %v is supported\n\thave(%v)",
			supportedEta, r.Eta)
	}
	if r.Epsilon <= 0 {
		return fmt.Errorf("validate: ε must be positive\n\thave(%v)",
			r.Epsilon)
	}
	if r.Rho <= 0 || r.Rho >= 1 {
		return fmt.Errorf("validate: ρ must be in (0, 1)\n\thave(%v)", r.Rho)
	}
	return nil
}
