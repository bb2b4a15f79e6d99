package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	StepSize float64 `json:"step_size" yaml:"step_size"`
	Epsilon  float64 `json:"epsilon" yaml:"epsilon"`
	Beta1    float64 `json:"beta1" yaml:"beta1"`
	Beta2    float64 `json:"beta2" yaml:"beta2"`
	Batch    int     `json:"batch" yaml:"batch"`
	Clip     float64 `json:"clip" yaml:"clip"` // <= 0 if no clipping
}

// NewDefaultAdam returns a new Adam Solver with ε = 1e-8, β1 = 0.9,
// and β2 = 0.999
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize, -1)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(Adam, AdamConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Beta1:    beta1,
		Beta2:    beta2,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create() G.Solver {
	opts := append(options(a.StepSize, a.Batch, a.Clip),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
	)
	return G.NewAdamSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}

// Validate checks the AdamConfig for errors
func (a AdamConfig) Validate() error {
	if err := validate(a.StepSize, a.Batch); err != nil {
		return err
	}
	if a.Epsilon <= 0 {
		return fmt.Errorf("validate: ε must be positive\n\thave(%v)",
			a.Epsilon)
	}
	if a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1 {
		return fmt.Errorf("validate: β1 and β2 must be in [0, 1)"+
			"\n\thave(%v, %v)", a.Beta1, a.Beta2)
	}
	return nil
}
