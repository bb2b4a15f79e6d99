package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes a configuration of the vanilla gradient
// descent solver.
type VanillaConfig struct {
	StepSize float64 `json:"step_size" yaml:"step_size"`
	Batch    int     `json:"batch" yaml:"batch"`
	Clip     float64 `json:"clip" yaml:"clip"` // <= 0 if no clipping
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(Vanilla, VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	})
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	return G.NewVanillaSolver(options(v.StepSize, v.Batch, v.Clip)...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

// Validate checks the VanillaConfig for errors
func (v VanillaConfig) Validate() error {
	return validate(v.StepSize, v.Batch)
}
