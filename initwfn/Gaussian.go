package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// GaussianConfig implements a configuration of a weight initializer that
// draws weights from a gaussian distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	if stddev < 0 {
		return nil, fmt.Errorf("newGaussian: standard deviation must be "+
			"non-negative\n\twant(>= 0)\n\thave(%v)", stddev)
	}
	config := GaussianConfig{
		Mean:   mean,
		StdDev: stddev,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GaussianConfig) Type() Type {
	return Gaussian
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

// String renders the config with the standard deviation first, which
// is the argument order Normal() expressions use.
func (g GaussianConfig) String() string {
	return fmt.Sprintf("Normal(%v, %v)", g.StdDev, g.Mean)
}
