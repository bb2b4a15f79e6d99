package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// UniformConfig implements a configuration of a weight initializer
// that draws weights from a uniform distribution over [Low, High)
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	if low > high {
		return nil, fmt.Errorf("newUniform: low must not exceed high"+
			"\n\twant(<= %v)\n\thave(%v)", high, low)
	}
	config := UniformConfig{
		Low:  low,
		High: high,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (u UniformConfig) Create() G.InitWFn {
	return G.Uniform(u.Low, u.High)
}

func (u UniformConfig) String() string {
	return fmt.Sprintf("Uniform(%v, %v)", u.Low, u.High)
}
