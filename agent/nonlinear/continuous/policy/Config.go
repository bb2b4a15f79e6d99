package policy

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/asyncrl/initwfn"
	"github.com/samuelfneumann/asyncrl/network"
)

// ErrLayerCount is returned when a per-layer list of a Config has
// neither a single element nor one element per hidden layer
var ErrLayerCount = errors.New("invalid number of per-layer values")

// Config describes the architecture of a MeanMLP. Nonlinearities and
// initializers are given as expressions, such as "rectify",
// "HeUniform()", or "Uniform(-3e-3, 3e-3)", which are evaluated when
// the policy is constructed.
//
// HiddenNL, HiddenWInit, and HiddenBInit hold either one element per
// hidden layer or a single element which is used for all hidden
// layers.
type Config struct {
	HiddenSizes []int    `json:"hidden_sizes" yaml:"hidden_sizes" mapstructure:"hidden_sizes"`
	HiddenNL    []string `json:"hidden_nonlinearity" yaml:"hidden_nonlinearity" mapstructure:"hidden_nonlinearity"`
	HiddenWInit []string `json:"hidden_w_init" yaml:"hidden_w_init" mapstructure:"hidden_w_init"`
	HiddenBInit []string `json:"hidden_b_init" yaml:"hidden_b_init" mapstructure:"hidden_b_init"`

	OutputNL    string `json:"output_nonlinearity" yaml:"output_nonlinearity" mapstructure:"output_nonlinearity"`
	OutputWInit string `json:"output_w_init" yaml:"output_w_init" mapstructure:"output_w_init"`
	OutputBInit string `json:"output_b_init" yaml:"output_b_init" mapstructure:"output_b_init"`

	BatchNorm bool `json:"bn" yaml:"bn" mapstructure:"bn"`

	// Batch is the number of observations the compiled action function
	// processes at once
	Batch int `json:"batch" yaml:"batch" mapstructure:"batch"`
}

// DefaultConfig returns the default MeanMLP Config: two hidden layers
// of 100 rectified units and a small uniform output layer
func DefaultConfig() Config {
	return Config{
		HiddenSizes: []int{100, 100},
		HiddenNL:    []string{"rectify"},
		HiddenWInit: []string{"HeUniform()"},
		HiddenBInit: []string{"Constant(0.)"},
		OutputNL:    "None",
		OutputWInit: "Uniform(-3e-3, 3e-3)",
		OutputBInit: "Uniform(-3e-3, 3e-3)",
		BatchNorm:   false,
		Batch:       1,
	}
}

// Validate returns an error if the Config does not describe a valid
// architecture
func (c Config) Validate() error {
	_, err := c.mlpConfig()
	return err
}

// mlpConfig evaluates all expressions of the Config, broadcasting
// single element lists over the hidden layers
func (c Config) mlpConfig() (network.MLPConfig, error) {
	if c.Batch <= 0 {
		return network.MLPConfig{}, fmt.Errorf("batch size must be "+
			"positive\n\thave(%v)", c.Batch)
	}

	n := len(c.HiddenSizes)
	for i, size := range c.HiddenSizes {
		if size <= 0 {
			return network.MLPConfig{}, fmt.Errorf("hidden layer %v must "+
				"have a positive number of units\n\thave(%v)", i, size)
		}
	}

	nl, err := broadcast("hidden nonlinearities", c.HiddenNL, n)
	if err != nil {
		return network.MLPConfig{}, err
	}
	wInit, err := broadcast("hidden weight initializers", c.HiddenWInit, n)
	if err != nil {
		return network.MLPConfig{}, err
	}
	bInit, err := broadcast("hidden bias initializers", c.HiddenBInit, n)
	if err != nil {
		return network.MLPConfig{}, err
	}

	out := network.MLPConfig{
		HiddenSizes:       append([]int(nil), c.HiddenSizes...),
		HiddenActivations: make([]*network.Activation, n),
		HiddenWInit:       make([]*initwfn.InitWFn, n),
		HiddenBInit:       make([]*initwfn.InitWFn, n),
		BatchNorm:         c.BatchNorm,
	}
	for i := 0; i < n; i++ {
		if out.HiddenActivations[i], err = network.ParseActivation(
			nl[i]); err != nil {
			return network.MLPConfig{}, fmt.Errorf("hidden layer %v: %w", i,
				err)
		}
		if out.HiddenWInit[i], err = initwfn.Parse(wInit[i]); err != nil {
			return network.MLPConfig{}, fmt.Errorf("hidden layer %v: %w", i,
				err)
		}
		if out.HiddenBInit[i], err = initwfn.Parse(bInit[i]); err != nil {
			return network.MLPConfig{}, fmt.Errorf("hidden layer %v: %w", i,
				err)
		}
	}

	if out.OutputActivation, err = network.ParseActivation(
		c.OutputNL); err != nil {
		return network.MLPConfig{}, fmt.Errorf("output layer: %w", err)
	}
	if out.OutputWInit, err = initwfn.Parse(c.OutputWInit); err != nil {
		return network.MLPConfig{}, fmt.Errorf("output layer: %w", err)
	}
	if out.OutputBInit, err = initwfn.Parse(c.OutputBInit); err != nil {
		return network.MLPConfig{}, fmt.Errorf("output layer: %w", err)
	}

	return out, nil
}

// broadcast returns values repeated for each of n layers if values has
// a single element, or values itself if it has n elements
func broadcast(name string, values []string, n int) ([]string, error) {
	switch len(values) {
	case n:
		return values, nil
	case 1:
		out := make([]string, n)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %v\n\twant(1 or %v)\n\thave(%v)",
		ErrLayerCount, name, n, len(values))
}
