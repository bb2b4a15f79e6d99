package network

import (
	"errors"
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// ErrUnknownActivation is returned when parsing the name of an
// activation function that does not exist
var ErrUnknownActivation = errors.New("unknown activation")

type activationType string

const (
	relu      activationType = "rectify"
	leakyReLU activationType = "leaky_rectify"
	identity  activationType = "linear"
	tanh      activationType = "tanh"
	sigmoid   activationType = "sigmoid"
)

// leakiness is the slope of LeakyReLU for negative inputs
const leakiness = 0.01

// Activation represents an activation function type
type Activation struct {
	activationType
	f func(x *G.Node) (*G.Node, error)
}

// fwd performs the forward pass of an Activation
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a == nil || a.activationType == identity
}

// ParseActivation returns the Activation named by expr. Dotted
// qualifiers are ignored, so that "nonlinearities.rectify" and
// "rectify" name the same Activation. The names "None", "linear",
// "identity" and the empty string all denote the identity.
func ParseActivation(expr string) (*Activation, error) {
	name := strings.TrimSpace(expr)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	switch strings.ToLower(name) {
	case "rectify", "relu":
		return ReLU(), nil
	case "leaky_rectify", "leakyrelu":
		return LeakyReLU(), nil
	case "tanh":
		return TanH(), nil
	case "sigmoid":
		return Sigmoid(), nil
	case "", "none", "linear", "identity":
		return Identity(), nil
	}

	return nil, fmt.Errorf("parseActivation: %w %q", ErrUnknownActivation,
		expr)
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
	}
}

// ReLU returns a ReLU *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
	}
}

// LeakyReLU returns a leaky ReLU *Activation
func LeakyReLU() *Activation {
	return &Activation{
		activationType: leakyReLU,
		f: func(x *G.Node) (*G.Node, error) {
			return G.LeakyRelu(x, leakiness)
		},
	}
}

// TanH returns a tanh *Activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
	}
}

// Sigmoid returns a logistic sigmoid *Activation
func Sigmoid() *Activation {
	return &Activation{
		activationType: sigmoid,
		f:              G.Sigmoid,
	}
}
