// Package agent defines the policy interfaces of agents and the typed
// configurations of the agents that the trainer runs
package agent

import (
	"github.com/samuelfneumann/asyncrl/network"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// Policy represents a policy that an agent can have.
type Policy interface {
	ActionDim() int
	ObservationDim() int
}

// DeterministicPolicy is a Policy that maps each observation to a
// single action.
type DeterministicPolicy interface {
	Policy

	// GetAction returns the action taken in a single observation
	GetAction(obs mat.Vector) (*mat.VecDense, error)

	// GetActions returns the actions taken in a batch of observations,
	// one observation per row
	GetActions(obs mat.Matrix) (*mat.Dense, error)

	// GetActionSym returns a node computing the actions taken in the
	// observations of the input node
	GetActionSym(input *G.Node, deterministic bool) (*G.Node, error)
}

// NNPolicy represents a policy that uses neural network function
// approximation.
//
// Policies implemented by neural networks hold a VM which is needed to
// run the policy and must be closed once the policy is no longer used.
type NNPolicy interface {
	DeterministicPolicy
	Network() network.NeuralNet
	Learnables() G.Nodes
	Close() error
}
