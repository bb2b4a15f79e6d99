// Package environment outlines the specifications of the observations
// and actions of the environments that agents interact with
package environment

import "fmt"

// MDP describes the observation and action spaces of an environment
// without simulating it
type MDP interface {
	ObservationSpec() Spec
	ActionSpec() Spec
}

type mdp struct {
	observation Spec
	action      Spec
}

// NewMDP returns a new MDP with the given observation and action
// specifications
func NewMDP(observation, action Spec) (MDP, error) {
	if observation.Type != Observation {
		return nil, fmt.Errorf("newMDP: invalid observation spec type"+
			"\n\twant(%v)\n\thave(%v)", Observation, observation.Type)
	}
	if action.Type != Action {
		return nil, fmt.Errorf("newMDP: invalid action spec type"+
			"\n\twant(%v)\n\thave(%v)", Action, action.Type)
	}
	if observation.Dim() == 0 || action.Dim() == 0 {
		return nil, fmt.Errorf("newMDP: observation and action specs must " +
			"have positive dimension")
	}
	return &mdp{observation: observation, action: action}, nil
}

// ObservationSpec returns the observation specification of the MDP
func (m *mdp) ObservationSpec() Spec {
	return m.observation
}

// ActionSpec returns the action specification of the MDP
func (m *mdp) ActionSpec() Spec {
	return m.action
}
