package agent

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/samuelfneumann/asyncrl/bonus"
)

// ErrUnknownType is returned when an agent Type has not been
// registered
var ErrUnknownType = errors.New("unknown agent type")

// Type represents a specific type of an agent Config.
type Type string

const (
	// A3C is the asynchronous advantage actor-critic agent
	A3C Type = "a3c"

	// DQN is the asynchronous one-step Q-learning agent
	DQN Type = "dqn"
)

// Factory returns the default Config of an agent acting with nActions
// actions and receiving exploration bonuses from the evaluator that
// b describes
type Factory func(nActions int, b bonus.EvaluatorConfig) Config

type registration struct {
	factory Factory
	config  reflect.Type
}

// Registered types with the package. Once a Type has been registered
// with this map, a Config or TypedConfig with that type can be created.
//
// No Type's are registered wtih this package upon initialization.
// Each separate package is in charge of registering its Type with
// the package separately to avoid circular imports.
var registeredTypes = make(map[Type]registration)

// Register registers an agent's Type with a Factory of its Configs so
// that upon deserialization of a TypedConfig, Configs of type agentType
// are deserialized into the concrete type that the Factory returns.
func Register(agentType Type, f Factory) {
	config := f(0, bonus.EvaluatorConfig{})
	if config.Type() != agentType {
		panic(fmt.Sprintf("register: factory for %v creates configs of "+
			"type %v", agentType, config.Type()))
	}
	registeredTypes[agentType] = registration{
		factory: f,
		config:  reflect.TypeOf(config),
	}
}

// Lookup returns the Factory registered with agentType
func Lookup(agentType Type) (Factory, error) {
	r, ok := registeredTypes[agentType]
	if !ok {
		return nil, fmt.Errorf("lookup: %w %q", ErrUnknownType, agentType)
	}
	return r.factory, nil
}

// NewConfig returns the default Config of the agent type agentType
func NewConfig(agentType Type, nActions int,
	b bonus.EvaluatorConfig) (Config, error) {
	f, err := Lookup(agentType)
	if err != nil {
		return nil, fmt.Errorf("newConfig: %w", err)
	}
	return f(nActions, b), nil
}

// Registered returns all registered Types in sorted order
func Registered() []Type {
	types := make([]Type, 0, len(registeredTypes))
	for t := range registeredTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
