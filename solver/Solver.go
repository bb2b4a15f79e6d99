// Package solver wraps Gorgonia Solvers so that they can be JSON
// serialized into configuration files.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// configTypes maps each solver Type to its concrete Config type
var configTypes = map[Type]reflect.Type{
	Vanilla: reflect.TypeOf(VanillaConfig{}),
	Adam:    reflect.TypeOf(AdamConfig{}),
	RMSProp: reflect.TypeOf(RMSPropConfig{}),
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	Validate() error
}

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if err := check(t, c); err != nil {
		return nil, fmt.Errorf("newSolver: %v", err)
	}
	return &Solver{Solver: c.Create(), Type: t, Config: c}, nil
}

// Reset replaces the Gorgonia Solver with a new one, discarding any
// accumulated gradient statistics
func (s *Solver) Reset() {
	s.Solver = s.Config.Create()
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	var typed struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	ty, ok := configTypes[typed.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown solver type %q",
			typed.Type)
	}

	ptr := reflect.New(ty)
	if len(typed.Config) > 0 {
		if err := json.Unmarshal(typed.Config, ptr.Interface()); err != nil {
			return fmt.Errorf("unmarshalJSON: %v config: %v", typed.Type, err)
		}
	}
	config := ptr.Elem().Interface().(Config)

	if err := check(typed.Type, config); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	s.Type = typed.Type
	s.Config = config
	s.Solver = config.Create()
	return nil
}

// check returns an error if c is invalid or cannot create solvers of
// type t
func check(t Type, c Config) error {
	if !c.ValidType(t) {
		return fmt.Errorf("invalid solver type %v for configuration %T", t, c)
	}
	return c.Validate()
}

// options returns the solver options shared by all solvers. Clipping
// is only enabled for positive clip values.
func options(stepSize float64, batch int, clip float64) []G.SolverOpt {
	opts := []G.SolverOpt{
		G.WithLearnRate(stepSize),
		G.WithBatchSize(float64(batch)),
	}
	if clip > 0 {
		opts = append(opts, G.WithClip(clip))
	}
	return opts
}

// validate checks the hyperparameters shared by all solvers
func validate(stepSize float64, batch int) error {
	if stepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive\n\thave(%v)",
			stepSize)
	}
	if batch <= 0 {
		return fmt.Errorf("validate: batch size must be positive\n\thave(%v)",
			batch)
	}
	return nil
}
