// Package initwfn wraps Gorgonia InitWFn so that weight initializers
// can be described by short expressions in configuration files, such as
// "HeUniform()" or "Uniform(-3e-3, 3e-3)".
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	Uniform  Type = "Uniform"
	Gaussian Type = "Gaussian"
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Constant Type = "Constant"
	Zeroes   Type = "Zeroes"
	Ones     Type = "Ones"
)

// InitWFn wraps a Gorgonia InitWFn together with the Config that
// created it, so that the initializer can be printed and re-parsed.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String returns the canonical expression of the initializer. Parsing
// the returned string yields an equivalent InitWFn.
func (i *InitWFn) String() string {
	if i == nil || i.Config == nil {
		return "<nil>"
	}
	return i.Config.String()
}

// MarshalText implements the encoding.TextMarshaler interface
func (i *InitWFn) MarshalText() ([]byte, error) {
	if i.Config == nil {
		return nil, fmt.Errorf("marshaltext: initializer has no config")
	}
	return []byte(i.Config.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (i *InitWFn) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = *parsed
	return nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type

	// String returns the expression describing the Config
	String() string
}
