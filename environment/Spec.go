package environment

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// String implements the fmt.Stringer interface
func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	case Discount:
		return "Discount"
	case Reward:
		return "Reward"
	}
	return fmt.Sprintf("SpecType(%d)", int(s))
}

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or reward in
// an environment. The length of Shape is the dimension of the values the
// Spec describes.
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) Spec {
	if shape.Len() != lowerBound.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v",
			shape.Len(), lowerBound.Len()))
	}
	if shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("shape length %v must match upper bounds length %v",
			shape.Len(), upperBound.Len()))
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}
}

// NewBoxSpec returns a continuous Spec of dimension dim with every
// component bounded by [low, high]
func NewBoxSpec(t SpecType, dim int, low, high float64) (Spec, error) {
	if dim <= 0 {
		return Spec{}, fmt.Errorf("newBoxSpec: dimension must be positive"+
			"\n\thave(%v)", dim)
	}
	if low > high {
		return Spec{}, fmt.Errorf("newBoxSpec: lower bound %v > upper "+
			"bound %v", low, high)
	}

	lower := make([]float64, dim)
	floats.AddConst(low, lower)
	upper := make([]float64, dim)
	floats.AddConst(high, upper)

	return NewSpec(mat.NewVecDense(dim, nil), t, mat.NewVecDense(dim, lower),
		mat.NewVecDense(dim, upper), Continuous), nil
}

// NewDiscreteSpec returns a one dimensional discrete Spec over the
// values 0, 1, ..., n-1
func NewDiscreteSpec(t SpecType, n int) (Spec, error) {
	if n <= 0 {
		return Spec{}, fmt.Errorf("newDiscreteSpec: number of values must "+
			"be positive\n\thave(%v)", n)
	}
	return NewSpec(mat.NewVecDense(1, nil), t, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(n - 1)}), Discrete), nil
}

// Dim returns the dimension of the values the Spec describes
func (s Spec) Dim() int {
	if s.Shape == nil {
		return 0
	}
	return s.Shape.Len()
}
