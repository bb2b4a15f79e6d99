package initwfn

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownInit is returned when an initializer expression names an
// initializer that does not exist
var ErrUnknownInit = errors.New("unknown initializer")

// Parse evaluates an initializer expression and returns the InitWFn it
// describes. An expression is a name, optionally qualified by dotted
// package names which are ignored, followed by an optional list of
// numeric arguments:
//
//	HeUniform()
//	init.Constant(0.)
//	Uniform(-3e-3, 3e-3)
//	Uniform(0.05)            // equivalent to Uniform(-0.05, 0.05)
//	Normal(0.01)             // standard deviation, then optional mean
//	GlorotUniform("relu")    // gain of sqrt(2)
func Parse(expr string) (*InitWFn, error) {
	name, args, err := parseCall(expr)
	if err != nil {
		return nil, fmt.Errorf("parse: %q: %v", expr, err)
	}

	init, err := build(name, args)
	if err != nil {
		return nil, fmt.Errorf("parse: %q: %w", expr, err)
	}
	return init, nil
}

// MustParse is like Parse but panics if the expression is invalid
func MustParse(expr string) *InitWFn {
	init, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return init
}

// build constructs the InitWFn named name with arguments args
func build(name string, args []float64) (*InitWFn, error) {
	switch name {
	case "Uniform":
		switch len(args) {
		case 1:
			return NewUniform(-args[0], args[0])
		case 2:
			return NewUniform(args[0], args[1])
		}
		return nil, arity(name, "1 or 2", len(args))

	case "Normal", "Gaussian":
		switch len(args) {
		case 0:
			return NewGaussian(0, 0.01)
		case 1:
			return NewGaussian(0, args[0])
		case 2:
			return NewGaussian(args[1], args[0])
		}
		return nil, arity(name, "0 to 2", len(args))

	case "HeUniform", "HeU", "HeNormal", "HeN", "GlorotUniform",
		"GlorotU", "GlorotNormal", "GlorotN":
		gain := 1.0
		switch len(args) {
		case 0:
		case 1:
			gain = args[0]
		default:
			return nil, arity(name, "0 or 1", len(args))
		}

		switch name {
		case "HeUniform", "HeU":
			return NewHeU(gain)
		case "HeNormal", "HeN":
			return NewHeN(gain)
		case "GlorotUniform", "GlorotU":
			return NewGlorotU(gain)
		default:
			return NewGlorotN(gain)
		}

	case "Constant":
		switch len(args) {
		case 0:
			return NewConstant(0)
		case 1:
			return NewConstant(args[0])
		}
		return nil, arity(name, "0 or 1", len(args))

	case "Zeros", "Zeroes":
		if len(args) != 0 {
			return nil, arity(name, "0", len(args))
		}
		return NewZeroes()

	case "Ones":
		if len(args) != 0 {
			return nil, arity(name, "0", len(args))
		}
		return NewOnes()
	}

	return nil, fmt.Errorf("%w %v", ErrUnknownInit, name)
}

// arity returns an error describing an incorrect number of arguments
func arity(name, want string, have int) error {
	return fmt.Errorf("invalid number of arguments to %v\n\twant(%v)"+
		"\n\thave(%v)", name, want, have)
}

// parseCall splits an expression into the unqualified name of the
// called initializer and its evaluated arguments
func parseCall(expr string) (string, []float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", nil, fmt.Errorf("empty expression")
	}

	node, err := parser.ParseExpr(expr)
	if err != nil {
		return "", nil, fmt.Errorf("malformed expression: %v", err)
	}

	var fun ast.Expr
	var argExprs []ast.Expr
	switch n := node.(type) {
	case *ast.CallExpr:
		if n.Ellipsis.IsValid() {
			return "", nil, fmt.Errorf("variadic arguments not supported")
		}
		fun = n.Fun
		argExprs = n.Args
	default:
		fun = n
	}

	name, err := unqualified(fun)
	if err != nil {
		return "", nil, err
	}

	args := make([]float64, len(argExprs))
	for i, a := range argExprs {
		if args[i], err = number(a); err != nil {
			return "", nil, fmt.Errorf("argument %d: %v", i, err)
		}
	}

	return name, args, nil
}

// unqualified returns the final identifier of a possibly dotted name
func unqualified(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.Ident:
		return n.Name, nil
	case *ast.SelectorExpr:
		return n.Sel.Name, nil
	}
	return "", fmt.Errorf("expected an initializer name, got %T", e)
}

// number evaluates a numeric literal, possibly signed. The string
// literal "relu" evaluates to the He/Glorot gain for rectifiers.
func number(e ast.Expr) (float64, error) {
	switch n := e.(type) {
	case *ast.ParenExpr:
		return number(n.X)

	case *ast.UnaryExpr:
		v, err := number(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		}
		return 0, fmt.Errorf("unsupported operator %v", n.Op)

	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT:
			return strconv.ParseFloat(n.Value, 64)
		case token.STRING:
			s, err := strconv.Unquote(n.Value)
			if err != nil {
				return 0, err
			}
			if s == "relu" {
				return math.Sqrt2, nil
			}
			return 0, fmt.Errorf("unsupported gain %q", s)
		}
	}
	return 0, fmt.Errorf("expected a number, got %T", e)
}
