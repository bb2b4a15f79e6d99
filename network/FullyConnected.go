package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer is a single layer of a feed forward neural network
type Layer interface {
	// fwd adds the forward pass of the layer on input x to x's graph.
	// If deterministic is true, the layer behaves as it should at
	// inference time.
	fwd(x *G.Node, deterministic bool) (*G.Node, error)

	// CloneTo clones the layer and its parameter values to graph g
	CloneTo(g *G.ExprGraph) Layer

	Learnables() G.Nodes
	Params() G.Nodes
	Name() string
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	name    string
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights of a fully connected layer with in
// inputs and out outputs to g. If bInit is nil, the layer has no bias.
func newFCLayer(g *G.ExprGraph, name string, in, out int, wInit,
	bInit G.InitWFn, act *Activation) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"_W"),
		G.WithInit(wInit),
	)

	var bias *G.Node
	if bInit != nil {
		bias = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, out),
			G.WithName(name+"_b"),
			G.WithInit(bInit),
		)
	}

	if act == nil {
		act = Identity()
	}

	return &fcLayer{
		name:    name,
		weights: weights,
		bias:    bias,
		act:     act,
	}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node, _ bool) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}
	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		if x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0}); err != nil {
			return nil, err
		}
	}
	return f.act.fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	var newBias *G.Node
	if f.bias != nil {
		newBias = f.bias.CloneTo(g)
	}

	return &fcLayer{
		name:    f.name,
		weights: f.weights.CloneTo(g),
		bias:    newBias,
		act:     f.act,
	}
}

// Learnables returns the weights and, if present, the bias
func (f *fcLayer) Learnables() G.Nodes {
	if f.bias == nil {
		return G.Nodes{f.weights}
	}
	return G.Nodes{f.weights, f.bias}
}

// Params returns the same nodes as Learnables, a fully connected layer
// has no other state
func (f *fcLayer) Params() G.Nodes {
	return f.Learnables()
}

func (f *fcLayer) Name() string {
	return f.name
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}
