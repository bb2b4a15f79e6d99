// Package network implements feed forward neural networks on Gorgonia
// computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass populates a
// Gorgonia computational graph.
//
// Learnables are the nodes a solver updates. Params are all nodes whose
// values define the network, which includes the Learnables and any
// non-trainable state such as batch normalization running statistics.
// Copying the values of Params from one NeuralNet to another with the
// same architecture makes the two compute the same function.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Input() *G.Node
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Params() G.Nodes
	Model() []G.ValueGrad
	Layers() []Layer
	Fwd(x *G.Node, deterministic bool) (*G.Node, error)
	UpdateStatistics() error
	Output() G.Value
	Prediction() *G.Node
}
