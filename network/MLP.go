package network

import (
	"fmt"

	"github.com/samuelfneumann/asyncrl/initwfn"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLPConfig describes the architecture of an MLP. Index i of each
// Hidden field describes hidden layer i, and all Hidden fields must
// have the same length.
type MLPConfig struct {
	HiddenSizes       []int
	HiddenActivations []*Activation
	HiddenWInit       []*initwfn.InitWFn
	HiddenBInit       []*initwfn.InitWFn

	OutputActivation *Activation
	OutputWInit      *initwfn.InitWFn
	OutputBInit      *initwfn.InitWFn

	// BatchNorm adds batch normalization on the input and after each
	// hidden layer. The output layer is always batch normalized.
	BatchNorm bool
}

// Validate checks that an MLPConfig describes a valid architecture
func (c MLPConfig) Validate() error {
	n := len(c.HiddenSizes)
	if len(c.HiddenActivations) != n {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", n, len(c.HiddenActivations))
	}
	if len(c.HiddenWInit) != n {
		return fmt.Errorf("validate: invalid number of weight initializers"+
			"\n\twant(%v)\n\thave(%v)", n, len(c.HiddenWInit))
	}
	if len(c.HiddenBInit) != n {
		return fmt.Errorf("validate: invalid number of bias initializers"+
			"\n\twant(%v)\n\thave(%v)", n, len(c.HiddenBInit))
	}

	for i, size := range c.HiddenSizes {
		if size <= 0 {
			return fmt.Errorf("validate: hidden layer %v must have a "+
				"positive number of units\n\thave(%v)", i, size)
		}
		if c.HiddenWInit[i] == nil || c.HiddenBInit[i] == nil {
			return fmt.Errorf("validate: hidden layer %v has no "+
				"initializer", i)
		}
	}
	if c.OutputWInit == nil || c.OutputBInit == nil {
		return fmt.Errorf("validate: output layer has no initializer")
	}
	return nil
}

// mlp implements a multi-layered perceptron with an optional batch
// normalization layer after the input and each hidden layer, and a
// batch normalization layer on the output.
type mlp struct {
	g             *G.ExprGraph
	layers        []Layer
	input         *G.Node
	numOutputs    int
	numInputs     int
	batchSize     int
	deterministic bool

	learnables G.Nodes
	params     G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron with
// features inputs and outputs outputs, which takes batch samples at a
// time as input. The graph g is populated with the MLP.
//
// Each dense layer computes x·W + b followed by its activation. When
// c.BatchNorm is set, a hidden dense layer drops its bias and its
// activation is applied after the following batch normalization layer.
// The output dense layer is always followed by batch normalization, and
// the output activation is applied after it.
//
// The forward pass on the input node is computed with deterministic
// batch normalization if deterministic is true.
func NewMLP(g *G.ExprGraph, features, batch, outputs int, c MLPConfig,
	deterministic bool) (NeuralNet, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newMLP: %v", err)
	}
	if features <= 0 || outputs <= 0 || batch <= 0 {
		return nil, fmt.Errorf("newMLP: features, outputs, and batch size "+
			"must be positive\n\thave(%v, %v, %v)", features, outputs, batch)
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	network := mlp{
		g:             g,
		layers:        addLayers(g, features, outputs, c),
		input:         input,
		numOutputs:    outputs,
		numInputs:     features,
		batchSize:     batch,
		deterministic: deterministic,
	}

	if err := network.setPrediction(); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %v",
			err)
	}
	return &network, nil
}

// addLayers adds the layers described by c to g
func addLayers(g *G.ExprGraph, features, outputs int, c MLPConfig) []Layer {
	layers := make([]Layer, 0, 2*len(c.HiddenSizes)+3)
	if c.BatchNorm {
		layers = append(layers, newBatchNormLayer(g, "input_bn", features,
			nil))
	}

	in := features
	for i, size := range c.HiddenSizes {
		name := fmt.Sprintf("h%d", i)
		act := c.HiddenActivations[i]
		wInit := c.HiddenWInit[i].InitWFn()

		if c.BatchNorm {
			layers = append(
				layers,
				newFCLayer(g, name, in, size, wInit, nil, nil),
				newBatchNormLayer(g, name+"_bn", size, act),
			)
		} else {
			bInit := c.HiddenBInit[i].InitWFn()
			layers = append(layers, newFCLayer(g, name, in, size, wInit,
				bInit, act))
		}
		in = size
	}

	// The output is always batch normalized, so its bias is dropped and
	// OutputBInit is only validated
	layers = append(
		layers,
		newFCLayer(g, "output", in, outputs, c.OutputWInit.InitWFn(), nil,
			nil),
		newBatchNormLayer(g, "output_bn", outputs, c.OutputActivation),
	)
	return layers
}

// Graph returns the computational graph of the mlp.
func (e *mlp) Graph() *G.ExprGraph {
	return e.g
}

// CloneWithBatch clones an mlp, including all parameter values, to a
// new computational graph with a new input batch size.
func (e *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be "+
			"positive\n\thave(%v)", batchSize)
	}
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	l := make([]Layer, len(e.layers))
	for i := range e.layers {
		l[i] = e.layers[i].CloneTo(graph)
	}

	network := mlp{
		g:             graph,
		layers:        l,
		input:         input,
		numOutputs:    e.numOutputs,
		numInputs:     e.numInputs,
		batchSize:     batchSize,
		deterministic: e.deterministic,
	}
	if err := network.setPrediction(); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %v", err)
	}

	return &network, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *mlp) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single input vector
func (e *mlp) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *mlp) Outputs() int {
	return e.numOutputs
}

// Input returns the input node of the network
func (e *mlp) Input() *G.Node {
	return e.input
}

// Layers returns the layers of the network, from input to output
func (e *mlp) Layers() []Layer {
	return e.layers
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *mlp) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the parameters of an mlp to be equal to the parameters of
// another network with the same architecture
func (dest *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Params()
	nodes := dest.Params()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: invalid number of parameters\n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i, destParam := range nodes {
		if !destParam.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: invalid shape for %v\n\twant(%v)"+
				"\n\thave(%v)", destParam.Name(), destParam.Shape(),
				sourceNodes[i].Shape())
		}
		sourceParam := sourceNodes[i].Clone()
		err := G.Let(destParam, sourceParam.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the learnable weights of an mlp to be a polyak average
// between its existing weights and the weights of another network
func (dest *mlp) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: invalid number of learnables"+
			"\n\twant(%v)\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in an mlp
func (e *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		for _, l := range e.layers {
			e.learnables = append(e.learnables, l.Learnables()...)
		}
	}
	return e.learnables
}

// Params returns all nodes that define the function the mlp computes
func (e *mlp) Params() G.Nodes {
	if e.params == nil {
		for _, l := range e.layers {
			e.params = append(e.params, l.Params()...)
		}
	}
	return e.params
}

// Model returns the learnables nodes with their gradients.
func (e *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		model := make([]G.ValueGrad, 0, len(e.Learnables()))
		for _, node := range e.Learnables() {
			model = append(model, node)
		}
		e.model = model
	}
	return e.model
}

// UpdateStatistics moves the running statistics of each batch
// normalization layer towards the batch statistics computed in the most
// recent run of a non-deterministic forward pass
func (e *mlp) UpdateStatistics() error {
	for _, l := range e.layers {
		bn, ok := l.(*batchNormLayer)
		if !ok {
			continue
		}
		if err := bn.updateStatistics(); err != nil {
			return err
		}
	}
	return nil
}

// Fwd adds a forward pass of the mlp on x to the mlp's graph and
// returns the output node. Input x must be a matrix in the mlp's graph
// with Features() columns and may have any number of rows.
func (e *mlp) Fwd(x *G.Node, deterministic bool) (*G.Node, error) {
	if x.Graph() != e.g {
		return nil, fmt.Errorf("fwd: input must be in the network graph")
	}
	if !x.IsMatrix() {
		return nil, fmt.Errorf("fwd: input must be a matrix\n\thave(%v)",
			x.Shape())
	}
	if features := x.Shape()[1]; features != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net"+
			"\n\twant(%v)\n\thave(%v)", e.numInputs, features)
	}

	pred := x
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred, deterministic); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}
	return pred, nil
}

// setPrediction computes the forward pass on the input node
func (e *mlp) setPrediction() error {
	pred, err := e.Fwd(e.input, e.deterministic)
	if err != nil {
		return err
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)
	return nil
}

// Output returns the output of the mlp after the graph has been run
func (e *mlp) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the mlp
func (e *mlp) Prediction() *G.Node {
	return e.prediction
}
