package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const (
	// DefaultBNAlpha is the weight of the most recent batch statistics
	// in the running averages of a batch normalization layer
	DefaultBNAlpha = 0.1

	// DefaultBNEpsilon is added to the variance before normalizing
	DefaultBNEpsilon = 1e-4
)

// batchNormLayer normalizes each feature of its input over the batch
// dimension, then scales by gamma and shifts by beta. When run
// deterministically, the running statistics are used in place of the
// batch statistics.
type batchNormLayer struct {
	name     string
	features int
	alpha    float64
	epsilon  float64
	act      *Activation

	gamma *G.Node
	beta  *G.Node

	// Running statistics, never updated by gradient steps
	mean     *G.Node
	variance *G.Node

	// Batch statistics of the most recent non-deterministic forward
	// pass
	batchMean    *G.Node
	batchVar     *G.Node
	batchMeanVal G.Value
	batchVarVal  G.Value
}

// newBatchNormLayer adds a batch normalization layer over features
// features to g. The activation act is applied after normalization.
func newBatchNormLayer(g *G.ExprGraph, name string, features int,
	act *Activation) *batchNormLayer {
	if act == nil {
		act = Identity()
	}

	param := func(suffix string, init G.InitWFn) *G.Node {
		return G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, features),
			G.WithName(name+suffix),
			G.WithInit(init),
		)
	}

	return &batchNormLayer{
		name:     name,
		features: features,
		alpha:    DefaultBNAlpha,
		epsilon:  DefaultBNEpsilon,
		act:      act,
		gamma:    param("_gamma", G.Ones()),
		beta:     param("_beta", G.Zeroes()),
		mean:     param("_mean", G.Zeroes()),
		variance: param("_var", G.Ones()),
	}
}

// fwd adds the forward pass of the batch normalization layer to the
// graph of x
func (b *batchNormLayer) fwd(x *G.Node, deterministic bool) (*G.Node,
	error) {
	if x.Shape()[1] != b.features {
		return nil, fmt.Errorf("fwd: invalid number of features\n\twant(%v)"+
			"\n\thave(%v)", b.features, x.Shape()[1])
	}

	var mean, variance *G.Node
	if deterministic {
		mean, variance = b.mean, b.variance
	} else {
		var err error
		if mean, err = b.columnMean(x); err != nil {
			return nil, err
		}

		centred, err := G.BroadcastSub(x, mean, nil, []byte{0})
		if err != nil {
			return nil, err
		}
		sq, err := G.Square(centred)
		if err != nil {
			return nil, err
		}
		if variance, err = b.columnMean(sq); err != nil {
			return nil, err
		}

		b.batchMean, b.batchVar = mean, variance
		b.batchMeanVal, b.batchVarVal = nil, nil
		G.Read(mean, &b.batchMeanVal)
		G.Read(variance, &b.batchVarVal)
	}

	centred, err := G.BroadcastSub(x, mean, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	eps := G.NewConstant(b.epsilon)
	std, err := G.Add(variance, eps)
	if err != nil {
		return nil, err
	}
	if std, err = G.Sqrt(std); err != nil {
		return nil, err
	}

	out, err := G.BroadcastHadamardDiv(centred, std, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	if out, err = G.BroadcastHadamardProd(out, b.gamma, nil,
		[]byte{0}); err != nil {
		return nil, err
	}
	if out, err = G.BroadcastAdd(out, b.beta, nil, []byte{0}); err != nil {
		return nil, err
	}

	return b.act.fwd(out)
}

// columnMean returns the mean of each column of x as a (1, features)
// matrix
func (b *batchNormLayer) columnMean(x *G.Node) (*G.Node, error) {
	mean, err := G.Mean(x, 0)
	if err != nil {
		return nil, err
	}
	return G.Reshape(mean, tensor.Shape{1, b.features})
}

// updateStatistics moves the running statistics towards the batch
// statistics recorded in the last run of the non-deterministic forward
// pass. Layers that never built a non-deterministic forward pass are
// left unchanged.
func (b *batchNormLayer) updateStatistics() error {
	if b.batchMean == nil {
		return nil
	}
	if b.batchMeanVal == nil || b.batchVarVal == nil {
		return fmt.Errorf("updateStatistics: layer %v has not been run",
			b.name)
	}

	if err := b.mix(b.mean, b.batchMeanVal); err != nil {
		return fmt.Errorf("updateStatistics: mean: %v", err)
	}
	if err := b.mix(b.variance, b.batchVarVal); err != nil {
		return fmt.Errorf("updateStatistics: variance: %v", err)
	}
	return nil
}

// mix sets running to (1 - alpha) * running + alpha * batch
func (b *batchNormLayer) mix(running *G.Node, batch G.Value) error {
	runningData, ok := running.Value().Data().([]float64)
	if !ok {
		return fmt.Errorf("running statistics must be float64")
	}
	batchData, ok := batch.Data().([]float64)
	if !ok {
		return fmt.Errorf("batch statistics must be float64")
	}
	if len(runningData) != len(batchData) {
		return fmt.Errorf("invalid number of statistics\n\twant(%v)"+
			"\n\thave(%v)", len(runningData), len(batchData))
	}

	updated := make([]float64, len(runningData))
	for i := range updated {
		updated[i] = (1-b.alpha)*runningData[i] + b.alpha*batchData[i]
	}

	return G.Let(running, tensor.New(
		tensor.WithShape(1, b.features),
		tensor.WithBacking(updated),
	))
}

// CloneTo clones the layer, including its running statistics, to g
func (b *batchNormLayer) CloneTo(g *G.ExprGraph) Layer {
	return &batchNormLayer{
		name:     b.name,
		features: b.features,
		alpha:    b.alpha,
		epsilon:  b.epsilon,
		act:      b.act,
		gamma:    b.gamma.CloneTo(g),
		beta:     b.beta.CloneTo(g),
		mean:     b.mean.CloneTo(g),
		variance: b.variance.CloneTo(g),
	}
}

// Learnables returns the scale and shift of the layer
func (b *batchNormLayer) Learnables() G.Nodes {
	return G.Nodes{b.gamma, b.beta}
}

// Params returns the scale, shift, and running statistics of the layer
func (b *batchNormLayer) Params() G.Nodes {
	return G.Nodes{b.gamma, b.beta, b.mean, b.variance}
}

func (b *batchNormLayer) Name() string {
	return b.name
}
