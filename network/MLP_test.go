package network

import (
	"math"
	"testing"

	"github.com/samuelfneumann/asyncrl/initwfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

// constantConfig returns an MLPConfig with all weights set to 1 and all
// biases set to 0
func constantConfig(hidden []int, act *Activation, bn bool) MLPConfig {
	c := MLPConfig{
		HiddenSizes:      hidden,
		OutputActivation: Identity(),
		OutputWInit:      initwfn.MustParse("Constant(1)"),
		OutputBInit:      initwfn.MustParse("Constant(0)"),
		BatchNorm:        bn,
	}
	for range hidden {
		c.HiddenActivations = append(c.HiddenActivations, act)
		c.HiddenWInit = append(c.HiddenWInit, initwfn.MustParse("Constant(1)"))
		c.HiddenBInit = append(c.HiddenBInit, initwfn.MustParse("Constant(0)"))
	}
	return c
}

func run(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()
	require.NoError(t, net.SetInput(input))

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...)
}

func TestMLPConfigValidate(t *testing.T) {
	c := constantConfig([]int{4, 4}, ReLU(), false)
	require.NoError(t, c.Validate())

	c.HiddenActivations = c.HiddenActivations[:1]
	assert.Error(t, c.Validate())

	c = constantConfig([]int{4, 0}, ReLU(), false)
	assert.Error(t, c.Validate())

	c = constantConfig([]int{4}, ReLU(), false)
	c.OutputWInit = nil
	assert.Error(t, c.Validate())
}

func TestMLPDeterministicOutput(t *testing.T) {
	net, err := NewMLP(G.NewGraph(), 3, 1, 1,
		constantConfig([]int{2}, ReLU(), false), true)
	require.NoError(t, err)

	assert.Equal(t, 3, net.Features())
	assert.Equal(t, 1, net.Outputs())
	assert.Equal(t, 1, net.BatchSize())

	// Hidden layer: relu(1 + 2 + 3) = 6 per unit, output: 12, then the
	// output batch normalization with initial running statistics
	out := run(t, net, []float64{1, 2, 3})
	require.Len(t, out, 1)
	assert.InDelta(t, 12/math.Sqrt(1+DefaultBNEpsilon), out[0], 1e-9)

	// Negative pre-activations are rectified
	out = run(t, net, []float64{-1, -2, -3})
	assert.InDelta(t, 0, out[0], 1e-9)
}

func TestMLPBatchNormLayers(t *testing.T) {
	net, err := NewMLP(G.NewGraph(), 3, 2, 2,
		constantConfig([]int{5, 4}, TanH(), true), true)
	require.NoError(t, err)

	var names []string
	for _, l := range net.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"input_bn", "h0", "h0_bn", "h1", "h1_bn",
		"output", "output_bn"}, names)

	// Dense layers drop their bias under batch normalization
	assert.Nil(t, net.Layers()[1].(*fcLayer).Bias())
	assert.Nil(t, net.Layers()[3].(*fcLayer).Bias())
	assert.Nil(t, net.Layers()[5].(*fcLayer).Bias())

	// 4 batch norm layers with 2 learnables and 4 params each, and the
	// weights of the 2 hidden layers and the output layer
	assert.Len(t, net.Learnables(), 4*2+3)
	assert.Len(t, net.Params(), 4*4+3)
	assert.Len(t, net.Model(), len(net.Learnables()))

	out := run(t, net, []float64{1, 2, 3, 4, 5, 6})
	assert.Len(t, out, 4)
}

func TestMLPWithoutBatchNormStillNormalizesOutput(t *testing.T) {
	net, err := NewMLP(G.NewGraph(), 2, 1, 3,
		constantConfig([]int{2}, ReLU(), false), true)
	require.NoError(t, err)

	layers := net.Layers()
	require.Len(t, layers, 3)
	_, ok := layers[len(layers)-1].(*batchNormLayer)
	assert.True(t, ok)

	// The hidden layer keeps its bias, the batch normalized output layer
	// does not
	assert.NotNil(t, layers[0].(*fcLayer).Bias())
	assert.Nil(t, layers[1].(*fcLayer).Bias())
}

func TestMLPOutputBiasIgnored(t *testing.T) {
	c := constantConfig([]int{2}, ReLU(), false)
	c.OutputBInit = initwfn.MustParse("Constant(5)")

	net, err := NewMLP(G.NewGraph(), 3, 1, 1, c, true)
	require.NoError(t, err)

	out := run(t, net, []float64{1, 2, 3})
	assert.InDelta(t, 12/math.Sqrt(1+DefaultBNEpsilon), out[0], 1e-9)
}

func TestMLPCloneAndSet(t *testing.T) {
	c := constantConfig([]int{3}, ReLU(), false)
	c.HiddenWInit[0] = initwfn.MustParse("HeUniform()")
	c.OutputWInit = initwfn.MustParse("Uniform(-1, 1)")

	net, err := NewMLP(G.NewGraph(), 2, 1, 2, c, true)
	require.NoError(t, err)

	clone, err := net.CloneWithBatch(3)
	require.NoError(t, err)
	assert.Equal(t, 3, clone.BatchSize())
	assert.NotSame(t, net.Graph(), clone.Graph())

	single := run(t, net, []float64{0.5, -0.25})
	batch := run(t, clone, []float64{0.5, -0.25, 0.5, -0.25, 0.5, -0.25})
	for i := 0; i < 3; i++ {
		assert.InDeltaSlice(t, single, batch[2*i:2*i+2], 1e-12)
	}

	// A freshly initialized net computes a different function until Set
	other, err := NewMLP(G.NewGraph(), 2, 1, 2, c, true)
	require.NoError(t, err)
	require.NoError(t, other.Set(net))
	assert.InDeltaSlice(t, single, run(t, other, []float64{0.5, -0.25}),
		1e-12)

	wrong, err := NewMLP(G.NewGraph(), 2, 1, 2,
		constantConfig([]int{3, 3}, ReLU(), false), true)
	require.NoError(t, err)
	assert.Error(t, wrong.Set(net))

	_, err = net.CloneWithBatch(0)
	assert.Error(t, err)
}

func TestMLPPolyak(t *testing.T) {
	zero := constantConfig(nil, nil, false)
	zero.OutputWInit = initwfn.MustParse("Constant(0)")
	dest, err := NewMLP(G.NewGraph(), 1, 1, 1, zero, true)
	require.NoError(t, err)

	source, err := NewMLP(G.NewGraph(), 1, 1, 1,
		constantConfig(nil, nil, false), true)
	require.NoError(t, err)

	require.NoError(t, dest.Polyak(source, 0.25))
	w := dest.Learnables()[0].Value().Data().([]float64)
	assert.InDelta(t, 0.25, w[0], 1e-12)
}

func TestMLPUpdateStatistics(t *testing.T) {
	net, err := NewMLP(G.NewGraph(), 1, 2, 1,
		constantConfig(nil, nil, false), false)
	require.NoError(t, err)

	out := run(t, net, []float64{1, 3})
	want := 1 / math.Sqrt(1+DefaultBNEpsilon)
	assert.InDeltaSlice(t, []float64{-want, want}, out, 1e-9)

	require.NoError(t, net.UpdateStatistics())

	params := net.Params()
	mean := params[4].Value().Data().([]float64)
	variance := params[5].Value().Data().([]float64)
	assert.InDelta(t, DefaultBNAlpha*2, mean[0], 1e-12)
	assert.InDelta(t, 1, variance[0], 1e-12)
}

func TestMLPFwdValidatesInput(t *testing.T) {
	net, err := NewMLP(G.NewGraph(), 2, 1, 1,
		constantConfig(nil, nil, false), true)
	require.NoError(t, err)

	_, err = net.Fwd(G.NewMatrix(G.NewGraph(), G.Float64, G.WithShape(1, 2)),
		true)
	assert.Error(t, err)

	_, err = net.Fwd(G.NewMatrix(net.Graph(), G.Float64, G.WithShape(4, 3),
		G.WithName("wide")), true)
	assert.Error(t, err)

	pred, err := net.Fwd(G.NewMatrix(net.Graph(), G.Float64,
		G.WithShape(4, 2), G.WithName("batch")), true)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, []int(pred.Shape()))

	assert.Error(t, net.SetInput([]float64{1, 2, 3}))
}

func TestParseActivation(t *testing.T) {
	tests := map[string]string{
		"nonlinearities.rectify": "rectify",
		"ReLU":                   "rectify",
		"leaky_rectify":          "leaky_rectify",
		"tanh":                   "tanh",
		"sigmoid":                "sigmoid",
		"None":                   "linear",
		"":                       "linear",
	}
	for expr, want := range tests {
		act, err := ParseActivation(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want, act.String(), expr)
	}

	_, err := ParseActivation("softsign")
	assert.ErrorIs(t, err, ErrUnknownActivation)

	var nilAct *Activation
	assert.True(t, nilAct.IsIdentity())
	assert.False(t, ReLU().IsIdentity())
}
