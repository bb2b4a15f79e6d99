package policy

import (
	"bytes"
	"encoding/gob"
	"sync"
	"testing"

	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/environment"
	"github.com/samuelfneumann/asyncrl/initwfn"
	"github.com/samuelfneumann/asyncrl/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

var _ agent.NNPolicy = (*MeanMLP)(nil)

func boxMDP(t *testing.T, obsDim, actDim int) environment.MDP {
	t.Helper()
	obs, err := environment.NewBoxSpec(environment.Observation, obsDim, -1, 1)
	require.NoError(t, err)
	act, err := environment.NewBoxSpec(environment.Action, actDim, -1, 1)
	require.NoError(t, err)
	mdp, err := environment.NewMDP(obs, act)
	require.NoError(t, err)
	return mdp
}

func smallConfig() Config {
	c := DefaultConfig()
	c.HiddenSizes = []int{8, 6}
	c.OutputWInit = "Uniform(-0.5, 0.5)"
	return c
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	m, err := c.mlpConfig()
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100}, m.HiddenSizes)
	for i := range m.HiddenSizes {
		assert.Equal(t, "rectify", m.HiddenActivations[i].String())
		assert.Equal(t, initwfn.HeU, m.HiddenWInit[i].Type)
		assert.Equal(t, initwfn.Constant, m.HiddenBInit[i].Type)
	}
	assert.True(t, m.OutputActivation.IsIdentity())
	assert.Equal(t, "Uniform(-0.003, 0.003)", m.OutputWInit.String())
	assert.Equal(t, "Uniform(-0.003, 0.003)", m.OutputBInit.String())
	assert.False(t, m.BatchNorm)
}

func TestConfigLayerCount(t *testing.T) {
	c := DefaultConfig()
	c.HiddenSizes = []int{10, 10, 10}
	c.HiddenNL = []string{"rectify", "tanh"}
	assert.ErrorIs(t, c.Validate(), ErrLayerCount)

	c = DefaultConfig()
	c.HiddenSizes = []int{10, 10, 10}
	c.HiddenBInit = []string{}
	assert.ErrorIs(t, c.Validate(), ErrLayerCount)

	_, err := New(boxMDP(t, 3, 2), c)
	assert.ErrorIs(t, err, ErrLayerCount)

	// Single element lists are used for every hidden layer
	c = DefaultConfig()
	c.HiddenSizes = []int{10, 10, 10}
	c.HiddenNL = []string{"tanh"}
	m, err := c.mlpConfig()
	require.NoError(t, err)
	require.Len(t, m.HiddenActivations, 3)
	for _, act := range m.HiddenActivations {
		assert.Equal(t, "tanh", act.String())
	}

	c.HiddenNL = []string{"tanh", "rectify", "linear"}
	require.NoError(t, c.Validate())
}

func TestConfigInvalid(t *testing.T) {
	c := DefaultConfig()
	c.HiddenWInit = []string{"Orthogonal()"}
	assert.ErrorIs(t, c.Validate(), initwfn.ErrUnknownInit)

	c = DefaultConfig()
	c.OutputNL = "softsign"
	assert.ErrorIs(t, c.Validate(), network.ErrUnknownActivation)

	c = DefaultConfig()
	c.HiddenSizes = []int{10, 0}
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Batch = 0
	assert.Error(t, c.Validate())
}

func TestNewRejectsDiscreteActions(t *testing.T) {
	obs, err := environment.NewBoxSpec(environment.Observation, 4, -1, 1)
	require.NoError(t, err)
	act, err := environment.NewDiscreteSpec(environment.Action, 3)
	require.NoError(t, err)
	mdp, err := environment.NewMDP(obs, act)
	require.NoError(t, err)

	_, err = New(mdp, DefaultConfig())
	assert.Error(t, err)
}

func TestGetAction(t *testing.T) {
	p, err := New(boxMDP(t, 3, 2), DefaultConfig())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 3, p.ObservationDim())
	assert.Equal(t, 2, p.ActionDim())

	action, err := p.GetAction(mat.NewVecDense(3, []float64{0.1, -0.2, 0.3}))
	require.NoError(t, err)
	assert.Equal(t, 2, action.Len())

	// Deterministic
	again, err := p.GetAction(mat.NewVecDense(3, []float64{0.1, -0.2, 0.3}))
	require.NoError(t, err)
	assert.True(t, mat.Equal(action, again))

	_, err = p.GetAction(mat.NewVecDense(2, nil))
	assert.Error(t, err)
}

func TestGetActionZeroObservation(t *testing.T) {
	p, err := New(boxMDP(t, 3, 2), DefaultConfig())
	require.NoError(t, err)
	defer p.Close()

	// Hidden biases start at zero and the normalized output layer has no
	// bias, so the zero observation maps to the zero action
	action, err := p.GetAction(mat.NewVecDense(3, nil))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, action.RawVector().Data, 1e-12)

	for _, l := range p.Network().Layers() {
		if l.Name() == "output" {
			assert.Len(t, l.Learnables(), 1)
		}
	}
}

func TestGetActionsChunked(t *testing.T) {
	c := smallConfig()
	c.Batch = 2
	c.BatchNorm = true
	p, err := New(boxMDP(t, 3, 2), c)
	require.NoError(t, err)
	defer p.Close()

	obs := mat.NewDense(5, 3, []float64{
		0.1, 0.2, 0.3,
		-1, 0, 1,
		0.5, 0.5, 0.5,
		2, -3, 1,
		0, 0, 0.7,
	})
	actions, err := p.GetActions(obs)
	require.NoError(t, err)
	r, cols := actions.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 2, cols)

	single, err := p.CloneWithBatch(1)
	require.NoError(t, err)
	defer single.Close()
	for i := 0; i < 5; i++ {
		action, err := single.GetAction(obs.RowView(i))
		require.NoError(t, err)
		assert.InDeltaSlice(t, action.RawVector().Data,
			mat.Row(nil, i, actions), 1e-10)
	}

	_, err = p.GetActions(mat.NewDense(2, 4, nil))
	assert.Error(t, err)
}

func TestGetActionSym(t *testing.T) {
	p, err := New(boxMDP(t, 3, 2), smallConfig())
	require.NoError(t, err)
	defer p.Close()

	input := G.NewMatrix(p.Network().Graph(), G.Float64, G.WithShape(4, 3),
		G.WithName("sym_input"), G.WithInit(G.Zeroes()))
	actions, err := p.GetActionSym(input, true)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, []int(actions.Shape()))

	// Symbolic actions share the parameters of the policy
	training, err := p.GetActionSym(input, false)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, []int(training.Shape()))

	other := G.NewMatrix(G.NewGraph(), G.Float64, G.WithShape(4, 3))
	_, err = p.GetActionSym(other, true)
	assert.Error(t, err)

	// The policy's own VM still runs after the graph has grown
	_, err = p.GetAction(mat.NewVecDense(3, []float64{1, 2, 3}))
	assert.NoError(t, err)
}

func TestParamValues(t *testing.T) {
	c := smallConfig()
	c.BatchNorm = true
	p, err := New(boxMDP(t, 3, 2), c)
	require.NoError(t, err)
	defer p.Close()

	values := p.ParamValues()
	total := 0
	for _, param := range p.Params() {
		total += param.Shape().TotalSize()
	}
	assert.Len(t, values, total)

	q, err := New(boxMDP(t, 3, 2), c)
	require.NoError(t, err)
	defer q.Close()
	assert.NotEqual(t, values, q.ParamValues())

	require.NoError(t, q.SetParamValues(values))
	assert.Equal(t, values, q.ParamValues())

	obs := mat.NewVecDense(3, []float64{0.3, 0.2, 0.1})
	want, err := p.GetAction(obs)
	require.NoError(t, err)
	got, err := q.GetAction(obs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawVector().Data, got.RawVector().Data, 1e-12)

	assert.Error(t, q.SetParamValues(values[1:]))
}

func TestSetAndClone(t *testing.T) {
	p, err := New(boxMDP(t, 2, 1), smallConfig())
	require.NoError(t, err)
	defer p.Close()

	q, err := New(boxMDP(t, 2, 1), smallConfig())
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Set(p))
	assert.Equal(t, p.ParamValues(), q.ParamValues())

	clone, err := p.Clone()
	require.NoError(t, err)
	defer clone.Close()
	assert.Equal(t, p.ParamValues(), clone.ParamValues())
	assert.Equal(t, p.Config(), clone.Config())

	wider, err := New(boxMDP(t, 3, 1), smallConfig())
	require.NoError(t, err)
	defer wider.Close()
	assert.Error(t, wider.Set(p))
}

func TestGob(t *testing.T) {
	c := smallConfig()
	c.BatchNorm = true
	p, err := New(boxMDP(t, 4, 3), c)
	require.NoError(t, err)
	defer p.Close()

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(p))

	var q MeanMLP
	require.NoError(t, gob.NewDecoder(&buf).Decode(&q))
	defer q.Close()

	assert.Equal(t, p.Config(), q.Config())
	assert.Equal(t, p.ObservationDim(), q.ObservationDim())
	assert.Equal(t, p.ActionDim(), q.ActionDim())
	assert.Equal(t, p.ParamValues(), q.ParamValues())

	obs := mat.NewDense(2, 4, []float64{1, 2, 3, 4, -1, -2, -3, -4})
	want, err := p.GetActions(obs)
	require.NoError(t, err)
	got, err := q.GetActions(obs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestConcurrentActions(t *testing.T) {
	p, err := New(boxMDP(t, 3, 2), smallConfig())
	require.NoError(t, err)
	defer p.Close()

	obs := mat.NewVecDense(3, []float64{0.4, -0.4, 0.2})
	want, err := p.GetAction(obs)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	actions := make([]*mat.VecDense, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actions[i], errs[i] = p.GetAction(obs)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.True(t, mat.Equal(want, actions[i]))
	}
}
