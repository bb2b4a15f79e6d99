// Package policy implements deterministic policies for continuous
// actions using neural network function approximation
package policy

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/asyncrl/environment"
	"github.com/samuelfneumann/asyncrl/network"
	sync "github.com/sasha-s/go-deadlock"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MeanMLP is a deterministic policy whose action in each observation
// is the output of an MLP. The output layer of the MLP is always batch
// normalized, and actions are computed with the running statistics of
// each batch normalization layer.
//
// A MeanMLP is safe for concurrent action queries.
type MeanMLP struct {
	config Config
	obsDim int
	actDim int

	mu  sync.Mutex
	net network.NeuralNet
	vm  G.VM
}

// New returns a new MeanMLP that acts in the continuous action space
// of mdp
func New(mdp environment.MDP, c Config) (*MeanMLP, error) {
	actionSpec := mdp.ActionSpec()
	if actionSpec.Cardinality == environment.Discrete {
		return nil, fmt.Errorf("new: mean MLP policy cannot be used with " +
			"discrete actions")
	}

	p, err := newMeanMLP(mdp.ObservationSpec().Dim(), actionSpec.Dim(), c)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return p, nil
}

// newMeanMLP returns a new MeanMLP with obsDim inputs and actDim
// outputs
func newMeanMLP(obsDim, actDim int, c Config) (*MeanMLP, error) {
	if obsDim <= 0 || actDim <= 0 {
		return nil, fmt.Errorf("observation and action dimensions must be "+
			"positive\n\thave(%v, %v)", obsDim, actDim)
	}

	mlpConfig, err := c.mlpConfig()
	if err != nil {
		return nil, err
	}

	net, err := network.NewMLP(G.NewGraph(), obsDim, c.Batch, actDim,
		mlpConfig, true)
	if err != nil {
		return nil, fmt.Errorf("could not create policy network: %v", err)
	}

	return &MeanMLP{
		config: c,
		obsDim: obsDim,
		actDim: actDim,
		net:    net,
		vm:     G.NewTapeMachine(net.Graph()),
	}, nil
}

// Config returns the Config of the policy
func (m *MeanMLP) Config() Config {
	return m.config
}

// ActionDim returns the dimension of actions
func (m *MeanMLP) ActionDim() int {
	return m.actDim
}

// ObservationDim returns the dimension of observations
func (m *MeanMLP) ObservationDim() int {
	return m.obsDim
}

// Network returns the neural network of the policy
func (m *MeanMLP) Network() network.NeuralNet {
	return m.net
}

// Learnables returns the trainable parameters of the policy
func (m *MeanMLP) Learnables() G.Nodes {
	return m.net.Learnables()
}

// Params returns all parameters of the policy, which includes the
// running statistics of batch normalization layers
func (m *MeanMLP) Params() G.Nodes {
	return m.net.Params()
}

// GetAction returns the action taken in observation obs
func (m *MeanMLP) GetAction(obs mat.Vector) (*mat.VecDense, error) {
	if obs.Len() != m.obsDim {
		return nil, fmt.Errorf("getAction: invalid observation dimension"+
			"\n\twant(%v)\n\thave(%v)", m.obsDim, obs.Len())
	}

	row := mat.NewDense(1, m.obsDim, nil)
	row.SetRow(0, mat.Col(nil, 0, obs))

	actions, err := m.GetActions(row)
	if err != nil {
		return nil, fmt.Errorf("getAction: %v", err)
	}
	return mat.VecDenseCopyOf(actions.RowView(0)), nil
}

// GetActions returns the actions taken in a batch of observations, one
// observation per row. Observations are processed in chunks of the
// compiled batch size.
func (m *MeanMLP) GetActions(obs mat.Matrix) (*mat.Dense, error) {
	r, c := obs.Dims()
	if c != m.obsDim {
		return nil, fmt.Errorf("getActions: invalid observation dimension"+
			"\n\twant(%v)\n\thave(%v)", m.obsDim, c)
	}
	if r == 0 {
		return nil, fmt.Errorf("getActions: no observations")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	batch := m.net.BatchSize()
	actions := mat.NewDense(r, m.actDim, nil)
	for start := 0; start < r; start += batch {
		n := min(batch, r-start)

		// The final chunk is padded with zero observations
		input := make([]float64, batch*m.obsDim)
		for i := 0; i < n; i++ {
			for j := 0; j < m.obsDim; j++ {
				input[i*m.obsDim+j] = obs.At(start+i, j)
			}
		}

		if err := m.net.SetInput(input); err != nil {
			return nil, fmt.Errorf("getActions: %v", err)
		}
		if err := m.vm.RunAll(); err != nil {
			m.vm.Reset()
			return nil, fmt.Errorf("getActions: could not compute "+
				"actions: %v", err)
		}

		out := m.net.Output().Data().([]float64)
		for i := 0; i < n; i++ {
			actions.SetRow(start+i, out[i*m.actDim:(i+1)*m.actDim])
		}
		m.vm.Reset()
	}

	return actions, nil
}

// GetActionSym returns a node that computes the actions of the policy
// in the observations of input, sharing the parameters of the policy.
// The input node must be a matrix in the policy's graph with
// ObservationDim() columns. If deterministic is false, batch
// normalization layers use the statistics of the input batch.
//
// Nodes added to the policy's graph are not run by the policy itself;
// a separate VM must be compiled to evaluate them.
func (m *MeanMLP) GetActionSym(input *G.Node,
	deterministic bool) (*G.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions, err := m.net.Fwd(input, deterministic)
	if err != nil {
		return nil, fmt.Errorf("getActionSym: %v", err)
	}
	return actions, nil
}

// ParamValues returns the values of all parameters of the policy,
// flattened and concatenated in the order of Params
func (m *MeanMLP) ParamValues() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var values []float64
	for _, p := range m.net.Params() {
		values = append(values, p.Value().Data().([]float64)...)
	}
	return values
}

// SetParamValues sets the values of all parameters of the policy from
// a vector laid out as returned by ParamValues
func (m *MeanMLP) SetParamValues(values []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	params := m.net.Params()
	total := 0
	for _, p := range params {
		total += p.Shape().TotalSize()
	}
	if len(values) != total {
		return fmt.Errorf("setParamValues: invalid number of values"+
			"\n\twant(%v)\n\thave(%v)", total, len(values))
	}

	offset := 0
	for _, p := range params {
		size := p.Shape().TotalSize()
		backing := append([]float64(nil), values[offset:offset+size]...)
		value := tensor.New(
			tensor.WithShape(p.Shape().Clone()...),
			tensor.WithBacking(backing),
		)
		if err := G.Let(p, value); err != nil {
			return fmt.Errorf("setParamValues: %v: %v", p.Name(), err)
		}
		offset += size
	}
	return nil
}

// Set sets the parameters of the policy to those of another policy
// with the same architecture
func (m *MeanMLP) Set(other *MeanMLP) error {
	if m == other {
		return nil
	}
	other.mu.Lock()
	defer other.mu.Unlock()

	return m.setNet(other.net)
}

// setNet sets the parameters of the policy to those of net
func (m *MeanMLP) setNet(net network.NeuralNet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.net.Set(net); err != nil {
		return fmt.Errorf("set: %v", err)
	}
	return nil
}

// Clone returns a copy of the policy
func (m *MeanMLP) Clone() (*MeanMLP, error) {
	return m.CloneWithBatch(m.config.Batch)
}

// CloneWithBatch returns a copy of the policy which processes batch
// observations at a time
func (m *MeanMLP) CloneWithBatch(batch int) (*MeanMLP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	net, err := m.net.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}

	config := m.config
	config.Batch = batch
	return &MeanMLP{
		config: config,
		obsDim: m.obsDim,
		actDim: m.actDim,
		net:    net,
		vm:     G.NewTapeMachine(net.Graph()),
	}, nil
}

// Close releases the VM of the policy
func (m *MeanMLP) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vm.Close()
}

// snapshot is the gob encoded form of a MeanMLP
type snapshot struct {
	Config Config
	ObsDim int
	ActDim int
	Params []float64
}

// GobEncode implements the gob.GobEncoder interface
func (m *MeanMLP) GobEncode() ([]byte, error) {
	s := snapshot{
		Config: m.config,
		ObsDim: m.obsDim,
		ActDim: m.actDim,
		Params: m.ParamValues(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("gobEncode: could not encode policy: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *MeanMLP) GobDecode(in []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&s); err != nil {
		return fmt.Errorf("gobDecode: could not decode policy: %v", err)
	}

	decoded, err := newMeanMLP(s.ObsDim, s.ActDim, s.Config)
	if err != nil {
		return fmt.Errorf("gobDecode: could not construct policy: %v", err)
	}
	if err := decoded.SetParamValues(s.Params); err != nil {
		decoded.Close()
		return fmt.Errorf("gobDecode: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vm != nil {
		m.vm.Close()
	}
	m.config = decoded.config
	m.obsDim = decoded.obsDim
	m.actDim = decoded.actDim
	m.net = decoded.net
	m.vm = decoded.vm
	return nil
}
