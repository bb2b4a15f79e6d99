package policy

import (
	"fmt"

	"github.com/samuelfneumann/asyncrl/network"
	"github.com/samuelfneumann/asyncrl/solver"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Checkpointer saves the state of training after an epoch
type Checkpointer interface {
	Checkpoint(epoch int) error
}

// Regressor trains a MeanMLP towards target actions by minimizing the
// mean squared error between its actions and the targets.
//
// Training happens on a copy of the policy in a separate graph, whose
// batch normalization layers use batch statistics. After each step,
// the running statistics of the copy are updated and all its parameters
// are copied back into the policy.
type Regressor struct {
	policy *MeanMLP
	train  network.NeuralNet
	solver *solver.Solver
	batch  int

	targets *G.Node
	cost    *G.Node
	costVal G.Value
	vm      G.VM
}

// NewRegressor returns a new Regressor which trains policy using
// batches of batch observations
func NewRegressor(policy *MeanMLP, batch int,
	s *solver.Solver) (*Regressor, error) {
	if s == nil {
		return nil, fmt.Errorf("newRegressor: no solver given")
	}

	policy.mu.Lock()
	train, err := policy.net.CloneWithBatch(batch)
	policy.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("newRegressor: could not clone policy: %v",
			err)
	}

	pred, err := train.Fwd(train.Input(), false)
	if err != nil {
		return nil, fmt.Errorf("newRegressor: could not compute actions: %v",
			err)
	}

	targets := G.NewMatrix(
		train.Graph(),
		tensor.Float64,
		G.WithShape(batch, policy.actDim),
		G.WithName("targets"),
		G.WithInit(G.Zeroes()),
	)

	// Mean squared error
	cost := G.Must(G.Sub(pred, targets))
	cost = G.Must(G.Square(cost))
	cost = G.Must(G.Mean(cost))

	if _, err := G.Grad(cost, train.Learnables()...); err != nil {
		return nil, fmt.Errorf("newRegressor: could not compute "+
			"gradient: %v", err)
	}

	r := &Regressor{
		policy:  policy,
		train:   train,
		solver:  s,
		batch:   batch,
		targets: targets,
		cost:    cost,
	}
	G.Read(r.cost, &r.costVal)
	r.vm = G.NewTapeMachine(train.Graph(),
		G.BindDualValues(train.Learnables()...))

	return r, nil
}

// Network returns the network being trained
func (r *Regressor) Network() network.NeuralNet {
	return r.train
}

// Step performs a single gradient step on a batch of observations and
// target actions and returns the loss before the step
func (r *Regressor) Step(obs, targets mat.Matrix) (float64, error) {
	if rows, cols := obs.Dims(); rows != r.batch ||
		cols != r.policy.obsDim {
		return 0, fmt.Errorf("step: invalid observation shape"+
			"\n\twant(%v×%v)\n\thave(%v×%v)", r.batch, r.policy.obsDim, rows,
			cols)
	}
	if rows, cols := targets.Dims(); rows != r.batch ||
		cols != r.policy.actDim {
		return 0, fmt.Errorf("step: invalid target shape"+
			"\n\twant(%v×%v)\n\thave(%v×%v)", r.batch, r.policy.actDim, rows,
			cols)
	}

	if err := r.train.SetInput(mat.DenseCopyOf(obs).RawMatrix().Data); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	targetTensor := tensor.New(
		tensor.WithShape(r.batch, r.policy.actDim),
		tensor.WithBacking(mat.DenseCopyOf(targets).RawMatrix().Data),
	)
	if err := G.Let(r.targets, targetTensor); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	defer r.vm.Reset()
	if err := r.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: could not run training graph: %v", err)
	}
	loss := r.costVal.Data().(float64)

	if err := r.train.UpdateStatistics(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := r.solver.Step(r.train.Model()); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}

	if err := r.policy.setNet(r.train); err != nil {
		return 0, fmt.Errorf("step: could not update policy: %v", err)
	}
	return loss, nil
}

// Fit trains the policy for a number of epochs, each a pass over all
// complete batches of rows of obs and targets in order. The mean loss
// of each epoch is returned. If checkpointer is not nil, it is called
// at the end of each epoch.
func (r *Regressor) Fit(obs, targets mat.Matrix, epochs int,
	checkpointer Checkpointer) ([]float64, error) {
	rows, _ := obs.Dims()
	if targetRows, _ := targets.Dims(); targetRows != rows {
		return nil, fmt.Errorf("fit: invalid number of targets\n\twant(%v)"+
			"\n\thave(%v)", rows, targetRows)
	}
	batches := rows / r.batch
	if batches == 0 {
		return nil, fmt.Errorf("fit: fewer observations than the batch "+
			"size\n\twant(>= %v)\n\thave(%v)", r.batch, rows)
	}

	denseObs := mat.DenseCopyOf(obs)
	denseTargets := mat.DenseCopyOf(targets)
	_, obsCols := denseObs.Dims()
	_, targetCols := denseTargets.Dims()

	losses := make([]float64, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		var total float64
		for b := 0; b < batches; b++ {
			lo, hi := b*r.batch, (b+1)*r.batch
			loss, err := r.Step(
				denseObs.Slice(lo, hi, 0, obsCols),
				denseTargets.Slice(lo, hi, 0, targetCols),
			)
			if err != nil {
				return losses, fmt.Errorf("fit: epoch %v: %v", epoch, err)
			}
			total += loss
		}
		losses = append(losses, total/float64(batches))

		if checkpointer != nil {
			if err := checkpointer.Checkpoint(epoch); err != nil {
				return losses, fmt.Errorf("fit: could not checkpoint: %v",
					err)
			}
		}
	}
	return losses, nil
}

// Close releases the VM of the Regressor. The policy is not closed.
func (r *Regressor) Close() error {
	return r.vm.Close()
}
