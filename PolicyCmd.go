package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samuelfneumann/asyncrl/agent/nonlinear/continuous/policy"
	"github.com/samuelfneumann/asyncrl/environment"
	"github.com/samuelfneumann/asyncrl/experiment/checkpointer"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var policyOpts = struct {
	config    policy.Config
	obsDim    int
	actionDim int
	snapshot  string
	save      string
}{config: policy.DefaultConfig()}

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Compute the actions of a deterministic mean MLP policy",
		Long: `Compute the actions of a deterministic mean MLP policy.

Observations are read from stdin as comma separated rows, and one
comma separated action is printed per observation. The policy is
either loaded from a gob snapshot given by --snapshot, or built
from the architecture flags with freshly initialized weights.`,
		Args: cobra.NoArgs,
		RunE: runPolicy,
	}

	c := &policyOpts.config
	flags := cmd.Flags()
	flags.IntSliceVar(&c.HiddenSizes, "hidden-sizes", c.HiddenSizes,
		"Units of each hidden layer")

	// Initializer expressions contain commas and so cannot be split
	flags.StringArrayVar(&c.HiddenNL, "hidden-nonlinearity", c.HiddenNL,
		"Nonlinearity of each hidden layer, or one for all layers")
	flags.StringArrayVar(&c.HiddenWInit, "hidden-w-init", c.HiddenWInit,
		"Weight initializer of each hidden layer, or one for all layers")
	flags.StringArrayVar(&c.HiddenBInit, "hidden-b-init", c.HiddenBInit,
		"Bias initializer of each hidden layer, or one for all layers")

	flags.StringVar(&c.OutputNL, "output-nonlinearity", c.OutputNL,
		"Nonlinearity of the output layer")
	flags.StringVar(&c.OutputWInit, "output-w-init", c.OutputWInit,
		"Weight initializer of the output layer")
	flags.StringVar(&c.OutputBInit, "output-b-init", c.OutputBInit,
		"Bias initializer of the output layer")
	flags.BoolVar(&c.BatchNorm, "bn", c.BatchNorm,
		"Batch normalize the input and every layer")
	flags.IntVar(&c.Batch, "batch", c.Batch,
		"Observations processed per forward pass")

	flags.IntVar(&policyOpts.obsDim, "obs-dim", 0, "Observation dimension")
	flags.IntVar(&policyOpts.actionDim, "action-dim", 0, "Action dimension")
	flags.StringVar(&policyOpts.snapshot, "snapshot", "",
		"Policy snapshot to load instead of building a new policy")
	flags.StringVar(&policyOpts.save, "save", "",
		"Save the policy as a snapshot at this path")

	return cmd
}

// loadPolicy returns the policy described by the policy flags
func loadPolicy() (*policy.MeanMLP, error) {
	if policyOpts.snapshot != "" {
		p := &policy.MeanMLP{}
		if err := checkpointer.Load(policyOpts.snapshot, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	obs, err := environment.NewBoxSpec(environment.Observation,
		policyOpts.obsDim, -1, 1)
	if err != nil {
		return nil, fmt.Errorf("observation spec: %v", err)
	}
	act, err := environment.NewBoxSpec(environment.Action,
		policyOpts.actionDim, -1, 1)
	if err != nil {
		return nil, fmt.Errorf("action spec: %v", err)
	}
	mdp, err := environment.NewMDP(obs, act)
	if err != nil {
		return nil, err
	}

	return policy.New(mdp, policyOpts.config)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	p, err := loadPolicy()
	if err != nil {
		return err
	}
	defer p.Close()

	logger.Debug().
		Int("obs_dim", p.ObservationDim()).
		Int("action_dim", p.ActionDim()).
		Ints("hidden_sizes", p.Config().HiddenSizes).
		Bool("bn", p.Config().BatchNorm).
		Msg("policy ready")

	if policyOpts.save != "" {
		if err := checkpointer.Save(policyOpts.save, p); err != nil {
			return err
		}
		logger.Info().Str("path", policyOpts.save).Msg("policy saved")
	}

	obs, err := readObservations(cmd.InOrStdin(), p.ObservationDim())
	if err != nil {
		return err
	}
	if obs == nil {
		return nil
	}

	actions, err := p.GetActions(obs)
	if err != nil {
		return err
	}
	return writeActions(cmd.OutOrStdout(), actions)
}

// readObservations reads comma separated observations of dimension dim
// from r. A nil matrix is returned if r holds no observations.
func readObservations(r io.Reader, dim int) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = dim
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read observations: %v", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	data := make([]float64, 0, len(records)*dim)
	for i, record := range records {
		for _, field := range record {
			x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("observation %v: %v", i, err)
			}
			data = append(data, x)
		}
	}
	return mat.NewDense(len(records), dim, data), nil
}

// writeActions writes one comma separated row per action
func writeActions(w io.Writer, actions mat.Matrix) error {
	rows, cols := actions.Dims()
	writer := csv.NewWriter(w)
	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(actions.At(i, j), 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
