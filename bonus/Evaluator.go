package bonus

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/asyncrl/preprocessor"
	sync "github.com/sasha-s/go-deadlock"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StateBonusMode determines how the bonus decays with the visit count
// n_s of a state
type StateBonusMode string

const (
	InverseSqrtCount StateBonusMode = "1/sqrt(n_s)"
	InverseCount     StateBonusMode = "1/n_s"
)

// EvaluatorConfig describes a hashing bonus evaluator
type EvaluatorConfig struct {
	StateDim       int                         `json:"state_dim" yaml:"state_dim"`
	Preprocessor   preprocessor.ImageVectorize `json:"state_preprocessor" yaml:"state_preprocessor"`
	Hash           HashConfig                  `json:"hash" yaml:"hash"`
	BonusCoeff     float64                     `json:"bonus_coeff" yaml:"bonus_coeff"`
	StateBonusMode StateBonusMode              `json:"state_bonus_mode" yaml:"state_bonus_mode"`
	LogPrefix      string                      `json:"log_prefix" yaml:"log_prefix"`
	LockedStats    bool                        `json:"locked_stats" yaml:"locked_stats"`
}

// Validate checks that the state, preprocessor, and hash dimensions
// agree and that the bonus is well defined
func (c EvaluatorConfig) Validate() error {
	if err := c.Preprocessor.Validate(); err != nil {
		return fmt.Errorf("validate: preprocessor: %v", err)
	}
	if err := c.Hash.Validate(); err != nil {
		return fmt.Errorf("validate: hash: %v", err)
	}

	if out := c.Preprocessor.OutputDim(); c.StateDim != out {
		return fmt.Errorf("validate: state dimension must equal "+
			"preprocessor output dimension\n\twant(%v)\n\thave(%v)", out,
			c.StateDim)
	}
	if c.StateDim != c.Hash.ItemDim {
		return fmt.Errorf("validate: state dimension must equal hash item "+
			"dimension\n\twant(%v)\n\thave(%v)", c.Hash.ItemDim, c.StateDim)
	}

	if c.BonusCoeff < 0 {
		return fmt.Errorf("validate: bonus coefficient must be "+
			"non-negative\n\thave(%v)", c.BonusCoeff)
	}
	switch c.StateBonusMode {
	case InverseSqrtCount, InverseCount:
	default:
		return fmt.Errorf("validate: unknown state bonus mode %q",
			c.StateBonusMode)
	}
	return nil
}

// Evaluator computes count-based exploration bonuses of states
type Evaluator struct {
	config EvaluatorConfig
	hash   *SimHash

	mu         sync.Mutex
	locked     bool
	lastCounts []float64
	lastBonus  []float64
}

// NewEvaluator returns a new Evaluator with no states counted
func NewEvaluator(c EvaluatorConfig) (*Evaluator, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newEvaluator: %v", err)
	}

	hash, err := NewSimHash(c.Hash)
	if err != nil {
		return nil, fmt.Errorf("newEvaluator: %v", err)
	}

	return &Evaluator{
		config: c,
		hash:   hash,
		locked: c.LockedStats,
	}, nil
}

// Config returns the configuration of the Evaluator
func (e *Evaluator) Config() EvaluatorConfig {
	return e.config
}

// UpdateAndBonus counts the states, unless the statistics are locked,
// and then returns the bonus of each state
func (e *Evaluator) UpdateAndBonus(states mat.Matrix) ([]float64, error) {
	items, err := e.config.Preprocessor.Process(states)
	if err != nil {
		return nil, fmt.Errorf("updateAndBonus: %v", err)
	}

	e.mu.Lock()
	locked := e.locked
	e.mu.Unlock()

	if !locked {
		if err := e.hash.Inc(items); err != nil {
			return nil, fmt.Errorf("updateAndBonus: %v", err)
		}
	}

	return e.bonus(items)
}

// Bonus returns the bonus of each state without counting them
func (e *Evaluator) Bonus(states mat.Matrix) ([]float64, error) {
	items, err := e.config.Preprocessor.Process(states)
	if err != nil {
		return nil, fmt.Errorf("bonus: %v", err)
	}
	return e.bonus(items)
}

func (e *Evaluator) bonus(items mat.Matrix) ([]float64, error) {
	counts, err := e.hash.Query(items)
	if err != nil {
		return nil, err
	}

	n := make([]float64, len(counts))
	bonuses := make([]float64, len(counts))
	for i, count := range counts {
		n[i] = float64(count)
		bonuses[i] = e.config.BonusCoeff * e.decay(math.Max(n[i], 1))
	}

	e.mu.Lock()
	e.lastCounts, e.lastBonus = n, bonuses
	e.mu.Unlock()

	return bonuses, nil
}

// decay returns f(n) for the state bonus mode
func (e *Evaluator) decay(n float64) float64 {
	if e.config.StateBonusMode == InverseCount {
		return 1 / n
	}
	return 1 / math.Sqrt(n)
}

// Lock stops states from being counted
func (e *Evaluator) Lock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = true
}

// Unlock resumes counting states
func (e *Evaluator) Unlock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = false
}

// Locked returns whether counting is stopped
func (e *Evaluator) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

// LogDiagnostics logs statistics of the most recently evaluated batch
// of states
func (e *Evaluator) LogDiagnostics(logger zerolog.Logger) {
	e.mu.Lock()
	counts, bonuses := e.lastCounts, e.lastBonus
	e.mu.Unlock()

	p := e.config.LogPrefix
	event := logger.Info().Int(p+"DistinctKeys", e.hash.Distinct())
	if len(counts) > 0 {
		event = event.
			Float64(p+"MinCount", floats.Min(counts)).
			Float64(p+"MaxCount", floats.Max(counts)).
			Float64(p+"AverageCount", stat.Mean(counts, nil)).
			Float64(p+"MinBonus", floats.Min(bonuses)).
			Float64(p+"MaxBonus", floats.Max(bonuses)).
			Float64(p+"AverageBonus", stat.Mean(bonuses, nil))
	}
	event.Msg("bonus diagnostics")
}
