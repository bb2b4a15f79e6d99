package experiment

import (
	"fmt"
	"io"
	"os"

	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/bonus"
	"github.com/samuelfneumann/asyncrl/experiment/checkpointer"
	"github.com/samuelfneumann/asyncrl/preprocessor"
	"gopkg.in/yaml.v3"
)

// Grid is a parameter sweep. Each combination of a repetition, a game,
// an agent type, and a bonus coefficient is one job; all other fields
// are shared by every job.
type Grid struct {
	Repetitions int          `yaml:"repetitions"`
	Games       []string     `yaml:"games"`
	AgentTypes  []agent.Type `yaml:"agent_types"`
	BonusCoeffs []float64    `yaml:"bonus_coeffs"`

	ROMDir string `yaml:"rom_dir"`
	Plot   bool   `yaml:"plot"`

	// NProcesses is replaced by the number of vCPUs on ec2
	NProcesses    int      `yaml:"n_processes"`
	EvalFrequency int      `yaml:"eval_frequency"`
	EvalNRuns     int      `yaml:"eval_n_runs"`
	Seeds         []uint64 `yaml:"seeds"`
	LoggingLevel  string   `yaml:"logging_level"`

	DimKey         int                         `yaml:"dim_key"`
	Image          preprocessor.ImageVectorize `yaml:"image"`
	StateBonusMode bonus.StateBonusMode        `yaml:"state_bonus_mode"`
	LogPrefix      string                      `yaml:"log_prefix"`
	LockedStats    bool                        `yaml:"locked_stats"`

	SnapshotMode checkpointer.SnapshotMode `yaml:"snapshot_mode"`

	// ExpPrefix groups the jobs of the sweep. If empty, it is derived
	// from the name of the grid file.
	ExpPrefix  string `yaml:"exp_prefix"`
	NamePrefix string `yaml:"name_prefix"`
}

// Point is a single combination of swept values
type Point struct {
	Repetition int
	Game       string
	AgentType  agent.Type
	BonusCoeff float64
}

// DefaultGrid returns the hashing bonus sweep over three hard
// exploration games
func DefaultGrid() Grid {
	return Grid{
		Repetitions: 3,
		Games:       []string{"montezuma_revenge", "frostbite", "venture"},
		AgentTypes:  []agent.Type{agent.A3C, agent.DQN},
		BonusCoeffs: []float64{0.05, 0},

		ROMDir: "ale_python_interface/roms",
		Plot:   false,

		NProcesses:    2,
		EvalFrequency: 100000,
		EvalNRuns:     10,
		Seeds:         nil,
		LoggingLevel:  "info",

		DimKey:         64,
		Image:          preprocessor.ImageVectorize{NChannel: 4, Width: 84, Height: 84},
		StateBonusMode: bonus.InverseSqrtCount,
		LogPrefix:      "",
		LockedStats:    false,

		SnapshotMode: checkpointer.Last,
		NamePrefix:   "alex",
	}
}

// LoadGrid decodes a YAML Grid from r. Fields missing from the
// document keep their values from DefaultGrid.
func LoadGrid(r io.Reader) (Grid, error) {
	g := DefaultGrid()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil && err != io.EOF {
		return Grid{}, fmt.Errorf("loadGrid: %v", err)
	}
	if err := g.Validate(); err != nil {
		return Grid{}, fmt.Errorf("loadGrid: %v", err)
	}
	return g, nil
}

// LoadGridFile decodes a YAML Grid from the file at path
func LoadGridFile(path string) (Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return Grid{}, fmt.Errorf("loadGridFile: %v", err)
	}
	defer f.Close()
	return LoadGrid(f)
}

// Validate checks that every point of the Grid can be launched
func (g Grid) Validate() error {
	if g.Repetitions <= 0 {
		return fmt.Errorf("validate: repetitions must be positive"+
			"\n\thave(%v)", g.Repetitions)
	}
	if len(g.Games) == 0 || len(g.AgentTypes) == 0 ||
		len(g.BonusCoeffs) == 0 {
		return fmt.Errorf("validate: games, agent types, and bonus " +
			"coefficients must not be empty")
	}
	for _, t := range g.AgentTypes {
		if _, err := agent.Lookup(t); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	for _, c := range g.BonusCoeffs {
		if c < 0 {
			return fmt.Errorf("validate: bonus coefficients must be "+
				"non-negative\n\thave(%v)", g.BonusCoeffs)
		}
	}
	if g.ROMDir == "" {
		return fmt.Errorf("validate: no ROM directory")
	}
	if g.NProcesses <= 0 || g.EvalFrequency <= 0 || g.EvalNRuns <= 0 {
		return fmt.Errorf("validate: processes, evaluation frequency, and "+
			"evaluation runs must be positive\n\thave(%v, %v, %v)",
			g.NProcesses, g.EvalFrequency, g.EvalNRuns)
	}
	if err := g.Image.Validate(); err != nil {
		return fmt.Errorf("validate: image: %v", err)
	}
	if _, err := checkpointer.ParseSnapshotMode(
		string(g.SnapshotMode)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if g.NamePrefix == "" {
		return fmt.Errorf("validate: no name prefix")
	}
	return nil
}

// Len returns the number of points in the Grid
func (g Grid) Len() int {
	return g.Repetitions * len(g.Games) * len(g.AgentTypes) *
		len(g.BonusCoeffs)
}

// At returns point i of the Grid. Points are ordered as nested loops
// over repetitions, games, agent types, and bonus coefficients, with
// the bonus coefficient varying fastest.
func (g Grid) At(i int) (Point, error) {
	if i < 0 || i >= g.Len() {
		return Point{}, fmt.Errorf("at: index out of range [%v] with "+
			"length %v", i, g.Len())
	}

	coeff := i % len(g.BonusCoeffs)
	i /= len(g.BonusCoeffs)
	agentType := i % len(g.AgentTypes)
	i /= len(g.AgentTypes)
	game := i % len(g.Games)
	i /= len(g.Games)

	return Point{
		Repetition: i,
		Game:       g.Games[game],
		AgentType:  g.AgentTypes[agentType],
		BonusCoeff: g.BonusCoeffs[coeff],
	}, nil
}
