// Package experiment launches parameter sweeps of training jobs
// locally, in docker containers, or on EC2 spot instances, and records
// the jobs it launches.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/asyncrl/agent"
	_ "github.com/samuelfneumann/asyncrl/agent/a3c"
	_ "github.com/samuelfneumann/asyncrl/agent/dqn"
	"github.com/samuelfneumann/asyncrl/bonus"
	"github.com/samuelfneumann/asyncrl/environment/envconfig"
	"github.com/samuelfneumann/asyncrl/experiment/ledger"
	"github.com/samuelfneumann/asyncrl/utils/progressbar"
)

// ErrNameTooLong is returned when an experiment name is too long to
// be used as an EC2 resource tag
var ErrNameTooLong = errors.New("experiment name too long")

// MaxEC2NameLength is the longest experiment name allowed on ec2
const MaxEC2NameLength = 64

const (
	testEvalFrequency = 200
	testEvalNRuns     = 1
)

// Sweep launches one job per point of a Grid
type Sweep struct {
	Grid Grid

	// GridPath is the file the Grid was loaded from. After a remote,
	// non-test sweep it is made read-only so that the launched
	// configuration is not edited by accident.
	GridPath string

	Settings Settings

	// Launcher starts each job
	Launcher Launcher

	// Ledger records each launched job if not nil
	Ledger *ledger.Ledger

	Logger zerolog.Logger

	// Progress receives a progress bar if not nil
	Progress io.Writer

	// Now returns the time used in experiment names, time.Now if nil
	Now func() time.Time
}

// Run launches the jobs of the sweep in Grid order and returns the
// launched jobs. In a test mode, only the first job is launched.
//
// On ec2, a sweep stops with ErrNameTooLong before launching a job
// whose name has more than MaxEC2NameLength characters.
func (s *Sweep) Run(ctx context.Context) ([]Job, error) {
	mode, err := ParseMode(s.Settings.Mode)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	if err := s.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	if s.Launcher == nil {
		return nil, fmt.Errorf("run: no launcher")
	}

	nProcesses := s.Grid.NProcesses
	evalFrequency, evalNRuns := s.Grid.EvalFrequency, s.Grid.EvalNRuns
	if mode.Test {
		evalFrequency, evalNRuns = testEvalFrequency, testEvalNRuns
	}

	var aws *AWSConfig
	if mode.Kind == EC2 {
		config, vCPU, err := ConfigureEC2(s.Settings.Instance,
			s.Settings.Subnet, s.Settings.Subnets)
		if err != nil {
			return nil, fmt.Errorf("run: %v", err)
		}
		aws = &config
		nProcesses = vCPU
	}

	expPrefix := s.expPrefix()
	now := s.Now
	if now == nil {
		now = time.Now
	}

	var bar *progressbar.ManualProgressBar
	if s.Progress != nil {
		bar = progressbar.NewManualProgressBar(s.Progress, 40, s.Grid.Len())
		defer bar.Close()
	}

	s.Logger.Info().
		Str("mode", mode.String()).
		Str("exp_prefix", expPrefix).
		Int("jobs", s.Grid.Len()).
		Int("n_processes", nProcesses).
		Msg("starting sweep")

	var jobs []Job
	for i := 0; i < s.Grid.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return jobs, fmt.Errorf("run: %v", err)
		}

		point, err := s.Grid.At(i)
		if err != nil {
			return jobs, fmt.Errorf("run: %v", err)
		}

		job, err := s.job(point, mode, nProcesses, evalFrequency, evalNRuns)
		if err != nil {
			return jobs, fmt.Errorf("run: job %v: %w", i, err)
		}
		job.AWS = aws
		job.ExpPrefix = expPrefix
		job.Created = now()
		job.Name = fmt.Sprintf("%v_%v_%v_%v", s.Grid.NamePrefix,
			job.Created.Format("20060102_150405"), point.AgentType, point.Game)
		job.LogDir = filepath.Join(s.Settings.LogDir, expPrefix, job.Name,
			job.ID.String())

		if mode.Contains(string(EC2)) && len(job.Name) > MaxEC2NameLength {
			s.Logger.Error().
				Str("exp_name", job.Name).
				Int("length", len(job.Name)).
				Msg("experiment name too long, exiting")
			return jobs, fmt.Errorf("run: %w: %q has length %v > %v",
				ErrNameTooLong, job.Name, len(job.Name), MaxEC2NameLength)
		}

		if _, err := job.Write(); err != nil {
			return jobs, fmt.Errorf("run: %v", err)
		}
		if err := s.Launcher.Launch(ctx, job); err != nil {
			return jobs, fmt.Errorf("run: %v", err)
		}
		jobs = append(jobs, job)

		if s.Ledger != nil {
			if err := s.Ledger.Record(entry(job, mode, point)); err != nil {
				return jobs, fmt.Errorf("run: %v", err)
			}
		}

		s.Logger.Info().
			Str("id", job.ID.String()).
			Str("exp_name", job.Name).
			Int("repetition", point.Repetition).
			Str("game", point.Game).
			Str("agent", string(point.AgentType)).
			Float64("bonus_coeff", point.BonusCoeff).
			Msg("launched job")

		if bar != nil {
			bar.Increment()
			bar.Display()
		}

		if mode.Test {
			s.Logger.Info().Msg("test mode, stopping after the first job")
			return jobs, nil
		}
	}

	if !mode.IsLocal() && !mode.Test && s.GridPath != "" {
		if err := os.Chmod(s.GridPath, 0o444); err != nil {
			return jobs, fmt.Errorf("run: could not protect grid file: %v",
				err)
		}
		s.Logger.Info().Str("grid", s.GridPath).Msg("grid file made read-only")
	}

	return jobs, nil
}

// job builds the configuration of the job at point p
func (s *Sweep) job(p Point, mode Mode, nProcesses, evalFrequency,
	evalNRuns int) (Job, error) {
	g := s.Grid

	env := envconfig.Config{ROMDir: g.ROMDir, Game: p.Game, Plot: g.Plot}
	if err := env.Validate(); err != nil {
		return Job{}, err
	}

	itemDim := g.Image.OutputDim()
	evaluator := bonus.EvaluatorConfig{
		StateDim:     itemDim,
		Preprocessor: g.Image,
		Hash: bonus.HashConfig{
			ItemDim: itemDim,
			DimKey:  g.DimKey,
			Seed:    uint64(p.Repetition),
		},
		BonusCoeff:     p.BonusCoeff,
		StateBonusMode: g.StateBonusMode,
		LogPrefix:      g.LogPrefix,
		LockedStats:    g.LockedStats,
	}

	agentConfig, err := agent.NewConfig(p.AgentType, env.NumberOfActions(),
		evaluator)
	if err != nil {
		return Job{}, err
	}
	if err := agentConfig.Validate(); err != nil {
		return Job{}, err
	}

	algo := agent.AlgoConfig{
		Type:          p.AgentType,
		NProcesses:    nProcesses,
		LoggingLevel:  g.LoggingLevel,
		EvalFrequency: evalFrequency,
		EvalNRuns:     evalNRuns,
		Seeds:         g.Seeds,
	}
	if err := algo.Validate(); err != nil {
		return Job{}, err
	}

	return Job{
		ID:               uuid.New(),
		SnapshotMode:     g.SnapshotMode,
		Mode:             mode.Kind,
		SyncS3Pkl:        true,
		TerminateMachine: !mode.Test,
		Repetition:       p.Repetition,
		BonusCoeff:       p.BonusCoeff,
		Env:              env,
		Agent:            agent.NewTypedConfig(agentConfig),
		Algo:             algo,
	}, nil
}

// expPrefix returns the experiment prefix of the sweep
func (s *Sweep) expPrefix() string {
	if s.Grid.ExpPrefix != "" {
		return s.Grid.ExpPrefix
	}
	if s.GridPath == "" {
		return "async-rl/sweep"
	}
	base := filepath.Base(s.GridPath)
	return "async-rl/" + strings.TrimSuffix(base, filepath.Ext(base))
}

// entry returns the ledger entry of a launched job
func entry(job Job, mode Mode, p Point) ledger.Entry {
	return ledger.Entry{
		ID:         job.ID.String(),
		ExpPrefix:  job.ExpPrefix,
		Name:       job.Name,
		Mode:       mode.Name,
		Game:       p.Game,
		AgentType:  string(p.AgentType),
		BonusCoeff: p.BonusCoeff,
		Repetition: p.Repetition,
		LogDir:     job.LogDir,
		Launched:   job.Created,
	}
}
