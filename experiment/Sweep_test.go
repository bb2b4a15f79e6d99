package experiment

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/agent/dqn"
	"github.com/samuelfneumann/asyncrl/experiment/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	jobs []Job
}

func (f *fakeLauncher) Launch(_ context.Context, job Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func testSweep(t *testing.T, mode string) (*Sweep, *fakeLauncher) {
	dir := t.TempDir()

	gridPath := filepath.Join(dir, "hash_sweep.yaml")
	require.NoError(t, os.WriteFile(gridPath, []byte("repetitions: 1\n"),
		0o644))

	g := DefaultGrid()
	g.Repetitions = 2
	g.Games = []string{"pong", "frostbite"}

	s := DefaultSettings()
	s.Mode = mode
	s.LogDir = filepath.Join(dir, "data")
	s.Subnets = map[string]SubnetInfo{
		"us-west-1a": {SubnetID: "subnet-a", Groups: []string{"sg-a"}},
	}

	l := &fakeLauncher{}
	return &Sweep{
		Grid:     g,
		GridPath: gridPath,
		Settings: s,
		Launcher: l,
		Logger:   zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)
		},
	}, l
}

func TestSweepLocal(t *testing.T) {
	s, l := testSweep(t, "local")
	var progress bytes.Buffer
	s.Progress = &progress

	jobs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, s.Grid.Len())
	assert.Equal(t, jobs, l.jobs)
	assert.Contains(t, progress.String(), "100")

	first := jobs[0]
	assert.Equal(t, "alex_20261017_123000_a3c_pong", first.Name)
	assert.Equal(t, "async-rl/hash_sweep", first.ExpPrefix)
	assert.Equal(t, Local, first.Mode)
	assert.True(t, first.TerminateMachine)
	assert.Nil(t, first.AWS)
	assert.Equal(t, s.Grid.NProcesses, first.Algo.NProcesses)
	assert.Equal(t, s.Grid.EvalFrequency, first.Algo.EvalFrequency)
	assert.Equal(t, 6, first.Env.NumberOfActions())
	assert.Equal(t, filepath.Join(s.Settings.LogDir, first.ExpPrefix,
		first.Name, first.ID.String()), first.LogDir)

	// Every job is written and has its own directory
	dirs := map[string]bool{}
	for _, job := range jobs {
		read, err := ReadJob(job.ParamsPath())
		require.NoError(t, err)
		assert.Equal(t, job.ID, read.ID)
		dirs[job.LogDir] = true
	}
	assert.Len(t, dirs, len(jobs))

	// The hash seed follows the repetition
	last := jobs[len(jobs)-1]
	assert.Equal(t, 1, last.Repetition)
	dqnConfig, ok := last.Agent.Config.(dqn.Config)
	require.True(t, ok)
	assert.Equal(t, uint64(1), dqnConfig.Bonus.Hash.Seed)
	assert.Equal(t, 0.0, dqnConfig.Bonus.BonusCoeff)
	assert.Equal(t, agent.DQN, last.Algo.Type)

	// Local grids stay writable
	info, err := os.Stat(s.GridPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSweepTestMode(t *testing.T) {
	s, l := testSweep(t, "local_test")

	jobs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Len(t, l.jobs, 1)
	assert.False(t, jobs[0].TerminateMachine)
	assert.Equal(t, testEvalFrequency, jobs[0].Algo.EvalFrequency)
	assert.Equal(t, testEvalNRuns, jobs[0].Algo.EvalNRuns)
}

func TestSweepEC2(t *testing.T) {
	s, l := testSweep(t, "ec2")

	jobs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, l.jobs, s.Grid.Len())

	for _, job := range jobs {
		require.NotNil(t, job.AWS)
		assert.Equal(t, "c4.8xlarge", job.AWS.InstanceType)
		assert.Equal(t, 36, job.Algo.NProcesses)
		assert.Equal(t, EC2, job.Mode)
	}

	info, err := os.Stat(s.GridPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}

func TestSweepEC2TestModeKeepsGridWritable(t *testing.T) {
	s, _ := testSweep(t, "ec2_test")

	jobs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	info, err := os.Stat(s.GridPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSweepNameTooLong(t *testing.T) {
	s, l := testSweep(t, "ec2")
	s.Grid.NamePrefix = strings.Repeat("x", MaxEC2NameLength)

	jobs, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrNameTooLong)
	assert.Empty(t, jobs)
	assert.Empty(t, l.jobs)

	// Long names are fine off ec2
	s, l = testSweep(t, "local")
	s.Grid.NamePrefix = strings.Repeat("x", MaxEC2NameLength)
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, l.jobs, s.Grid.Len())
}

func TestSweepNameLengthBoundary(t *testing.T) {
	// Every name is <prefix>_20261017_123000_a3c_pong
	const suffix = len("_20261017_123000_a3c_pong")

	s, l := testSweep(t, "ec2")
	s.Grid.Games = []string{"pong"}
	s.Grid.AgentTypes = []agent.Type{agent.A3C}
	s.Grid.NamePrefix = strings.Repeat("x", MaxEC2NameLength-suffix)

	jobs, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	assert.Len(t, jobs[0].Name, MaxEC2NameLength)
	assert.Len(t, l.jobs, s.Grid.Len())

	s, l = testSweep(t, "ec2")
	s.Grid.Games = []string{"pong"}
	s.Grid.AgentTypes = []agent.Type{agent.A3C}
	s.Grid.NamePrefix = strings.Repeat("x", MaxEC2NameLength-suffix+1)

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrNameTooLong)
	assert.Empty(t, l.jobs)
}

func TestSweepLedger(t *testing.T) {
	s, _ := testSweep(t, "local")
	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer led.Close()
	s.Ledger = led

	jobs, err := s.Run(context.Background())
	require.NoError(t, err)

	entries, err := led.List()
	require.NoError(t, err)
	require.Len(t, entries, len(jobs))
	for i, e := range entries {
		assert.Equal(t, jobs[i].ID.String(), e.ID)
		assert.Equal(t, "local", e.Mode)
		assert.Equal(t, jobs[i].LogDir, e.LogDir)
	}
}

func TestSweepErrors(t *testing.T) {
	s, _ := testSweep(t, "gce")
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrUnknownMode)

	s, _ = testSweep(t, "ec2")
	s.Settings.Subnets = nil
	_, err = s.Run(context.Background())
	assert.Error(t, err)

	s, _ = testSweep(t, "local")
	s.Launcher = nil
	_, err = s.Run(context.Background())
	assert.Error(t, err)

	s, l := testSweep(t, "local")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	assert.Error(t, err)
	assert.Empty(t, l.jobs)
}
