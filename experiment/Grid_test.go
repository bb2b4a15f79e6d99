package experiment

import (
	"strings"
	"testing"

	"github.com/samuelfneumann/asyncrl/agent"
	"github.com/samuelfneumann/asyncrl/bonus"
	"github.com/samuelfneumann/asyncrl/experiment/checkpointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()
	require.NoError(t, g.Validate())
	assert.Equal(t, 3*3*2*2, g.Len())
}

func TestGridAt(t *testing.T) {
	g := DefaultGrid()

	first, err := g.At(0)
	require.NoError(t, err)
	assert.Equal(t, Point{0, "montezuma_revenge", agent.A3C, 0.05}, first)

	second, err := g.At(1)
	require.NoError(t, err)
	assert.Equal(t, Point{0, "montezuma_revenge", agent.A3C, 0}, second)

	third, err := g.At(2)
	require.NoError(t, err)
	assert.Equal(t, Point{0, "montezuma_revenge", agent.DQN, 0.05}, third)

	fifth, err := g.At(4)
	require.NoError(t, err)
	assert.Equal(t, Point{0, "frostbite", agent.A3C, 0.05}, fifth)

	last, err := g.At(g.Len() - 1)
	require.NoError(t, err)
	assert.Equal(t, Point{2, "venture", agent.DQN, 0}, last)

	_, err = g.At(g.Len())
	assert.Error(t, err)
	_, err = g.At(-1)
	assert.Error(t, err)
}

func TestGridPointsDistinct(t *testing.T) {
	g := DefaultGrid()
	seen := map[Point]bool{}
	for i := 0; i < g.Len(); i++ {
		p, err := g.At(i)
		require.NoError(t, err)
		assert.False(t, seen[p], "duplicate point %v", p)
		seen[p] = true
	}
	assert.Len(t, seen, g.Len())
}

func TestLoadGrid(t *testing.T) {
	doc := `
repetitions: 1
games: [pong]
agent_types: [dqn]
bonus_coeffs: [0.01]
state_bonus_mode: 1/n_s
snapshot_mode: gap
image:
  n_channel: 1
  width: 4
  height: 4
`
	g, err := LoadGrid(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, []string{"pong"}, g.Games)
	assert.Equal(t, bonus.InverseCount, g.StateBonusMode)
	assert.Equal(t, checkpointer.Gap, g.SnapshotMode)
	assert.Equal(t, 16, g.Image.OutputDim())

	// Unset fields keep their defaults
	assert.Equal(t, DefaultGrid().ROMDir, g.ROMDir)
	assert.Equal(t, 64, g.DimKey)
	assert.Equal(t, "alex", g.NamePrefix)

	g, err = LoadGrid(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid(), g)
}

func TestLoadGridErrors(t *testing.T) {
	for _, doc := range []string{
		"unknown_field: 1",
		"repetitions: 0",
		"agent_types: [ppo]",
		"bonus_coeffs: [-1]",
		"games: []",
		"snapshot_mode: sometimes",
		"repetitions: [",
	} {
		_, err := LoadGrid(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}
