package checkpointer

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a Serializable integer
type counter struct {
	n int
}

func (c *counter) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(c.n)
	return buf.Bytes(), err
}

func (c *counter) GobDecode(in []byte) error {
	return gob.NewDecoder(bytes.NewReader(in)).Decode(&c.n)
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestParseSnapshotMode(t *testing.T) {
	for _, s := range []string{"last", "all", "gap", "none", " Last "} {
		_, err := ParseSnapshotMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseSnapshotMode("every")
	assert.ErrorIs(t, err, ErrUnknownSnapshotMode)

	var mode SnapshotMode
	require.NoError(t, mode.UnmarshalText([]byte("gap")))
	assert.Equal(t, Gap, mode)
}

func TestLast(t *testing.T) {
	dir := t.TempDir()
	c := &counter{}
	cp, err := New(Last, dir, c, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.n = i * 10
		require.NoError(t, cp.Checkpoint(i))
	}
	assert.Equal(t, []string{LastFilename}, files(t, dir))

	var loaded counter
	require.NoError(t, Load(filepath.Join(dir, LastFilename), &loaded))
	assert.Equal(t, 20, loaded.n)
}

func TestAllAndGap(t *testing.T) {
	allDir, gapDir := t.TempDir(), t.TempDir()
	c := &counter{n: 1}

	all, err := New(All, allDir, c, 0)
	require.NoError(t, err)
	gap, err := New(Gap, gapDir, c, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, all.Checkpoint(i))
		require.NoError(t, gap.Checkpoint(i))
	}
	assert.ElementsMatch(t, []string{"itr_0.gob", "itr_1.gob", "itr_2.gob",
		"itr_3.gob", "itr_4.gob"}, files(t, allDir))
	assert.ElementsMatch(t, []string{"itr_0.gob", "itr_2.gob", "itr_4.gob"},
		files(t, gapDir))

	_, err = New(Gap, gapDir, c, 0)
	assert.Error(t, err)
}

func TestNone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	cp, err := New(None, dir, &counter{}, 0)
	require.NoError(t, err)
	require.NoError(t, cp.Checkpoint(0))
	assert.Empty(t, files(t, dir))

	_, err = New("sometimes", dir, &counter{}, 0)
	assert.ErrorIs(t, err, ErrUnknownSnapshotMode)
}

func TestLoadMissing(t *testing.T) {
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.gob"),
		&counter{}))
}
