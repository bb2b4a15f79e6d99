package preprocessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestImageVectorize(t *testing.T) {
	p, err := NewImageVectorize(4, 84, 84)
	require.NoError(t, err)
	assert.Equal(t, 28224, p.OutputDim())

	small := ImageVectorize{NChannel: 1, Width: 2, Height: 2}
	states := mat.NewDense(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	out, err := small.Process(states)
	require.NoError(t, err)
	assert.True(t, mat.Equal(states, out))

	// The output does not alias the input
	out.Set(0, 0, -1)
	assert.Equal(t, 1.0, states.At(0, 0))

	_, err = small.Process(mat.NewDense(1, 3, nil))
	assert.Error(t, err)

	_, err = NewImageVectorize(0, 84, 84)
	assert.Error(t, err)

	var _ Preprocessor = small
}
