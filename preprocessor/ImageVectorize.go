// Package preprocessor implements transformations from raw environment
// observations to the vectors that exploration bonuses are computed on
package preprocessor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Preprocessor transforms a batch of states, one per row, into a batch
// of vectors of dimension OutputDim
type Preprocessor interface {
	OutputDim() int
	Process(states mat.Matrix) (*mat.Dense, error)
	Validate() error
}

// ImageVectorize flattens stacks of NChannel frames of Width × Height
// pixels into vectors. Each input row holds the frames in channel,
// width, height order.
type ImageVectorize struct {
	NChannel int `json:"n_channel" yaml:"n_channel"`
	Width    int `json:"width" yaml:"width"`
	Height   int `json:"height" yaml:"height"`
}

// NewImageVectorize returns a new ImageVectorize preprocessor
func NewImageVectorize(nChannel, width, height int) (ImageVectorize, error) {
	p := ImageVectorize{NChannel: nChannel, Width: width, Height: height}
	return p, p.Validate()
}

// Validate checks that all image dimensions are positive
func (p ImageVectorize) Validate() error {
	if p.NChannel <= 0 || p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("validate: image dimensions must be positive"+
			"\n\thave(%v×%v×%v)", p.NChannel, p.Width, p.Height)
	}
	return nil
}

// OutputDim returns the dimension of the vectorized images
func (p ImageVectorize) OutputDim() int {
	return p.NChannel * p.Width * p.Height
}

// Process returns a copy of the batch of images, one image per row
func (p ImageVectorize) Process(states mat.Matrix) (*mat.Dense, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("process: %v", err)
	}

	_, c := states.Dims()
	if c != p.OutputDim() {
		return nil, fmt.Errorf("process: invalid image size\n\twant(%v)"+
			"\n\thave(%v)", p.OutputDim(), c)
	}
	return mat.DenseCopyOf(states), nil
}
