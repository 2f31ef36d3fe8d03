package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/vae/internal/tensor"
)

// GaussianKLOp represents the analytic KL divergence between a diagonal
// Gaussian N(loc, diag(scale²)) and the standard normal N(0, I).
//
// Forward:
//
//	KL = (1/batch) Σ_b Σ_d 0.5 (scale² + loc² - 1 - log(scale²))
//
// Backward:
//
//	∂KL/∂loc   = loc / batch
//	∂KL/∂scale = (scale - 1/scale) / batch
//
// Assumptions:
//   - loc and scale shape: [batch_size, latent_dims] (2D)
//   - scale is strictly positive
//   - Output: single-element value (mean over batch, sum over dims)
type GaussianKLOp struct {
	loc    *tensor.RawTensor // Posterior means [batch_size, latent_dims]
	scale  *tensor.RawTensor // Posterior stddevs [batch_size, latent_dims]
	output *tensor.RawTensor // KL output [1]
}

// NewGaussianKLOp creates a new Gaussian KL divergence operation.
func NewGaussianKLOp(loc, scale, output *tensor.RawTensor) *GaussianKLOp {
	return &GaussianKLOp{
		loc:    loc,
		scale:  scale,
		output: output,
	}
}

// Inputs returns the input tensors [loc, scale].
func (op *GaussianKLOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.loc, op.scale}
}

// Output returns the output tensor.
func (op *GaussianKLOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes gradients with respect to loc and scale.
func (op *GaussianKLOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.loc.Shape()
	if len(shape) != 2 {
		panic("GaussianKLOp: backward only supports 2D inputs [batch_size, latent_dims]")
	}

	batchSize := shape[0]

	locGrad, err := tensor.NewRaw(shape, op.loc.DType(), op.loc.Device())
	if err != nil {
		panic(err)
	}
	scaleGrad, err := tensor.NewRaw(shape, op.scale.DType(), op.scale.Device())
	if err != nil {
		panic(err)
	}

	scale := gradScale(outputGrad)

	switch op.loc.DType() {
	case tensor.Float32:
		gaussianKLGrad(op.loc.AsFloat32(), op.scale.AsFloat32(),
			locGrad.AsFloat32(), scaleGrad.AsFloat32(), float32(scale), float32(batchSize))
	case tensor.Float64:
		gaussianKLGrad(op.loc.AsFloat64(), op.scale.AsFloat64(),
			locGrad.AsFloat64(), scaleGrad.AsFloat64(), scale, float64(batchSize))
	default:
		panic(fmt.Sprintf("GaussianKLOp: unsupported dtype %s", op.loc.DType()))
	}

	return []*tensor.RawTensor{locGrad, scaleGrad}
}

func gaussianKLGrad[T float32 | float64](loc, std, locGrad, stdGrad []T, scale, batchSize T) {
	for i := range loc {
		locGrad[i] = scale * loc[i] / batchSize
		stdGrad[i] = scale * (std[i] - 1/std[i]) / batchSize
	}
}

// GaussianKLForward computes the batch-mean analytic KL divergence against
// the standard normal. The result has shape [1].
func GaussianKLForward(loc, scale *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := loc.Shape()
	if len(shape) != 2 {
		panic("GaussianKL: inputs must be 2D [batch_size, latent_dims]")
	}
	if !shape.Equal(scale.Shape()) {
		panic(fmt.Sprintf("GaussianKL: shape mismatch %v vs %v", shape, scale.Shape()))
	}

	result, err := tensor.NewRaw(tensor.Shape{1}, loc.DType(), device)
	if err != nil {
		panic(err)
	}

	batchSize := shape[0]

	switch loc.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = float32(gaussianKLSum(loc.AsFloat32(), scale.AsFloat32())) / float32(batchSize)
	case tensor.Float64:
		result.AsFloat64()[0] = gaussianKLSum(loc.AsFloat64(), scale.AsFloat64()) / float64(batchSize)
	default:
		panic(fmt.Sprintf("GaussianKL: unsupported dtype %s", loc.DType()))
	}

	return result
}

func gaussianKLSum[T float32 | float64](loc, scale []T) float64 {
	var sum float64
	for i := range loc {
		m := float64(loc[i])
		s := float64(scale[i])
		sum += 0.5 * (s*s + m*m - 1 - 2*math.Log(s))
	}
	return sum
}
