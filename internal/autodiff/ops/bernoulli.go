package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/vae/internal/tensor"
)

// probEpsilon clamps predicted probabilities away from 0 and 1 so the
// log terms stay finite.
const probEpsilon = 1e-7

// BernoulliNLLOp represents the negative log-likelihood of binary data
// under an element-wise Bernoulli model.
//
// Forward:
//
//	Loss = (1/batch) Σ_b Σ_d -[x log(p) + (1-x) log(1-p)]
//
// Probabilities are clamped to [ε, 1-ε] before taking logs.
//
// Backward:
//
//	∂L/∂p = (p - x) / (p (1-p) batch)
//
// Targets carry no gradient.
//
// Assumptions:
//   - probs shape: [batch_size, data_dims] (2D)
//   - target shape: same as probs, values in {0, 1}
//   - Output: single-element loss (mean over batch, sum over dims)
type BernoulliNLLOp struct {
	probs  *tensor.RawTensor // Predicted probabilities [batch_size, data_dims]
	target *tensor.RawTensor // Binary targets [batch_size, data_dims]
	output *tensor.RawTensor // Loss output [1]
}

// NewBernoulliNLLOp creates a new Bernoulli negative log-likelihood operation.
func NewBernoulliNLLOp(probs, target, output *tensor.RawTensor) *BernoulliNLLOp {
	return &BernoulliNLLOp{
		probs:  probs,
		target: target,
		output: output,
	}
}

// Inputs returns the differentiable input tensors.
func (op *BernoulliNLLOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.probs}
}

// Output returns the output tensor.
func (op *BernoulliNLLOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to the probabilities.
//
// Gradient formula:
//
//	∂L/∂p[b,d] = (p[b,d] - x[b,d]) / (p[b,d] (1 - p[b,d]) batch_size)
//
// The gradient is averaged over the batch because the forward pass
// computes a batch-mean loss.
func (op *BernoulliNLLOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.probs.Shape()
	if len(shape) != 2 {
		panic("BernoulliNLLOp: backward only supports 2D probabilities [batch_size, data_dims]")
	}

	batchSize := shape[0]

	probsGrad, err := tensor.NewRaw(shape, op.probs.DType(), op.probs.Device())
	if err != nil {
		panic(err)
	}

	scale := gradScale(outputGrad)

	switch op.probs.DType() {
	case tensor.Float32:
		bernoulliNLLGrad(op.probs.AsFloat32(), op.target.AsFloat32(), probsGrad.AsFloat32(),
			float32(scale), float32(batchSize))
	case tensor.Float64:
		bernoulliNLLGrad(op.probs.AsFloat64(), op.target.AsFloat64(), probsGrad.AsFloat64(),
			scale, float64(batchSize))
	default:
		panic(fmt.Sprintf("BernoulliNLLOp: unsupported dtype %s", op.probs.DType()))
	}

	return []*tensor.RawTensor{probsGrad}
}

func bernoulliNLLGrad[T float32 | float64](probs, target, grad []T, scale, batchSize T) {
	eps := T(probEpsilon)
	for i := range probs {
		p := clamp(probs[i], eps, 1-eps)
		grad[i] = scale * (p - target[i]) / (p * (1 - p) * batchSize)
	}
}

// BernoulliNLLForward computes the batch-mean Bernoulli negative
// log-likelihood. The result has shape [1].
func BernoulliNLLForward(probs, target *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := probs.Shape()
	if len(shape) != 2 {
		panic("BernoulliNLL: probabilities must be 2D [batch_size, data_dims]")
	}
	if !shape.Equal(target.Shape()) {
		panic(fmt.Sprintf("BernoulliNLL: shape mismatch %v vs %v", shape, target.Shape()))
	}

	result, err := tensor.NewRaw(tensor.Shape{1}, probs.DType(), device)
	if err != nil {
		panic(err)
	}

	batchSize := shape[0]

	switch probs.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = float32(bernoulliNLLSum(probs.AsFloat32(), target.AsFloat32())) / float32(batchSize)
	case tensor.Float64:
		result.AsFloat64()[0] = bernoulliNLLSum(probs.AsFloat64(), target.AsFloat64()) / float64(batchSize)
	default:
		panic(fmt.Sprintf("BernoulliNLL: unsupported dtype %s", probs.DType()))
	}

	return result
}

func bernoulliNLLSum[T float32 | float64](probs, target []T) float64 {
	var sum float64
	for i := range probs {
		p := clamp(float64(probs[i]), probEpsilon, 1-probEpsilon)
		x := float64(target[i])
		sum -= x*math.Log(p) + (1-x)*math.Log(1-p)
	}
	return sum
}

func clamp[T float32 | float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
