package ops

import (
	"math"

	"github.com/born-ml/vae/internal/tensor"
)

// SoftplusOp represents the softplus activation: y = log(1 + exp(x)).
//
// Softplus is a smooth, strictly positive map, which makes it a common
// choice for producing standard deviations.
//
// Backward pass:
//   - d(softplus(x))/dx = sigmoid(x) = 1 / (1 + exp(-x))
type SoftplusOp struct {
	input  *tensor.RawTensor // x
	output *tensor.RawTensor // log(1 + exp(x))
}

// NewSoftplusOp creates a new SoftplusOp.
func NewSoftplusOp(input, output *tensor.RawTensor) *SoftplusOp {
	return &SoftplusOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensor [x].
func (op *SoftplusOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor log(1 + exp(x)).
func (op *SoftplusOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the input gradient for softplus:
// grad_input = grad_output * sigmoid(x).
func (op *SoftplusOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	sig := sigmoidOf(op.input, backend)
	inputGrad := backend.Mul(outputGrad, sig)
	return []*tensor.RawTensor{inputGrad}
}

// sigmoidOf computes sigmoid(x) element-wise without tape involvement.
func sigmoidOf(x *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), backend.Device())
	if err != nil {
		panic(err)
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(1 / (1 + math.Exp(float64(-v))))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = 1 / (1 + math.Exp(-v))
		}
	}

	return result
}
