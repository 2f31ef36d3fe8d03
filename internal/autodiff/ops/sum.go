package ops

import (
	"fmt"

	"github.com/born-ml/vae/internal/tensor"
)

// SumOp represents a full reduction: output = sum of all elements of x.
// The output has shape [1].
//
// Backward pass: the scalar output gradient is broadcast to every element
// of the input.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensor [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the single-element output tensor.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward fills the input gradient with the upstream scalar gradient.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("sum: failed to create gradient: %v", err))
	}

	scale := gradScale(outputGrad)

	switch op.input.DType() {
	case tensor.Float32:
		data := inputGrad.AsFloat32()
		s := float32(scale)
		for i := range data {
			data[i] = s
		}
	case tensor.Float64:
		data := inputGrad.AsFloat64()
		for i := range data {
			data[i] = scale
		}
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{inputGrad}
}
