package ops

import (
	"fmt"

	"github.com/born-ml/vae/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on shape match so later inplace ops cannot corrupt shared gradients.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	gradDims := len(gradShape)
	targetDims := len(targetShape)

	// Sum away leading dimensions the target does not have.
	result := grad
	for i := 0; i < gradDims-targetDims; i++ {
		result = sumAlongDimension(result, 0, false)
	}

	// Sum along dimensions where the target is 1.
	resShape := result.Shape()
	for i := 0; i < targetDims; i++ {
		if targetShape[i] == 1 && resShape[i] > 1 {
			result = sumAlongDimension(result, i, true)
			resShape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// sumAlongDimension sums a tensor along the specified dimension.
// With keepDim the reduced dimension stays with size 1, otherwise it is removed.
func sumAlongDimension(t *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, len(shape)-1)
		for i, s := range shape {
			if i != dim {
				outShape = append(outShape, s)
			}
		}
		if len(outShape) == 0 {
			outShape = tensor.Shape{1}
		}
	}

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: failed to create result: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		sumDimInto(t.AsFloat32(), result.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimInto(t.AsFloat64(), result.AsFloat64(), shape, dim)
	default:
		panic(fmt.Sprintf("sumAlongDimension: unsupported dtype %s", t.DType()))
	}

	return result
}

// sumDimInto accumulates src into the zero-initialized dst with dimension
// dim of shape collapsed.
func sumDimInto[T float32 | float64](src, dst []T, shape tensor.Shape, dim int) {
	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	dimSize := shape[dim]

	for o := 0; o < outer; o++ {
		for d := 0; d < dimSize; d++ {
			base := (o*dimSize + d) * inner
			outBase := o * inner
			for in := 0; in < inner; in++ {
				dst[outBase+in] += src[base+in]
			}
		}
	}
}

// onesLike returns a tensor of the same shape and dtype filled with ones.
func onesLike(t *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	ones, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("onesLike: failed to create tensor: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		data := ones.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := ones.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		panic(fmt.Sprintf("onesLike: unsupported dtype %s", t.DType()))
	}

	return ones
}

// negate returns -grad.
func negate(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	zeros, err := tensor.NewRaw(grad.Shape(), grad.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("negate: failed to create zeros: %v", err))
	}
	return backend.Sub(zeros, grad)
}

// gradScale extracts the upstream scalar gradient of a reduction output.
func gradScale(outputGrad *tensor.RawTensor) float64 {
	switch outputGrad.DType() {
	case tensor.Float32:
		return float64(outputGrad.AsFloat32()[0])
	case tensor.Float64:
		return outputGrad.AsFloat64()[0]
	default:
		panic(fmt.Sprintf("gradScale: unsupported dtype %s", outputGrad.DType()))
	}
}
