package cpu

import (
	"fmt"

	"github.com/born-ml/vae/internal/tensor"
)

// binaryKernels bundles the three execution paths of an element-wise
// binary operation.
type binaryKernels struct {
	inplace    func(a, b *tensor.RawTensor)
	vectorized func(result, a, b *tensor.RawTensor)
	broadcast  func(result, a, b *tensor.RawTensor, outShape tensor.Shape)
}

var (
	addKernels = binaryKernels{addInplace, addVectorized, addWithBroadcast}
	subKernels = binaryKernels{subInplace, subVectorized, subWithBroadcast}
	mulKernels = binaryKernels{mulInplace, mulVectorized, mulWithBroadcast}
	divKernels = binaryKernels{divInplace, divVectorized, divWithBroadcast}
)

// addInplace performs inplace addition (a += b).
// Requires: a.Shape().Equal(b.Shape()) && a.IsUnique().
func addInplace(a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		inplaceLoop(a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x + y })
	case tensor.Float64:
		inplaceLoop(a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x + y })
	default:
		panic(fmt.Sprintf("addInplace: unsupported dtype %s", a.DType()))
	}
}

// addVectorized performs vectorized addition: result = a + b.
// Requires: a.Shape().Equal(b.Shape()).
func addVectorized(result, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		vectorizedLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x + y })
	case tensor.Float64:
		vectorizedLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x + y })
	default:
		panic(fmt.Sprintf("addVectorized: unsupported dtype %s", a.DType()))
	}
}

// addWithBroadcast performs addition with broadcasting.
func addWithBroadcast(result, a, b *tensor.RawTensor, outShape tensor.Shape) {
	switch a.DType() {
	case tensor.Float32:
		broadcastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape,
			func(x, y float32) float32 { return x + y })
	case tensor.Float64:
		broadcastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape,
			func(x, y float64) float64 { return x + y })
	default:
		panic(fmt.Sprintf("addWithBroadcast: unsupported dtype %s", a.DType()))
	}
}

func subInplace(a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		inplaceLoop(a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x - y })
	case tensor.Float64:
		inplaceLoop(a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x - y })
	default:
		panic(fmt.Sprintf("subInplace: unsupported dtype %s", a.DType()))
	}
}

func subVectorized(result, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		vectorizedLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x - y })
	case tensor.Float64:
		vectorizedLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x - y })
	default:
		panic(fmt.Sprintf("subVectorized: unsupported dtype %s", a.DType()))
	}
}

func subWithBroadcast(result, a, b *tensor.RawTensor, outShape tensor.Shape) {
	switch a.DType() {
	case tensor.Float32:
		broadcastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape,
			func(x, y float32) float32 { return x - y })
	case tensor.Float64:
		broadcastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape,
			func(x, y float64) float64 { return x - y })
	default:
		panic(fmt.Sprintf("subWithBroadcast: unsupported dtype %s", a.DType()))
	}
}

func mulInplace(a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		inplaceLoop(a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x * y })
	case tensor.Float64:
		inplaceLoop(a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x * y })
	default:
		panic(fmt.Sprintf("mulInplace: unsupported dtype %s", a.DType()))
	}
}

func mulVectorized(result, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		vectorizedLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x * y })
	case tensor.Float64:
		vectorizedLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x * y })
	default:
		panic(fmt.Sprintf("mulVectorized: unsupported dtype %s", a.DType()))
	}
}

func mulWithBroadcast(result, a, b *tensor.RawTensor, outShape tensor.Shape) {
	switch a.DType() {
	case tensor.Float32:
		broadcastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape,
			func(x, y float32) float32 { return x * y })
	case tensor.Float64:
		broadcastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape,
			func(x, y float64) float64 { return x * y })
	default:
		panic(fmt.Sprintf("mulWithBroadcast: unsupported dtype %s", a.DType()))
	}
}

func divInplace(a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		inplaceLoop(a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x / y })
	case tensor.Float64:
		inplaceLoop(a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x / y })
	default:
		panic(fmt.Sprintf("divInplace: unsupported dtype %s", a.DType()))
	}
}

func divVectorized(result, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		vectorizedLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), func(x, y float32) float32 { return x / y })
	case tensor.Float64:
		vectorizedLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), func(x, y float64) float64 { return x / y })
	default:
		panic(fmt.Sprintf("divVectorized: unsupported dtype %s", a.DType()))
	}
}

func divWithBroadcast(result, a, b *tensor.RawTensor, outShape tensor.Shape) {
	switch a.DType() {
	case tensor.Float32:
		broadcastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape,
			func(x, y float32) float32 { return x / y })
	case tensor.Float64:
		broadcastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape,
			func(x, y float64) float64 { return x / y })
	default:
		panic(fmt.Sprintf("divWithBroadcast: unsupported dtype %s", a.DType()))
	}
}

// Generic loop bodies shared by all four binary operations.

func inplaceLoop[T float32 | float64](a, b []T, op func(T, T) T) {
	for i := range a {
		a[i] = op(a[i], b[i])
	}
}

func vectorizedLoop[T float32 | float64](dst, a, b []T, op func(T, T) T) {
	for i := range a {
		dst[i] = op(a[i], b[i])
	}
}

func broadcastLoop[T float32 | float64](dst, a, b []T, aShape, bShape, outShape tensor.Shape, op func(T, T) T) {
	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(aShape, outShape)
	bStrides := computeBroadcastStridesForShape(bShape, outShape)

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		aIdx := computeFlatIndex(i, outStrides, aStrides)
		bIdx := computeFlatIndex(i, outStrides, bStrides)
		dst[i] = op(a[aIdx], b[bIdx])
	}
}

// transposeData copies t into result following the axis permutation.
func transposeData(result, t *tensor.RawTensor, axes []int) {
	switch t.DType() {
	case tensor.Float32:
		transposeLoop(result.AsFloat32(), t.AsFloat32(), t.Shape(), result.Shape(), axes)
	case tensor.Float64:
		transposeLoop(result.AsFloat64(), t.AsFloat64(), t.Shape(), result.Shape(), axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
}

func transposeLoop[T float32 | float64](dst, src []T, inShape, outShape tensor.Shape, axes []int) {
	ndim := len(inShape)
	inStrides := inShape.ComputeStrides()

	coords := make([]int, ndim)
	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		rem := i
		for d := ndim - 1; d >= 0; d-- {
			coords[d] = rem % outShape[d]
			rem /= outShape[d]
		}

		srcIdx := 0
		for d := 0; d < ndim; d++ {
			srcIdx += coords[d] * inStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
}
