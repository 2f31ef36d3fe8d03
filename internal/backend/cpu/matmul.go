package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/vae/internal/tensor"
)

// MatMul performs matrix multiplication via gonum BLAS.
// For 2D tensors: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]

	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := mustNewRaw("matmul", tensor.Shape{m, n}, a.DType(), cpu.device)

	switch a.DType() {
	case tensor.Float32:
		matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		matmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulFloat32 computes C = A @ B with SGEMM.
func matmulFloat32(c, a, b []float32, m, k, n int) {
	aMat := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	bMat := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	cMat := blas32.General{Rows: m, Cols: n, Stride: n, Data: c}

	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, aMat, bMat, 0, cMat)
}

// matmulFloat64 computes C = A @ B with DGEMM.
func matmulFloat64(c, a, b []float64, m, k, n int) {
	aMat := blas64.General{Rows: m, Cols: k, Stride: k, Data: a}
	bMat := blas64.General{Rows: k, Cols: n, Stride: n, Data: b}
	cMat := blas64.General{Rows: m, Cols: n, Stride: n, Data: c}

	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1, aMat, bMat, 0, cMat)
}
