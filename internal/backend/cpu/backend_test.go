package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/vae/internal/tensor"
)

func newRaw(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func assertFloat32s(t *testing.T, want []float32, got []float32, msg string) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length %d, want %d", msg, len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(want[i]-got[i])) > 1e-5 {
			t.Errorf("%s: element %d = %v, want %v", msg, i, got[i], want[i])
		}
	}
}

func TestBackendIdentity(t *testing.T) {
	backend := New()
	if backend.Name() != "CPU" {
		t.Errorf("Name() = %q, want %q", backend.Name(), "CPU")
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", backend.Device())
	}
}

func TestAddSameShape(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := newRaw(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	c := backend.Add(a, b)

	assertFloat32s(t, []float32{11, 22, 33, 44}, c.AsFloat32(), "Add")
}

func TestAddInplaceFastPath(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2}, tensor.Shape{2})
	b := newRaw(t, []float32{3, 4}, tensor.Shape{2})

	c := backend.Add(a, b)

	// Unique lhs with matching shape is updated in place.
	if c != a {
		t.Error("expected inplace result for unique lhs")
	}
	assertFloat32s(t, []float32{4, 6}, c.AsFloat32(), "inplace Add")
}

func TestAddRespectsPinnedTensor(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2}, tensor.Shape{2})
	b := newRaw(t, []float32{3, 4}, tensor.Shape{2})

	restore := a.ForceNonUnique()
	defer restore()

	c := backend.Add(a, b)

	if c == a {
		t.Error("pinned tensor must not be modified in place")
	}
	assertFloat32s(t, []float32{1, 2}, a.AsFloat32(), "pinned input unchanged")
	assertFloat32s(t, []float32{4, 6}, c.AsFloat32(), "Add result")
}

func TestAddBroadcastRow(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := newRaw(t, []float32{10, 20, 30}, tensor.Shape{3})

	c := backend.Add(a, bias)

	if !c.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v, want [2 3]", c.Shape())
	}
	assertFloat32s(t, []float32{11, 22, 33, 14, 25, 36}, c.AsFloat32(), "broadcast Add")
}

func TestSubMulDiv(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{6, 8, 10}, tensor.Shape{3})
	b := newRaw(t, []float32{2, 4, 5}, tensor.Shape{3})

	aPin := a.ForceNonUnique()
	defer aPin()

	assertFloat32s(t, []float32{4, 4, 5}, backend.Sub(a, b).AsFloat32(), "Sub")
	assertFloat32s(t, []float32{12, 32, 50}, backend.Mul(a, b).AsFloat32(), "Mul")
	assertFloat32s(t, []float32{3, 2, 2}, backend.Div(a, b).AsFloat32(), "Div")
}

func TestMulBroadcastColumn(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	col := newRaw(t, []float32{10, 100}, tensor.Shape{2, 1})

	c := backend.Mul(a, col)

	assertFloat32s(t, []float32{10, 20, 30, 400, 500, 600}, c.AsFloat32(), "column broadcast Mul")
}

func TestMatMul(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := newRaw(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})

	c := backend.MatMul(a, b)

	assertFloat32s(t, []float32{19, 22, 43, 50}, c.AsFloat32(), "MatMul")
}

func TestMatMulRectangular(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := newRaw(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	c := backend.MatMul(a, b)

	if !c.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("shape = %v, want [2 2]", c.Shape())
	}
	assertFloat32s(t, []float32{58, 64, 139, 154}, c.AsFloat32(), "MatMul rect")
}

func TestMatMulFloat64(t *testing.T) {
	backend := New()
	a, err := tensor.NewRaw(tensor.Shape{1, 2}, tensor.Float64, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	b, err := tensor.NewRaw(tensor.Shape{2, 1}, tensor.Float64, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	copy(a.AsFloat64(), []float64{1.5, 2.5})
	copy(b.AsFloat64(), []float64{2, 4})

	c := backend.MatMul(a, b)

	if got := c.AsFloat64()[0]; math.Abs(got-13) > 1e-12 {
		t.Errorf("MatMul float64 = %v, want 13", got)
	}
}

func TestMatMulShapeMismatch(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := newRaw(t, []float32{1, 2, 3}, tensor.Shape{3, 1})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on shape mismatch")
		}
	}()
	backend.MatMul(a, b)
}

func TestReshape(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	b := backend.Reshape(a, tensor.Shape{6})

	if !b.Shape().Equal(tensor.Shape{6}) {
		t.Fatalf("shape = %v, want [6]", b.Shape())
	}
	assertFloat32s(t, a.AsFloat32(), b.AsFloat32(), "Reshape data")
}

func TestTranspose2D(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	b := backend.Transpose(a)

	if !b.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", b.Shape())
	}
	assertFloat32s(t, []float32{1, 4, 2, 5, 3, 6}, b.AsFloat32(), "Transpose")
}

func TestTransposeAxes(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 2, 2})

	b := backend.Transpose(a, 1, 0, 2)

	assertFloat32s(t, []float32{1, 2, 5, 6, 3, 4, 7, 8}, b.AsFloat32(), "Transpose axes")
}

func TestExpLog(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{0, 1, 2}, tensor.Shape{3})

	exp := backend.Exp(a)
	assertFloat32s(t, []float32{1, float32(math.E), float32(math.Exp(2))}, exp.AsFloat32(), "Exp")

	log := backend.Log(exp)
	assertFloat32s(t, []float32{0, 1, 2}, log.AsFloat32(), "Log(Exp)")
}

func TestLogPanicsOnNonPositive(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 0}, tensor.Shape{2})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for log(0)")
		}
	}()
	backend.Log(a)
}

func TestSqrt(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{0, 4, 9}, tensor.Shape{3})

	assertFloat32s(t, []float32{0, 2, 3}, backend.Sqrt(a).AsFloat32(), "Sqrt")
}

func TestScalarOps(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{2, 4, 6}, tensor.Shape{3})

	assertFloat32s(t, []float32{6, 12, 18}, backend.MulScalar(a, float32(3)).AsFloat32(), "MulScalar")
	assertFloat32s(t, []float32{3, 5, 7}, backend.AddScalar(a, float32(1)).AsFloat32(), "AddScalar")
	assertFloat32s(t, []float32{1, 3, 5}, backend.SubScalar(a, float32(1)).AsFloat32(), "SubScalar")
	assertFloat32s(t, []float32{1, 2, 3}, backend.DivScalar(a, float32(2)).AsFloat32(), "DivScalar")
}

func TestScalarTypeMismatchPanics(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1}, tensor.Shape{1})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for float64 scalar on float32 tensor")
		}
	}()
	backend.MulScalar(a, float64(2))
}

func TestSum(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	s := backend.Sum(a)

	if !s.Shape().Equal(tensor.Shape{1}) {
		t.Fatalf("shape = %v, want [1]", s.Shape())
	}
	assertFloat32s(t, []float32{10}, s.AsFloat32(), "Sum")
}

func TestSumDim(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	rows := backend.SumDim(a, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("shape = %v, want [2]", rows.Shape())
	}
	assertFloat32s(t, []float32{6, 15}, rows.AsFloat32(), "SumDim(1)")

	cols := backend.SumDim(a, 0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("shape = %v, want [1 3]", cols.Shape())
	}
	assertFloat32s(t, []float32{5, 7, 9}, cols.AsFloat32(), "SumDim(0, keepDim)")

	last := backend.SumDim(a, -1, false)
	assertFloat32s(t, []float32{6, 15}, last.AsFloat32(), "SumDim(-1)")
}

func TestMeanDim(t *testing.T) {
	backend := New()
	a := newRaw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	mean := backend.MeanDim(a, 0, false)
	assertFloat32s(t, []float32{2.5, 3.5, 4.5}, mean.AsFloat32(), "MeanDim(0)")
}
