package tensor

import (
	"math"
	"testing"
)

// Test helpers

func assertEqualFloat32(t *testing.T, expected, actual float32, msg string) {
	t.Helper()
	if math.Abs(float64(expected-actual)) > 1e-6 {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

func assertEqualShape(t *testing.T, expected, actual Shape, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected shape %v, got %v", msg, expected, actual)
	}
}

// DType Tests

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	if got := Float32.String(); got != "float32" {
		t.Errorf("Float32.String() = %q, want %q", got, "float32")
	}
	if got := Float64.String(); got != "float64" {
		t.Errorf("Float64.String() = %q, want %q", got, "float64")
	}
}

func TestInferDataType(t *testing.T) {
	if dt := inferDataType(float32(0)); dt != Float32 {
		t.Errorf("inferDataType(float32) = %v, want Float32", dt)
	}
	if dt := inferDataType(float64(0)); dt != Float64 {
		t.Errorf("inferDataType(float64) = %v, want Float64", dt)
	}
}

// Shape Tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}

	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("valid shape returned error: %v", err)
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("expected error for zero dimension")
	}
	if err := (Shape{-1, 3}).Validate(); err == nil {
		t.Error("expected error for negative dimension")
	}
}

func TestShapeComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Errorf("strides = %v, want %v", strides, want)
			break
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b    Shape
		want    Shape
		needs   bool
		wantErr bool
	}{
		{Shape{3, 4}, Shape{3, 4}, Shape{3, 4}, false, false},
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{5}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{1}, Shape{4, 4}, Shape{4, 4}, true, false},
		{Shape{3, 4}, Shape{2, 4}, nil, false, true},
	}

	for _, tt := range tests {
		got, needs, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v): expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v): unexpected error: %v", tt.a, tt.b, err)
			continue
		}
		assertEqualShape(t, tt.want, got, "broadcast result")
		if needs != tt.needs {
			t.Errorf("BroadcastShapes(%v, %v): needsBroadcast = %v, want %v", tt.a, tt.b, needs, tt.needs)
		}
	}
}

// RawTensor Tests

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	assertEqualShape(t, Shape{2, 3}, raw.Shape(), "raw shape")
	if raw.DType() != Float32 {
		t.Errorf("dtype = %v, want Float32", raw.DType())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize = %d, want 24", raw.ByteSize())
	}

	// Fresh tensors are zero-initialized.
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Errorf("element %d = %v, want 0", i, v)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, -1}, Float32, CPU); err == nil {
		t.Error("expected error for invalid shape")
	}
}

func TestRawTensorRefCounting(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.IsUnique() {
		t.Error("fresh tensor should be unique")
	}

	clone := raw.Clone()
	if raw.IsUnique() || clone.IsUnique() {
		t.Error("shared tensors should not be unique")
	}

	// Clone shares the underlying buffer.
	raw.AsFloat32()[0] = 42
	if clone.AsFloat32()[0] != 42 {
		t.Error("clone should share data with original")
	}

	clone.Release()
	if !raw.IsUnique() {
		t.Error("tensor should be unique after clone released")
	}
}

func TestForceNonUnique(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	restore := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("tensor should not be unique while pinned")
	}
	restore()
	if !raw.IsUnique() {
		t.Error("tensor should be unique after restore")
	}
}

// Tensor Tests

func TestFromSlice(t *testing.T) {
	backend := NewMockBackend()
	data := []float32{1, 2, 3, 4, 5, 6}

	tensor, err := FromSlice(data, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	assertEqualShape(t, Shape{2, 3}, tensor.Shape(), "tensor shape")
	assertEqualFloat32(t, 1, tensor.At(0, 0), "At(0,0)")
	assertEqualFloat32(t, 6, tensor.At(1, 2), "At(1,2)")
}

func TestFromSliceCountMismatch(t *testing.T) {
	backend := NewMockBackend()
	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, backend); err == nil {
		t.Error("expected error for element count mismatch")
	}
}

func TestTensorAtSet(t *testing.T) {
	backend := NewMockBackend()
	tensor := Zeros[float32](Shape{2, 3}, backend)

	tensor.Set(7.5, 1, 2)
	assertEqualFloat32(t, 7.5, tensor.At(1, 2), "Set/At round trip")
	assertEqualFloat32(t, 0, tensor.At(0, 0), "untouched element")
}

func TestTensorItem(t *testing.T) {
	backend := NewMockBackend()
	tensor, err := FromSlice([]float32{3.5}, Shape{1}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	assertEqualFloat32(t, 3.5, tensor.Item(), "Item")
}

func TestTensorData(t *testing.T) {
	backend := NewMockBackend()
	data := []float32{1, 2, 3, 4}
	tensor, err := FromSlice(data, Shape{4}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	got := tensor.Data()
	for i := range data {
		assertEqualFloat32(t, data[i], got[i], "Data element")
	}

	// Data is a view, not a copy.
	got[0] = 99
	assertEqualFloat32(t, 99, tensor.At(0), "Data should alias tensor storage")
}

func TestTensorFloat64(t *testing.T) {
	backend := NewMockBackend()
	tensor, err := FromSlice([]float64{1.5, 2.5}, Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if tensor.DType() != Float64 {
		t.Errorf("dtype = %v, want Float64", tensor.DType())
	}
	if tensor.At(1) != 2.5 {
		t.Errorf("At(1) = %v, want 2.5", tensor.At(1))
	}
}
