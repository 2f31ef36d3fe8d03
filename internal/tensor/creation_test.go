package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func TestZeros(t *testing.T) {
	backend := NewMockBackend()
	tensor := Zeros[float32](Shape{3, 4}, backend)

	assertEqualShape(t, Shape{3, 4}, tensor.Shape(), "Zeros shape")
	for i, v := range tensor.Data() {
		if v != 0 {
			t.Errorf("element %d = %v, want 0", i, v)
		}
	}
}

func TestOnes(t *testing.T) {
	backend := NewMockBackend()
	tensor := Ones[float32](Shape{2, 5}, backend)

	for i, v := range tensor.Data() {
		if v != 1 {
			t.Errorf("element %d = %v, want 1", i, v)
		}
	}
}

func TestFull(t *testing.T) {
	backend := NewMockBackend()
	tensor := Full[float32](Shape{4}, 3.25, backend)

	for i, v := range tensor.Data() {
		if v != 3.25 {
			t.Errorf("element %d = %v, want 3.25", i, v)
		}
	}
}

func TestRandn(t *testing.T) {
	backend := NewMockBackend()
	rng := rand.New(rand.NewSource(42))
	shape := Shape{100, 50}

	tensor := Randn[float32](shape, rng, backend)

	assertEqualShape(t, shape, tensor.Shape(), "Randn shape")

	data := tensor.Data()
	sum := float64(0)
	for _, v := range data {
		sum += float64(v)
	}
	mean := sum / float64(len(data))

	sumSq := float64(0)
	for _, v := range data {
		diff := float64(v) - mean
		sumSq += diff * diff
	}
	std := math.Sqrt(sumSq / float64(len(data)))

	if math.Abs(mean) > 0.1 {
		t.Errorf("Randn mean = %v, expected close to 0", mean)
	}
	if math.Abs(std-1) > 0.1 {
		t.Errorf("Randn std = %v, expected close to 1", std)
	}
}

func TestRandnDeterministic(t *testing.T) {
	backend := NewMockBackend()
	a := Randn[float32](Shape{10}, rand.New(rand.NewSource(7)), backend)
	b := Randn[float32](Shape{10}, rand.New(rand.NewSource(7)), backend)

	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatal("same seed should produce identical tensors")
		}
	}
}

func TestRand(t *testing.T) {
	backend := NewMockBackend()
	rng := rand.New(rand.NewSource(1))
	tensor := Rand[float32](Shape{1000}, rng, backend)

	for i, v := range tensor.Data() {
		if v < 0 || v >= 1 {
			t.Errorf("element %d = %v, want [0, 1)", i, v)
		}
	}
}

func TestLinspace(t *testing.T) {
	backend := NewMockBackend()
	tensor := Linspace[float32](0, 1, 5, backend)

	want := []float32{0, 0.25, 0.5, 0.75, 1}
	for i, w := range want {
		assertEqualFloat32(t, w, tensor.Data()[i], "Linspace element")
	}
}
