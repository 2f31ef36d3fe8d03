package optim_test

import (
	"math"
	"testing"

	"github.com/born-ml/vae/internal/autodiff"
	"github.com/born-ml/vae/internal/backend/cpu"
	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/optim"
	"github.com/born-ml/vae/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() testBackend {
	return autodiff.New(cpu.New())
}

func newParam(t *testing.T, backend testBackend, name string, data []float32, shape tensor.Shape) *nn.Parameter[testBackend] {
	t.Helper()
	pt, err := tensor.FromSlice(data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	return nn.NewParameter(name, pt)
}

func gradFor(t *testing.T, param *nn.Parameter[testBackend], data []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): raw}
}

func closeTo(t *testing.T, got, want float32, tol float64, msg string) {
	t.Helper()
	if math.Abs(float64(got-want)) > tol {
		t.Errorf("%s: got %f, want %f", msg, got, want)
	}
}

func TestSGDStep(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1, 2, 3}, tensor.Shape{3})

	sgd := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1}, backend)
	sgd.Step(gradFor(t, param, []float32{1, 1, 1}))

	want := []float32{0.9, 1.9, 2.9}
	for i, v := range param.Tensor().Data() {
		closeTo(t, v, want[i], 1e-6, "param after step")
	}
}

func TestSGDMomentum(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1}, tensor.Shape{1})

	sgd := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)

	// Step 1: velocity = 1, param = 1 - 0.1*1 = 0.9
	sgd.Step(gradFor(t, param, []float32{1}))
	closeTo(t, param.Tensor().Data()[0], 0.9, 1e-6, "after step 1")

	// Step 2: velocity = 0.9*1 + 1 = 1.9, param = 0.9 - 0.1*1.9 = 0.71
	sgd.Step(gradFor(t, param, []float32{1}))
	closeTo(t, param.Tensor().Data()[0], 0.71, 1e-6, "after step 2")
}

func TestSGDSkipsMissingGradient(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1, 2}, tensor.Shape{2})

	sgd := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1}, backend)
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	want := []float32{1, 2}
	for i, v := range param.Tensor().Data() {
		closeTo(t, v, want[i], 0, "param should be untouched")
	}
}

func TestSGDDefaults(t *testing.T) {
	backend := newBackend()
	sgd := optim.NewSGD[testBackend](nil, optim.SGDConfig{}, backend)
	closeTo(t, sgd.GetLR(), 0.01, 1e-9, "default LR")

	sgd.SetLR(0.5)
	closeTo(t, sgd.GetLR(), 0.5, 1e-9, "after SetLR")
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1, 1}, tensor.Shape{2})

	adam := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.001}, backend)

	// With bias correction, the first step magnitude is ~lr regardless
	// of the gradient scale.
	adam.Step(gradFor(t, param, []float32{100, 0.01}))

	data := param.Tensor().Data()
	closeTo(t, data[0], 1-0.001, 1e-4, "large gradient")
	closeTo(t, data[1], 1-0.001, 1e-4, "small gradient")
	if adam.GetTimestep() != 1 {
		t.Errorf("GetTimestep() = %d, want 1", adam.GetTimestep())
	}
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "x", []float32{5}, tensor.Shape{1})

	adam := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.1}, backend)

	// Minimize f(x) = x^2; gradient is 2x.
	for i := 0; i < 500; i++ {
		x := param.Tensor().Data()[0]
		adam.Step(gradFor(t, param, []float32{2 * x}))
	}

	x := param.Tensor().Data()[0]
	if math.Abs(float64(x)) > 0.05 {
		t.Errorf("x = %f after 500 steps, want near 0", x)
	}
}

func TestAdamDefaults(t *testing.T) {
	backend := newBackend()
	adam := optim.NewAdam[testBackend](nil, optim.AdamConfig{}, backend)
	closeTo(t, adam.GetLR(), 0.001, 1e-9, "default LR")
}

func TestZeroGrad(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1}, tensor.Shape{1})
	grad, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1}, backend)
	param.SetGrad(grad)

	sgd := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1}, backend)
	sgd.ZeroGrad()

	if param.Grad() != nil {
		t.Error("ZeroGrad should clear parameter gradients")
	}
}

func TestSGDStateDictRoundTrip(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1, 2}, tensor.Shape{2})

	src := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	src.Step(gradFor(t, param, []float32{1, -1}))

	stateDict := src.StateDict()
	if _, ok := stateDict["velocity.0"]; !ok {
		t.Fatal("StateDict missing velocity.0")
	}

	dst := optim.NewSGD([]*nn.Parameter[testBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	if err := dst.LoadStateDict(stateDict); err != nil {
		t.Fatalf("LoadStateDict failed: %v", err)
	}

	got := dst.StateDict()["velocity.0"].AsFloat32()
	want := []float32{1, -1}
	for i := range want {
		closeTo(t, got[i], want[i], 1e-6, "restored velocity")
	}
}

func TestAdamStateDictRoundTrip(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1, 2}, tensor.Shape{2})

	src := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.01}, backend)
	src.Step(gradFor(t, param, []float32{1, -1}))
	src.Step(gradFor(t, param, []float32{0.5, 0.5}))

	stateDict := src.StateDict()
	for _, key := range []string{"m.0", "v.0", "t"} {
		if _, ok := stateDict[key]; !ok {
			t.Fatalf("StateDict missing %q", key)
		}
	}

	dst := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{LR: 0.01}, backend)
	if err := dst.LoadStateDict(stateDict); err != nil {
		t.Fatalf("LoadStateDict failed: %v", err)
	}
	if dst.GetTimestep() != 2 {
		t.Errorf("restored timestep = %d, want 2", dst.GetTimestep())
	}

	srcM := src.StateDict()["m.0"].AsFloat32()
	dstM := dst.StateDict()["m.0"].AsFloat32()
	for i := range srcM {
		closeTo(t, dstM[i], srcM[i], 1e-6, "restored first moment")
	}
}

func TestAdamLoadStateDictShapeMismatch(t *testing.T) {
	backend := newBackend()
	param := newParam(t, backend, "w", []float32{1, 2}, tensor.Shape{2})

	adam := optim.NewAdam([]*nn.Parameter[testBackend]{param}, optim.AdamConfig{}, backend)

	wrong, _ := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	err := adam.LoadStateDict(map[string]*tensor.RawTensor{"m.0": wrong})
	if err == nil {
		t.Error("expected error for moment shape mismatch")
	}
}
